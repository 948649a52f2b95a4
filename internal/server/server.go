// Package server exposes the recommendation session over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bonfito/billie/internal/catalog"
	"github.com/bonfito/billie/internal/session"
	"github.com/bonfito/billie/pkg/oracle"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Server serves one listener session over a JSON API.
type Server struct {
	cfg     Config
	session *session.Session
	catalog *catalog.Catalog
	oracle  *oracle.Oracle
	logger  *zap.Logger
	http    *http.Server
}

// New creates the server and its router.
func New(cfg Config, sess *session.Session, cat *catalog.Catalog, o *oracle.Oracle, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		session: sess,
		catalog: cat,
		oracle:  o,
		logger:  logger,
	}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// routes builds the router. Split out so tests can drive the handler stack
// without a listener.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogging)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/session", s.handleSession)
		r.Post("/recommendations", s.handleRecommend)
		r.Post("/feedback/accept", s.handleAccept)
		r.Post("/feedback/reject", s.handleReject)
		r.Put("/mood", s.handleMood)
	})

	return r
}

// ListenAndServe blocks until the context is cancelled, then drains
// in-flight requests within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// Handler returns the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
