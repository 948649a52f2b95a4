package cmd

import (
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bonfito/billie/internal/app"
	"github.com/bonfito/billie/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recommendation session over HTTP",
	Long: `Serve the recommendation session as a JSON API.

The server owns one listener session for its lifetime. Recommendations,
feedback and mood overrides all act on that session, so the predictor keeps
learning across requests. Predictor weights are persisted on shutdown.

Endpoints:
  GET  /api/v1/health
  GET  /api/v1/session
  POST /api/v1/recommendations
  POST /api/v1/feedback/accept
  POST /api/v1/feedback/reject
  PUT  /api/v1/mood

Examples:
  billie serve
  billie serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.Config.Server, a.Session, a.Catalog, a.Oracle, a.Logger)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := a.SaveOracle(); err != nil {
		a.Logger.Error("failed to persist oracle state on shutdown", zap.Error(err))
		return err
	}
	return nil
}
