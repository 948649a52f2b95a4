// Package app wires the configured collaborators into a running engine:
// catalog, vector index, oracle, ranker, store, playlist client and the
// listener session.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bonfito/billie/configs"
	"github.com/bonfito/billie/internal/catalog"
	"github.com/bonfito/billie/internal/history"
	"github.com/bonfito/billie/internal/playlist"
	"github.com/bonfito/billie/internal/session"
	"github.com/bonfito/billie/internal/store"
	"github.com/bonfito/billie/pkg/oracle"
	"github.com/bonfito/billie/pkg/rerank"
	"github.com/bonfito/billie/pkg/vindex"
)

// App holds the application lifecycle: shared collaborators plus the
// single listener session this process serves.
type App struct {
	Config  *configs.Config
	Logger  *zap.Logger
	Catalog *catalog.Catalog
	Index   vindex.Index
	Oracle  *oracle.Oracle
	Store   *store.Store
	Session *session.Session

	milvus *vindex.Milvus
}

// New loads the configuration, builds every collaborator and starts a
// session warm-started from the listening history.
func New(ctx context.Context) (*App, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := setupLogging(config)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	app := &App{Config: config, Logger: logger}
	if err := app.build(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cat, stats, err := catalog.LoadCSV(a.Config.Catalog.Path, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	a.Catalog = cat
	a.Logger.Info("catalog loaded",
		zap.String("path", a.Config.Catalog.Path),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)

	if err := a.buildIndex(ctx); err != nil {
		return err
	}

	if !a.Config.Store.Disabled {
		if err := os.MkdirAll(filepath.Dir(a.Config.Store.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.Open(a.Config.Store.Path, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		a.Store = st
	}

	if err := a.buildOracle(); err != nil {
		return err
	}

	warmStart, err := history.LoadCSV(a.Config.History.Path, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	var pl *playlist.Client
	if a.Config.Playlist.BaseURL != "" {
		pl = playlist.New(a.Config.Playlist, a.Logger)
	}

	sess, err := session.New(a.Config.Session, session.Deps{
		Catalog:  a.Catalog,
		Index:    a.Index,
		Oracle:   a.Oracle,
		Ranker:   rerank.New(a.Config.Rerank),
		Store:    a.Store,
		Playlist: pl,
		Logger:   a.Logger,
	}, warmStart)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	a.Session = sess
	return nil
}

func (a *App) buildIndex(ctx context.Context) error {
	entries := a.Catalog.IndexEntries()

	switch a.Config.Index.Backend {
	case configs.IndexBackendFlat:
		idx, err := vindex.NewFlat(entries)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
		a.Index = idx

	case configs.IndexBackendMilvus:
		m, err := vindex.NewMilvus(ctx, a.Config.Index.Milvus)
		if err != nil {
			return fmt.Errorf("failed to connect to milvus: %w", err)
		}
		if err := m.Insert(ctx, entries); err != nil {
			m.Close()
			return fmt.Errorf("failed to sync catalog to milvus: %w", err)
		}
		a.milvus = m
		a.Index = m

	default:
		return fmt.Errorf("unknown index backend %q", a.Config.Index.Backend)
	}

	a.Logger.Info("vector index ready",
		zap.String("backend", a.Config.Index.Backend),
		zap.Int("entries", len(entries)),
	)
	return nil
}

// buildOracle restores the persisted predictor when a state blob exists,
// otherwise starts a fresh untrained one.
func (a *App) buildOracle() error {
	if a.Store != nil {
		blob, err := a.Store.LoadOracleState()
		if err != nil {
			return fmt.Errorf("failed to read oracle state: %w", err)
		}
		if blob != nil {
			o, err := oracle.DecodeState(blob)
			if err != nil {
				a.Logger.Warn("persisted oracle state unreadable, starting fresh", zap.Error(err))
			} else {
				a.Oracle = o
				a.Logger.Info("oracle state restored", zap.Int("blobBytes", len(blob)))
				return nil
			}
		}
	}
	a.Oracle = oracle.New(a.Config.Oracle)
	return nil
}

// SaveOracle persists the current predictor weights. A no-op without a
// store.
func (a *App) SaveOracle() error {
	if a.Store == nil {
		return nil
	}
	blob, err := a.Oracle.EncodeState()
	if err != nil {
		return fmt.Errorf("failed to encode oracle state: %w", err)
	}
	if err := a.Store.SaveOracleState(blob); err != nil {
		return err
	}
	a.Logger.Debug("oracle state saved", zap.Int("blobBytes", len(blob)))
	return nil
}

// Close releases every open resource. Safe on a partially built app.
func (a *App) Close() {
	if a.milvus != nil {
		if err := a.milvus.Close(); err != nil {
			a.Logger.Warn("failed to close milvus connection", zap.Error(err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// setupLogging builds the process logger from verbosity and level settings
func setupLogging(config *configs.Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(config.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
	}
	if config.Verbose && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	if config.Verbose {
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
