package configs

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/bonfito/billie/internal/playlist"
	"github.com/bonfito/billie/internal/server"
	"github.com/bonfito/billie/internal/session"
	"github.com/bonfito/billie/pkg/oracle"
	"github.com/bonfito/billie/pkg/rerank"
	"github.com/bonfito/billie/pkg/vindex"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose  bool   `mapstructure:"verbose"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`

	// Catalog and history inputs
	Catalog CatalogConfig `mapstructure:"catalog"`
	History HistoryConfig `mapstructure:"history"`

	// Vector index backend
	Index IndexConfig `mapstructure:"index"`

	// Online predictor hyperparameters
	Oracle oracle.Config `mapstructure:"oracle"`

	// Ranking policy
	Rerank rerank.Config `mapstructure:"rerank"`

	// Per-session behavior
	Session session.Config `mapstructure:"session"`

	// Durable store (blacklist, oracle state, accepted log)
	Store StoreConfig `mapstructure:"store"`

	// External playlist service
	Playlist playlist.Config `mapstructure:"playlist"`

	// HTTP API
	Server server.Config `mapstructure:"server"`
}

// CatalogConfig locates the catalog snapshot
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig locates the listening history export
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// Index backend names
const (
	IndexBackendFlat   = "flat"
	IndexBackendMilvus = "milvus"
)

// IndexConfig selects and configures the vector index backend
type IndexConfig struct {
	Backend string              `mapstructure:"backend"`
	Milvus  vindex.MilvusConfig `mapstructure:"milvus"`
}

// StoreConfig configures the local persistence database
type StoreConfig struct {
	Path     string `mapstructure:"path"`
	Disabled bool   `mapstructure:"disabled"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path must be set")
	}

	switch config.Index.Backend {
	case IndexBackendFlat:
	case IndexBackendMilvus:
		if config.Index.Milvus.URI == "" {
			return fmt.Errorf("milvus backend requires index.milvus.uri")
		}
	default:
		return fmt.Errorf("unknown index backend %q", config.Index.Backend)
	}

	if config.Session.ListSize <= 0 {
		return fmt.Errorf("session list size must be positive")
	}

	if config.Session.NoiseSigma < 0 {
		return fmt.Errorf("noise sigma cannot be negative")
	}

	w := config.Rerank
	if w.AudioWeight < 0 || w.YearWeight < 0 || w.PopWeight < 0 {
		return fmt.Errorf("ranking weights cannot be negative")
	}
	if w.AudioWeight+w.YearWeight+w.PopWeight == 0 {
		return fmt.Errorf("ranking weights cannot all be zero")
	}

	if config.Server.Addr == "" {
		return fmt.Errorf("server address must be set")
	}

	return nil
}
