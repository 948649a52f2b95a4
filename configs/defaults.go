package configs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()

	// Application defaults
	v.SetDefault("verbose", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("data_dir", dataDir)

	// Input defaults
	v.SetDefault("catalog.path", filepath.Join(dataDir, "tracks_db.csv"))
	v.SetDefault("history.path", filepath.Join(dataDir, "user_history.csv"))

	// Index defaults
	v.SetDefault("index.backend", IndexBackendFlat)
	v.SetDefault("index.milvus.uri", "http://localhost:19530")
	v.SetDefault("index.milvus.timeout", 30*time.Second)

	// Oracle defaults
	v.SetDefault("oracle.hidden_sizes", []int{64, 32})
	v.SetDefault("oracle.learn_rate", 1e-3)
	v.SetDefault("oracle.beta1", 0.9)
	v.SetDefault("oracle.beta2", 0.999)
	v.SetDefault("oracle.epsilon", 1e-8)
	v.SetDefault("oracle.seed", 1)

	// Ranking policy defaults (canonical 0.6/0.2/0.2 scheme)
	v.SetDefault("rerank.audio_weight", 0.6)
	v.SetDefault("rerank.year_weight", 0.2)
	v.SetDefault("rerank.pop_weight", 0.2)
	v.SetDefault("rerank.artist_bonus", 1.25)
	v.SetDefault("rerank.artist_cap", 2)
	v.SetDefault("rerank.wildcard_slots", 5)
	v.SetDefault("rerank.wildcard_min_sim", 0.3)
	v.SetDefault("rerank.wildcard_max_sim", 0.7)
	v.SetDefault("rerank.shuffle", true)

	// Session defaults
	v.SetDefault("session.list_size", 10)
	v.SetDefault("session.candidate_multiplier", 5)
	v.SetDefault("session.widen_factor", 4)
	v.SetDefault("session.window_size", 10)
	v.SetDefault("session.aggregation_mode", "avalanche")
	v.SetDefault("session.noise_sigma", 0.02)
	v.SetDefault("session.noise_enabled", true)

	// Store defaults
	v.SetDefault("store.path", filepath.Join(dataDir, "billie.db"))

	// Playlist service defaults
	v.SetDefault("playlist.timeout", 10*time.Second)
	v.SetDefault("playlist.retries", 2)

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}

// defaultDataDir returns the default data directory
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share", "billie")
}

// SetDefaults applies defaults to the global viper instance
func SetDefaults() {
	setDefaults(viper.GetViper())
}
