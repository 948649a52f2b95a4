package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bonfito/billie/configs"
)

var (
	configFile  string
	verbose     bool
	logLevel    string
	dataDir     string
	catalogPath string
	historyPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "billie",
	Short: "Online-learning music recommendation engine",
	Long: `Billie recommends the next songs to play and learns the listener's
taste as it goes.

An online neural predictor maps the listener's aggregated context vector to
the audio profile of the song they most likely want next; a vector index
retrieves catalog candidates near that profile and a re-ranking pass adds
recency, popularity and diversity structure to the final list. Every
accepted song is a training example, so the engine sharpens within a single
session without any offline training step.

Key features:
- Per-song feedback loop (accept trains the predictor, reject blacklists)
- Warm start from a listening history export
- Exact in-process retrieval or a Milvus HNSW backend
- Wildcard slots for controlled exploration outside the mood basin
- Durable blacklist and predictor state across runs`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/billie/billie.yaml)")

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"data directory (default is $HOME/.local/share/billie)")

	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog-path", "",
		"catalog CSV (default is <data-dir>/tracks_db.csv)")

	rootCmd.PersistentFlags().StringVar(&historyPath, "history-path", "",
		"listening history CSV (optional; missing file starts cold)")

	// Logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	// Local secrets (playlist service token) live in .env when present
	_ = godotenv.Load()

	if configFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory and /etc
		viper.AddConfigPath(home)
		viper.AddConfigPath(filepath.Join(home, ".config", "billie"))
		viper.AddConfigPath("/etc/billie")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("billie")
		viper.SetConfigType("yaml")
	}

	// Environment variable support
	viper.SetEnvPrefix("BILLIE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// Set default values
	configs.SetDefaults()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	// Path flags override the config only when actually given; an empty
	// flag default must not shadow the configured paths.
	if dataDir != "" {
		viper.Set("data_dir", dataDir)
	}
	if catalogPath != "" {
		viper.Set("catalog.path", catalogPath)
	}
	if historyPath != "" {
		viper.Set("history.path", historyPath)
	}

	// Bind all flags to viper
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds each cobra flag to its associated viper configuration
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variable name
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}

		// Bind the flag to viper
		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}

		// Bind to environment variable
		if err := v.BindEnv(f.Name, "BILLIE_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// GetConfig returns the current viper instance
func GetConfig() *viper.Viper {
	return viper.GetViper()
}
