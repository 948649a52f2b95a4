package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bonfito/billie/configs"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and display the effective configuration",
	Long: `Load the configuration from every source (defaults, config file,
environment, flags), validate it and print the effective values as YAML.

Useful to verify that a config file parses the way you expect before
serving with it.

Examples:
  # Show the effective configuration
  billie config

  # Verify a specific file
  billie --config /path/to/billie.yaml config`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("# config file: %s\n", used)
	} else {
		fmt.Println("# no config file found, using defaults")
	}

	if err := configs.ValidateConfig(config); err != nil {
		fmt.Printf("# INVALID: %v\n", err)
	}

	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}
