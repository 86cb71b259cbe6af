package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the ptyhub configuration file.

Loads the configuration, applies defaults and environment overrides, and
runs the same validation used at server startup.

Examples:
  # Validate default config
  ptyhub config validate

  # Validate specific config file
  ptyhub config validate --config /etc/ptyhub/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Server:   %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Database: %s\n", cfg.Persistence.Database.Type)
	fmt.Printf("  Auth:     %v\n", cfg.Auth.Enabled)
	return nil
}
