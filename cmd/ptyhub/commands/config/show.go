package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/internal/cli/output"
	"github.com/ptyhub/ptyhub/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current ptyhub configuration.

The output is the effective configuration after defaults and environment
overrides are applied. By default outputs YAML format.

Examples:
  # Show default config as YAML
  ptyhub config show

  # Show as JSON
  ptyhub config show --output json

  # Show specific config file
  ptyhub config show --config /etc/ptyhub/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Parse output format
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	// Print configuration
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
