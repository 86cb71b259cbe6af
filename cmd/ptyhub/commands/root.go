// Package commands implements the CLI commands for ptyhub server management.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/ptyhub/ptyhub/cmd/ptyhub/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ptyhub",
	Short: "ptyhub - Remote terminal session hub",
	Long: `ptyhub is a terminal session hub. It keeps shell sessions alive in
pseudo-terminals on the host and lets browser clients attach to them over
WebSocket, with scrollback, categories and hook notifications persisted
across reconnects.

Use "ptyhub [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion records the build-time version information.
func SetVersion(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/ptyhub/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configcmd.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
