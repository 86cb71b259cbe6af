// Package commands implements the ptyhubctl CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/cmd/ptyhubctl/cmdutil"
	contextcmd "github.com/ptyhub/ptyhub/cmd/ptyhubctl/commands/context"
	sessioncmd "github.com/ptyhub/ptyhub/cmd/ptyhubctl/commands/session"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ptyhubctl",
	Short: "ptyhubctl - Control a ptyhub server",
	Long: `ptyhubctl talks to a running ptyhub server over its REST API.

It lists and terminates sessions, posts hook notifications, checks server
health and manages connection contexts for multiple servers.

Use "ptyhubctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
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
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.ServerURL, "server", "", "Server URL (overrides current context)")
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.Token, "token", "", "Bearer token (overrides current context)")
	rootCmd.PersistentFlags().StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&cmdutil.Flags.NoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&cmdutil.Flags.Verbose, "verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(sessioncmd.Cmd)
	rootCmd.AddCommand(contextcmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
