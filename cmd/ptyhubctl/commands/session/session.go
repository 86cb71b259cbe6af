// Package session implements session management subcommands.
package session

import (
	"github.com/spf13/cobra"
)

// Cmd is the session subcommand.
var Cmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
	Long: `Inspect and manage sessions on a ptyhub server.

Subcommands:
  list       List all sessions
  terminate  Terminate a session`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(terminateCmd)
}
