// Package context implements connection context subcommands.
package context

import (
	"github.com/spf13/cobra"
)

// Cmd is the context subcommand.
var Cmd = &cobra.Command{
	Use:   "context",
	Short: "Manage connection contexts",
	Long: `Manage saved server connection contexts.

A context stores a server URL and an optional bearer token under a name,
so you can switch between multiple ptyhub servers.

Subcommands:
  set      Create or update a context
  list     List all configured contexts
  current  Show current context
  use      Switch to a different context
  rename   Rename a context
  delete   Delete a context`,
}

func init() {
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(currentCmd)
	Cmd.AddCommand(useCmd)
	Cmd.AddCommand(renameCmd)
	Cmd.AddCommand(deleteCmd)
}
