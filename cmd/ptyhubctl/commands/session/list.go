package session

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/cmd/ptyhubctl/cmdutil"
	"github.com/ptyhub/ptyhub/internal/cli/timeutil"
	"github.com/ptyhub/ptyhub/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Long: `List all sessions on the ptyhub server.

Examples:
  # List sessions as table
  ptyhubctl session list

  # List as JSON
  ptyhubctl session list -o json`,
	RunE: runList,
}

// SessionList is a list of sessions for table rendering.
type SessionList []apiclient.Session

// Headers implements TableRenderer.
func (sl SessionList) Headers() []string {
	return []string{"ID", "NAME", "STATUS", "SHELL", "SIZE", "ATTACHABLE", "LAST ACCESSED"}
}

// Rows implements TableRenderer.
func (sl SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.ID,
			s.Name,
			s.Status,
			s.Shell,
			fmt.Sprintf("%dx%d", s.Cols, s.Rows),
			cmdutil.BoolToYesNo(s.Attachable),
			s.LastAccessedAt.Local().Format(timeutil.LocalTimeFormat),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	sessions, err := client.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, sessions, len(sessions) == 0, "No sessions found.", SessionList(sessions))
}
