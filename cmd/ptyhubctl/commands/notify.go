package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/cmd/ptyhubctl/cmdutil"
)

var notifyCmd = &cobra.Command{
	Use:   "notify <session-id> <kind>",
	Short: "Post a hook notification for a session",
	Long: `Post a hook notification for a session.

Kind is one of: activity, silence, bell, done.

This is intended to be called from shell hooks and terminal multiplexer
triggers inside a session, so clients watching the session list see a
badge even while detached. Local (loopback) callers never need a token.

Examples:
  # Mark a long-running command as finished
  ptyhubctl notify 2f1c9a done

  # Ring the bell badge
  ptyhubctl notify 2f1c9a bell`,
	Args: cobra.ExactArgs(2),
	RunE: runNotify,
}

func runNotify(cmd *cobra.Command, args []string) error {
	sessionID, kind := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if err := client.Notify(sessionID, kind); err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Notification '%s' posted for session %s", kind, sessionID))
	return nil
}
