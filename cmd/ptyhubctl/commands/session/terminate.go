package session

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/cmd/ptyhubctl/cmdutil"
)

var terminateForce bool

var terminateCmd = &cobra.Command{
	Use:   "terminate <session-id>",
	Short: "Terminate a session",
	Long: `Terminate a session on the ptyhub server.

The session process is killed and the record is marked terminated. Attached
clients are notified. You will be prompted for confirmation unless --force
is specified.

Examples:
  # Terminate with confirmation
  ptyhubctl session terminate 2f1c9a

  # Terminate without confirmation
  ptyhubctl session terminate 2f1c9a --force`,
	Args: cobra.ExactArgs(1),
	RunE: runTerminate,
}

func init() {
	terminateCmd.Flags().BoolVarP(&terminateForce, "force", "f", false, "Skip confirmation prompt")
}

func runTerminate(cmd *cobra.Command, args []string) error {
	id := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("Terminate session", id, terminateForce, func() error {
		if err := client.TerminateSession(id); err != nil {
			return fmt.Errorf("failed to terminate session: %w", err)
		}
		cmdutil.PrintSuccess(fmt.Sprintf("Session '%s' terminated", id))
		return nil
	})
}
