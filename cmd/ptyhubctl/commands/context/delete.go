package context

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/cmd/ptyhubctl/cmdutil"
	"github.com/ptyhub/ptyhub/internal/cli/credentials"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Long: `Delete a server context.

This removes the saved server URL and token for the context.

Examples:
  # Delete context named "staging"
  ptyhubctl context delete staging

  # Delete without confirmation
  ptyhubctl context delete staging --force`,
	Args: cobra.ExactArgs(1),
	RunE: runContextDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation")
}

func runContextDelete(cmd *cobra.Command, args []string) error {
	contextName := args[0]

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	if _, err = store.GetContext(contextName); err != nil {
		if err == credentials.ErrContextNotFound {
			return fmt.Errorf("context '%s' not found", contextName)
		}
		return fmt.Errorf("failed to get context: %w", err)
	}

	return cmdutil.RunDeleteWithConfirmation("Delete context", contextName, deleteForce, func() error {
		if err := store.DeleteContext(contextName); err != nil {
			return err
		}
		cmdutil.PrintSuccess(fmt.Sprintf("Context '%s' deleted", contextName))
		return nil
	})
}
