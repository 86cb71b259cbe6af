package context

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/cmd/ptyhubctl/cmdutil"
	"github.com/ptyhub/ptyhub/internal/cli/credentials"
	"github.com/ptyhub/ptyhub/internal/cli/output"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context",
	Long: `Display information about the current active context.

Examples:
  # Show current context
  ptyhubctl context current

  # Show as JSON
  ptyhubctl context current --output json`,
	RunE: runContextCurrent,
}

func runContextCurrent(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		return fmt.Errorf("no current context set\n\n" +
			"Create one first:\n" +
			"  ptyhubctl context set local --server http://localhost:4220")
	}

	ctx, err := store.GetContext(contextName)
	if err != nil {
		return fmt.Errorf("failed to get context: %w", err)
	}

	info := ContextInfo{
		Name:      contextName,
		Current:   true,
		ServerURL: ctx.ServerURL,
		Username:  ctx.Username,
		HasToken:  ctx.HasToken(),
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, info)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, info)
	default:
		fmt.Printf("Current context: %s\n", contextName)
		fmt.Printf("  Server:    %s\n", ctx.ServerURL)
		if ctx.Username != "" {
			fmt.Printf("  User:      %s\n", ctx.Username)
		}
		fmt.Printf("  Token:     %s\n", cmdutil.BoolToYesNo(ctx.HasToken()))
	}

	return nil
}
