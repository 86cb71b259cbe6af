package context

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/internal/cli/credentials"
)

var (
	setServer   string
	setToken    string
	setUsername string
)

var setCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a context",
	Long: `Create or update a server connection context.

The first context created becomes the current one automatically. The token
is only needed when the server runs with authentication enabled.

Examples:
  # Local server without auth
  ptyhubctl context set local --server http://localhost:4220

  # Remote server with a token
  ptyhubctl context set devbox --server http://devbox:4220 --token eyJhb... --user alice`,
	Args: cobra.ExactArgs(1),
	RunE: runContextSet,
}

func init() {
	setCmd.Flags().StringVar(&setServer, "server", "", "Server URL (required for new contexts)")
	setCmd.Flags().StringVar(&setToken, "token", "", "Bearer token for authenticated servers")
	setCmd.Flags().StringVar(&setUsername, "user", "", "Username shown in context listings")
}

func runContextSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	// Start from the existing context so partial updates work
	ctx, err := store.GetContext(name)
	if err != nil {
		ctx = &credentials.Context{}
	}

	if setServer != "" {
		ctx.ServerURL = setServer
	}
	if setToken != "" {
		ctx.Token = setToken
	}
	if setUsername != "" {
		ctx.Username = setUsername
	}

	if ctx.ServerURL == "" {
		return fmt.Errorf("--server is required for new contexts")
	}

	if err := store.SetContext(name, ctx); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}

	fmt.Printf("Context '%s' saved (server: %s)\n", name, ctx.ServerURL)
	if store.GetCurrentContextName() == name {
		fmt.Println("This is the current context.")
	}
	return nil
}
