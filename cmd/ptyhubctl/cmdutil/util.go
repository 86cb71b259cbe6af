// Package cmdutil provides shared utilities for ptyhubctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/ptyhub/ptyhub/internal/cli/credentials"
	"github.com/ptyhub/ptyhub/internal/cli/output"
	"github.com/ptyhub/ptyhub/internal/cli/prompt"
	"github.com/ptyhub/ptyhub/pkg/apiclient"
)

// DefaultServerURL is used when no context is configured and no --server
// flag is given. The hub listens on 4220 out of the box.
const DefaultServerURL = "http://localhost:4220"

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
	NoColor   bool
	Verbose   bool
}

// GetClient returns an API client configured from the current context.
// It uses the --server and --token flags if provided, otherwise falls back
// to the stored context, and finally to the local default. A token is only
// required when the server runs with authentication enabled, so a missing
// token is not an error here.
func GetClient() (*apiclient.Client, error) {
	url := Flags.ServerURL
	tok := Flags.Token

	if url == "" || tok == "" {
		store, err := credentials.NewStore()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize context store: %w", err)
		}

		if ctx, err := store.GetCurrentContext(); err == nil {
			if url == "" {
				url = ctx.ServerURL
			}
			if tok == "" {
				tok = ctx.Token
			}
		}
	}

	if url == "" {
		url = DefaultServerURL
	}

	client := apiclient.New(url)
	if tok != "" {
		client.SetToken(tok)
	}
	return client, nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is true) and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("%s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	return deleteFn()
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
// Useful for table display where empty fields should show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
