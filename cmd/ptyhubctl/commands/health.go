package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/cmd/ptyhubctl/cmdutil"
	"github.com/ptyhub/ptyhub/internal/cli/output"
	"github.com/ptyhub/ptyhub/internal/cli/timeutil"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Long: `Check the health of the ptyhub server.

Exits non-zero when the server is unreachable or reports itself unhealthy,
so this can be used as a scripted probe.

Examples:
  # Check health
  ptyhubctl health

  # Check a remote server
  ptyhubctl health --server http://devbox:4220

  # Output as JSON
  ptyhubctl health -o json`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	resp, err := client.Health()
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		if err := output.PrintJSON(os.Stdout, resp); err != nil {
			return err
		}
	case output.FormatYAML:
		if err := output.PrintYAML(os.Stdout, resp); err != nil {
			return err
		}
	default:
		fmt.Printf("Status:    %s\n", resp.Status)
		fmt.Printf("Sessions:  %d\n", resp.Sessions)
		fmt.Printf("Identity:  %s\n", resp.Identity)
		if resp.Timestamp != "" {
			fmt.Printf("Checked:   %s\n", timeutil.FormatTime(resp.Timestamp))
		}
		if resp.Error != "" {
			fmt.Printf("Error:     %s\n", resp.Error)
		}
	}

	if !resp.Healthy() {
		return fmt.Errorf("server is unhealthy")
	}
	return nil
}
