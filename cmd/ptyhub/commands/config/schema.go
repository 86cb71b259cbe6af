package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/pkg/config"
)

var schemaOutputFile string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for the configuration",
	Long: `Generate a JSON schema describing the ptyhub configuration file.

The schema can be referenced from editors for completion and validation
of config.yaml.

Examples:
  # Print schema to stdout
  ptyhub config schema

  # Write schema to a file
  ptyhub config schema --output-file ptyhub.schema.json`,
	RunE: runConfigSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaOutputFile, "output-file", "", "Write schema to file instead of stdout")
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "ptyhub configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if schemaOutputFile != "" {
		if err := os.WriteFile(schemaOutputFile, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		fmt.Printf("Schema written to: %s\n", schemaOutputFile)
		return nil
	}

	fmt.Println(string(data))
	return nil
}
