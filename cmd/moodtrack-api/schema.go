package main

import (
	"encoding/json"
	"fmt"

	"github.com/JonnyWalker81/moodtrack/internal/models"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the analysis report",
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := jsonschema.Reflector{
			DoNotReference: true,
		}
		schema := reflector.Reflect(&models.AnalysisReport{})

		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}
