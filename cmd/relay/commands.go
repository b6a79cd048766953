package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngpt-dev/relay/internal/config"
)

// buildValidateCmd creates the "validate" command for checking a config
// file's syntax, unknown fields, and cross-field invariants (default
// provider membership, fallback chain membership, non-negative execution
// limits, sampling rate range) without starting the gateway.
func buildValidateCmd() *cobra.Command {
	var (
		configPath string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a relay config file",
		Long: `Load and validate a relay.yaml config file.

Checks performed:
- YAML syntax and unknown top-level fields
- llm.default_provider and llm.fallback_chain reference configured providers
- tools.execution limits are non-negative
- observability.tracing.sampling_rate is within [0,1]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				if jsonOutput {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(map[string]string{"status": "invalid", "error": err.Error()})
				}
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"status": "valid", "config": cfg})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", configPath)
			fmt.Fprintf(cmd.OutOrStdout(), "  default provider: %s\n", cfg.LLM.DefaultProvider)
			fmt.Fprintf(cmd.OutOrStdout(), "  fallback chain:   %v\n", cfg.LLM.FallbackChain)
			fmt.Fprintf(cmd.OutOrStdout(), "  max iterations:   %d\n", cfg.Tools.Execution.MaxIterations)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "relay.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

// buildSchemaCmd creates the "schema" command for printing the config's
// JSON Schema, for editor autocompletion and CI schema-diffing.
func buildSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the relay config JSON Schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.JSONSchema()
			if err != nil {
				return fmt.Errorf("generate schema: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
			return err
		},
	}

	return cmd
}
