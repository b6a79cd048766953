// Package main provides the relay CLI, a thin operator surface around the
// gateway's configuration layer: validating a config file, printing its
// effective (defaulted) form, and emitting the config's JSON Schema for
// editor tooling.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relay",
		Short: "relay - LLM gateway execution engine",
		Long: `relay wires canonical messages, tool dispatch, and provider adapters
into a single tool-calling execution loop across Anthropic, OpenAI, Azure
OpenAI, Gemini, Bedrock, and OpenRouter.

This binary exposes only the operator-facing config surface; the engine
itself is consumed as a library by the gateway process that embeds it.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildValidateCmd(),
		buildSchemaCmd(),
	)

	return rootCmd
}
