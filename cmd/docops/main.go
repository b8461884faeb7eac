// Package main provides the docops CLI: a document-processing job service
// with an HTTP API and management subcommands.
//
// Start the server:
//
//	docops serve
//
// Apply the database schema:
//
//	docops migrate
//
// Submit and run a job against a running server:
//
//	docops jobs submit --file invoice.txt
//	docops jobs run <job-id>
//
// Configuration comes from the environment (DATABASE_URL, HTTP_ADDR,
// LOG_LEVEL, OPENAI_API_KEY, ...) with DOCOPS_CONFIG pointing at an optional
// YAML base file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
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

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "docops",
		Short:        "docops - document processing job service",
		Long:         "docops runs uploaded documents through an extract, verify, act pipeline\nwith an auditable job lifecycle.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
		buildJobsCmd(),
		buildVersionCmd(),
	)

	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docops %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
