package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var serverURL string

func buildJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage jobs on a running server",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the docops server")

	cmd.AddCommand(
		buildJobsSubmitCmd(),
		buildJobsListCmd(),
		buildJobsShowCmd(),
		buildJobsRunCmd(),
		buildJobsEventsCmd(),
		buildJobsArtifactsCmd(),
	)
	return cmd
}

func buildJobsSubmitCmd() *cobra.Command {
	var filePath string
	var text string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a document as a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := "document.txt"
			sourceText := text
			if filePath != "" {
				data, err := os.ReadFile(filePath)
				if err != nil {
					return fmt.Errorf("read document: %w", err)
				}
				sourceText = string(data)
				filename = filepath.Base(filePath)
			}
			if sourceText == "" {
				return fmt.Errorf("provide --file or --text")
			}

			var job map[string]any
			err := newAPIClient(serverURL).postJSON(cmd.Context(), "/jobs", map[string]any{
				"filename":     filename,
				"content_type": "text/plain",
				"text":         sourceText,
			}, &job)
			if err != nil {
				return err
			}
			return printJSON(cmd, job)
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the document file")
	cmd.Flags().StringVarP(&text, "text", "t", "", "Inline document text")
	return cmd
}

func buildJobsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			err := newAPIClient(serverURL).getJSON(cmd.Context(), fmt.Sprintf("/jobs?limit=%d", limit), &out)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	return cmd
}

func buildJobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := newAPIClient(serverURL).getJSON(cmd.Context(), "/jobs/"+args[0], &out); err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func buildJobsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-id>",
		Short: "Run a job through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := newAPIClient(serverURL).postJSON(cmd.Context(), "/jobs/"+args[0]+"/run", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func buildJobsEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <job-id>",
		Short: "Show a job's audit timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := newAPIClient(serverURL).getJSON(cmd.Context(), "/jobs/"+args[0]+"/events", &out); err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func buildJobsArtifactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts <job-id>",
		Short: "Show a job's artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := newAPIClient(serverURL).getJSON(cmd.Context(), "/jobs/"+args[0]+"/artifacts", &out); err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
