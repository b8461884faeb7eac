package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/docops/internal/artifacts"
	"github.com/haasonsaas/docops/internal/audit"
	"github.com/haasonsaas/docops/internal/config"
	"github.com/haasonsaas/docops/internal/extraction"
	"github.com/haasonsaas/docops/internal/gateway"
	"github.com/haasonsaas/docops/internal/jobs"
	"github.com/haasonsaas/docops/internal/observability"
	"github.com/haasonsaas/docops/internal/policy"
	"github.com/haasonsaas/docops/internal/runtime"
	"github.com/haasonsaas/docops/internal/storage"
	"github.com/haasonsaas/docops/internal/tools"
)

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the jobs API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger := observability.NewLogger(cfg.LogLevel, os.Stderr)

			db, err := storage.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := storage.Migrate(ctx, db); err != nil {
				return err
			}

			recorder := audit.NewRecorder(audit.NewSQLiteStore(db), logger)
			jobService := jobs.NewService(jobs.NewSQLiteStore(db), recorder, logger)
			artifactStore := artifacts.NewSQLiteStore(db)

			var engine *extraction.Engine
			if cfg.OpenAIAPIKey != "" {
				engine = extraction.NewEngine(cfg.OpenAIAPIKey, cfg.OpenAIModel)
			} else {
				logger.Warn("OPENAI_API_KEY not set, using stub extraction")
			}
			registry := tools.BuildRegistry(engine, cfg.ExtractionTimeout)

			runner := runtime.NewRunner(jobService, artifactStore, recorder, registry, policy.Default(), logger)
			server := gateway.NewServer(jobService, artifactStore, recorder, runner, logger)

			return server.Start(ctx, cfg.HTTPAddr)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	return cmd
}

func buildMigrateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			db, err := storage.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}
