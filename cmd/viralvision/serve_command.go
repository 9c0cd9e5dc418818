package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"viralvision/internal/acquire"
	"viralvision/internal/analysis"
	"viralvision/internal/api"
	"viralvision/internal/config"
	"viralvision/internal/daemon"
	"viralvision/internal/logging"
	"viralvision/internal/queue"
	"viralvision/internal/services/ytdlp"
	"viralvision/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon: HTTP API plus the analysis pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(runCtx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	fetcher := ytdlp.New(ytdlp.Config{
		Binary:       cfg.Fetch.Binary,
		Format:       cfg.Fetch.Format,
		OutputDir:    cfg.Paths.UploadDir,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		AllowedHosts: cfg.Fetch.AllowedHosts,
	}, logger)

	manager := workflow.NewManager(cfg, store, logger)
	manager.ConfigureStages(buildStages(cfg, store, fetcher, logger))

	svc := api.NewService(cfg, store, manager, fetcher, logger)
	d, err := daemon.New(cfg, store, logger, manager, svc)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if !cfg.AnalysisReady() {
		logging.WarnWithContext(logger, "analysis api key missing; jobs will fail at the analysis stage", "analysis_unconfigured",
			logging.String(logging.FieldErrorHint, "set analysis.api_key in the config file"),
		)
	}

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("viralvision shutting down")
	d.Stop()
	return nil
}

func buildStages(cfg *config.Config, store *queue.Store, fetcher *ytdlp.Fetcher, logger *slog.Logger) workflow.StageSet {
	acquirer := acquire.New(cfg, fetcher, logger)
	invoker := analysis.NewInvoker(cfg, analysis.NewClient(cfg), logger)
	return workflow.StageSet{
		Acquire: acquire.NewStage(acquirer, store, logger, fetcher.Binary()),
		Charge:  workflow.NewChargeStage(store, logger),
		Analyze: analysis.NewStage(invoker, nil, cfg.Analysis.APIKey),
	}
}
