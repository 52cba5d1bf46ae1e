package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/config"
	"github.com/dvloznov/ministry-backoffice/internal/infra/postgres"
	"github.com/dvloznov/ministry-backoffice/internal/jobs"
	"github.com/dvloznov/ministry-backoffice/internal/jobs/inmemory"
	"github.com/dvloznov/ministry-backoffice/internal/logger"
	"github.com/dvloznov/ministry-backoffice/internal/ocr"
	"github.com/dvloznov/ministry-backoffice/internal/receipts"
)

// The worker indexes every receipt that has no embedding yet, for example
// after the embedding model was unavailable, then exits.
func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config file")
	timeout := flag.Duration("timeout", 30*time.Minute, "Give up after this long")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("Error: GEMINI_API_KEY is required to compute embeddings")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	// Cancel on interrupt
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Interrupted, stopping worker")
		cancel()
	}()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	gemini, err := ocr.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(100, jobStore, log).WithLimits(cfg.JobWorkers, cfg.JobMaxRetries)

	// Backfill only embeds; images, extraction and stock are not touched.
	svc := receipts.NewService(store, nil, gemini, gemini, nil, queue, audit.NewService(store, log), log)

	if err := queue.Start(ctx, svc.Index); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	queued, err := svc.Backfill(ctx)
	if err != nil {
		log.Error().Err(err).Int("queued", queued).Msg("Backfill stopped early")
	}
	log.Info().Int("queued", queued).Msg("Waiting for index jobs")

	waitForDrain(ctx, jobStore)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	failed, _ := jobStore.ListJobs(context.Background(), jobs.JobFilter{Status: jobs.JobStatusFailed})
	fmt.Printf("Indexed %d of %d receipts.\n", queued-len(failed), queued)
	if len(failed) > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}

// waitForDrain returns once no job is pending, running or awaiting retry,
// or when ctx ends.
func waitForDrain(ctx context.Context, store jobs.JobStore) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		open := 0
		for _, status := range []jobs.JobStatus{jobs.JobStatusPending, jobs.JobStatusRunning, jobs.JobStatusRetrying} {
			list, err := store.ListJobs(ctx, jobs.JobFilter{Status: status})
			if err != nil {
				return
			}
			open += len(list)
		}
		if open == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
