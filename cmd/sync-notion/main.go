package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/config"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/infra/postgres"
	"github.com/dvloznov/ministry-backoffice/internal/logger"
	"github.com/dvloznov/ministry-backoffice/internal/notionsync"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config file")
	startStr := flag.String("start", "", "First entry date, YYYY-MM-DD (required)")
	endStr := flag.String("end", "", "Last entry date, YYYY-MM-DD (required)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	if *startStr == "" || *endStr == "" {
		log.Fatal().Msg("Error: --start and --end are required")
	}
	rng, err := domain.ParseDateRange(*startStr, *endStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid date range")
	}
	if cfg.NotionToken == "" || cfg.NotionLedgerDB == "" {
		log.Fatal().Msg("Error: NOTION_TOKEN and NOTION_LEDGER_DB must be configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().
		Str("start", *startStr).
		Str("end", *endStr).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	client := notionsync.NewNotionClient(cfg.NotionToken)
	res, err := notionsync.SyncLedger(ctx, store, client, cfg.NotionLedgerDB, rng, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	fmt.Printf("Notion sync finished: %d created, %d updated, %d archived, %d failed.\n",
		res.Created, res.Updated, res.Archived, res.Failed)
}
