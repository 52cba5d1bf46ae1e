package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/auth"
	"github.com/dvloznov/ministry-backoffice/internal/config"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	infraBQ "github.com/dvloznov/ministry-backoffice/internal/infra/bigquery"
	"github.com/dvloznov/ministry-backoffice/internal/infra/postgres"
	"github.com/dvloznov/ministry-backoffice/internal/logger"
	"github.com/dvloznov/ministry-backoffice/internal/pipeline"
	"github.com/dvloznov/ministry-backoffice/internal/users"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "seed-admin":
		runSeedAdmin()
	case "export-bigquery":
		runExportBigQuery()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ministry back-office CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  seed-admin       Create or promote the bootstrap admin account")
	fmt.Println("  export-bigquery  Replace a date window of the BigQuery ledger table")
	fmt.Println("  help             Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// setup loads configuration, builds the logger and opens the database.
func setup(configPath string) (*config.Config, zerolog.Logger, *postgres.Store, context.Context, context.CancelFunc) {
	cfg, err := config.Load(configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	ctx = logger.WithContext(ctx, log)

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	return cfg, log, store, ctx, cancel
}

func runSeedAdmin() {
	fs := flag.NewFlagSet("seed-admin", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "Path to YAML config file")
	name := fs.String("name", "Administrator", "Display name")
	email := fs.String("email", "", "Admin email (required)")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "Admin password (defaults to $ADMIN_PASSWORD)")
	fs.Parse(os.Args[2:])

	_, log, store, ctx, cancel := setup(*configPath)
	defer cancel()
	defer store.Close()

	if *email == "" || *password == "" {
		log.Fatal().Msg("Error: --email and --password are required")
	}

	recorder := audit.NewService(store, log)
	svc := users.NewService(store, auth.NewBcryptHasher(auth.DefaultBcryptCost), recorder, log)

	u, created, err := svc.SeedAdmin(ctx, *name, *email, *password)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding admin failed")
	}

	if created {
		fmt.Printf("Created admin %s (id %d)\n", u.Email, u.ID)
	} else {
		fmt.Printf("Promoted existing user %s (id %d) to admin\n", u.Email, u.ID)
	}
}

func runExportBigQuery() {
	fs := flag.NewFlagSet("export-bigquery", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "Path to YAML config file")
	start := fs.String("start", "", "First entry date to export, YYYY-MM-DD")
	end := fs.String("end", "", "Last entry date to export, YYYY-MM-DD")
	fs.Parse(os.Args[2:])

	cfg, log, store, ctx, cancel := setup(*configPath)
	defer cancel()
	defer store.Close()

	rng, err := domain.ParseDateRange(*start, *end)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid date range")
	}
	if cfg.BigQueryProject == "" {
		log.Fatal().Msg("Error: BIGQUERY_PROJECT is not configured")
	}

	exporter, err := infraBQ.NewLedgerExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery exporter")
	}
	defer exporter.Close()

	log.Info().
		Str("start", *start).
		Str("end", *end).
		Str("table", cfg.BigQueryDataset+"."+cfg.BigQueryTable).
		Msg("Starting ledger export")

	n, err := pipeline.ExportLedger(ctx, store, exporter, rng, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	// Streaming inserts can lag in query results; a short count is a warning.
	if count, err := exporter.CountRange(ctx, rng); err != nil {
		log.Warn().Err(err).Msg("Could not verify exported row count")
	} else if count != int64(n) {
		log.Warn().Int64("table_rows", count).Int("exported", n).Msg("Table row count differs from export")
	}

	fmt.Printf("Exported %d ledger entries.\n", n)
}
