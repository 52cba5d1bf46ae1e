package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/dvloznov/ministry-backoffice/internal/config"
	"github.com/dvloznov/ministry-backoffice/internal/infra/postgres"
	"github.com/dvloznov/ministry-backoffice/internal/logger"
)

func main() {
	var (
		configPath    = flag.String("config", config.DefaultPath, "Path to the YAML config file")
		migrationsDir = flag.String("migrations", "migrations/postgres", "Path to migrations directory")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name recorded in schema_migrations")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	migrations, err := postgres.ReadMigrations(resolveDir(*migrationsDir), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	applied, err := store.Migrate(ctx, migrations, *appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Int("applied", applied).Msg("Migration failed")
	}
	if applied == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}
	log.Info().Int("applied", applied).Msg("Migrations applied")
}

// resolveDir also tries the path relative to the repository root so the
// binary works when run from cmd/migrate.
func resolveDir(dir string) string {
	if _, err := os.Stat(dir); err == nil || filepath.IsAbs(dir) {
		return dir
	}
	parent := filepath.Join("..", "..", dir)
	if _, err := os.Stat(parent); err == nil {
		return parent
	}
	return dir
}
