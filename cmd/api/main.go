package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/analytics"
	"github.com/dvloznov/ministry-backoffice/internal/api/handlers"
	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/auth"
	"github.com/dvloznov/ministry-backoffice/internal/config"
	"github.com/dvloznov/ministry-backoffice/internal/gcs"
	"github.com/dvloznov/ministry-backoffice/internal/gcsuploader"
	"github.com/dvloznov/ministry-backoffice/internal/infra/postgres"
	"github.com/dvloznov/ministry-backoffice/internal/inventory"
	"github.com/dvloznov/ministry-backoffice/internal/jobs/inmemory"
	"github.com/dvloznov/ministry-backoffice/internal/ledger"
	"github.com/dvloznov/ministry-backoffice/internal/logger"
	"github.com/dvloznov/ministry-backoffice/internal/ocr"
	"github.com/dvloznov/ministry-backoffice/internal/receipts"
	"github.com/dvloznov/ministry-backoffice/internal/recipes"
	"github.com/dvloznov/ministry-backoffice/internal/reimbursement"
	"github.com/dvloznov/ministry-backoffice/internal/users"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	// Audit trail: Postgres always, Kafka when brokers are configured.
	var sinks []audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafka := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaActivityTopic)
		defer kafka.Close()
		sinks = append(sinks, kafka)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaActivityTopic).Msg("Publishing activity to Kafka")
	}
	recorder := audit.NewService(store, log, sinks...)

	// Auth
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET_KEY is required")
	}
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token issuer")
	}
	lockout := lockoutStore(cfg, log)
	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)
	authSvc := auth.NewService(store, hasher, tokens, lockout, auth.DefaultLockoutPolicy, log)

	// Receipt images and OCR
	images := objectStore(ctx, cfg, log)
	extractor, embedder := geminiClients(ctx, cfg, log)

	// Background indexing
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(100, jobStore, log).WithLimits(cfg.JobWorkers, cfg.JobMaxRetries)

	inventorySvc := inventory.NewService(store, recorder, log)
	receiptSvc := receipts.NewService(store, images, extractor, embedder, inventorySvc, queue, recorder, log)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	if err := queue.Start(workerCtx, receiptSvc.Index); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	h := handlers.Handlers{
		Auth:           handlers.NewAuthHandler(authSvc, log),
		Users:          handlers.NewUsersHandler(users.NewService(store, hasher, recorder, log), log),
		Ledger:         handlers.NewLedgerHandler(ledger.NewService(store, store, recorder, log), log),
		Reimbursements: handlers.NewReimbursementsHandler(reimbursement.NewService(store, recorder, log), log),
		Analytics:      handlers.NewAnalyticsHandler(analytics.NewService(store, store), log),
		Activity:       handlers.NewActivityHandler(recorder, log),
		Receipts:       handlers.NewReceiptsHandler(receiptSvc, log),
		Inventory:      handlers.NewInventoryHandler(inventorySvc, log),
		Recipes:        handlers.NewRecipesHandler(recipes.NewService(store, images, recorder, log), log),
		Jobs:           handlers.NewJobsHandler(jobStore, log),
	}
	router := handlers.NewRouter(h, authSvc, handlers.RouterConfig{
		FrontendURL:    cfg.FrontendURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorkers()

	log.Info().Msg("Server exited")
}

func lockoutStore(cfg *config.Config, log zerolog.Logger) auth.LockoutStore {
	if cfg.RedisURL == "" {
		log.Warn().Msg("No REDIS_URL configured - login lockout is per instance")
		return auth.NewMemoryLockoutStore()
	}
	client, err := auth.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure Redis")
	}
	return auth.NewRedisLockoutStore(client)
}

func objectStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) gcs.ObjectStore {
	if cfg.GCSBucket == "" {
		log.Warn().Str("dir", cfg.UploadDir).Msg("No GCS bucket configured - storing images on local disk")
		dir, err := gcsuploader.NewDirStore(cfg.UploadDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare upload directory")
		}
		return dir
	}
	bucket, err := gcsuploader.NewBucketStore(ctx, cfg.GCSBucket)
	if err != nil {
		log.Fatal().Err(err).Str("bucket", cfg.GCSBucket).Msg("Failed to create GCS client")
	}
	return bucket
}

func geminiClients(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.Extractor, ocr.Embedder) {
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("No GEMINI_API_KEY configured - receipt OCR and search are disabled")
		return ocr.Unconfigured{}, ocr.Unconfigured{}
	}
	client, err := ocr.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	return client, client
}
