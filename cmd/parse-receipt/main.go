// Command parse-receipt runs receipt extraction on a local image and prints
// the JSON result. It does not touch the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/config"
	"github.com/dvloznov/ministry-backoffice/internal/gcs"
	"github.com/dvloznov/ministry-backoffice/internal/logger"
	"github.com/dvloznov/ministry-backoffice/internal/ocr"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config file")
	imagePath := flag.String("file", "", "Receipt image (png, jpg, jpeg or webp)")
	flag.Parse()

	cfg, err := config.LoadOptionalDB(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	if *imagePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}
	if _, err := gcs.ImageExt(*imagePath); err != nil {
		log.Fatal().Err(err).Str("file", *imagePath).Msg("Unsupported image")
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("Error: GEMINI_API_KEY is required")
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read image")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := ocr.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	extraction, err := client.Extract(ctx, data, gcs.ContentType(*imagePath))
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	out, err := json.MarshalIndent(extraction, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
	fmt.Println(string(out))
}
