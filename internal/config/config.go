// Package config resolves runtime settings from .env, YAML and the
// environment, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the YAML file read when no path is given.
const DefaultPath = "configs/default.yaml"

// Config is the resolved configuration shared by the binaries.
type Config struct {
	Port        string
	DatabaseURL string
	FrontendURL string

	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogFormat string

	GCSBucket      string
	UploadDir      string
	MaxUploadBytes int64

	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string

	RedisURL string

	KafkaBrokers       []string
	KafkaActivityTopic string

	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string

	NotionToken    string
	NotionLedgerDB string

	JobWorkers    int
	JobMaxRetries int
}

// fileConfig mirrors configs/default.yaml.
type fileConfig struct {
	Server struct {
		Port           string `yaml:"port"`
		FrontendURL    string `yaml:"frontend_url"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		TTL string `yaml:"ttl"`
	} `yaml:"auth"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Storage struct {
		Bucket    string `yaml:"bucket"`
		UploadDir string `yaml:"upload_dir"`
	} `yaml:"storage"`
	Gemini struct {
		Model          string `yaml:"model"`
		EmbeddingModel string `yaml:"embedding_model"`
	} `yaml:"gemini"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		ActivityTopic string   `yaml:"activity_topic"`
	} `yaml:"kafka"`
	BigQuery struct {
		Project string `yaml:"project"`
		Dataset string `yaml:"dataset"`
		Table   string `yaml:"table"`
	} `yaml:"bigquery"`
	Jobs struct {
		Workers    int `yaml:"workers"`
		MaxRetries int `yaml:"max_retries"`
	} `yaml:"jobs"`
}

func defaults() Config {
	return Config{
		Port:               "8080",
		FrontendURL:        "*",
		JWTTTL:             7 * 24 * time.Hour,
		LogLevel:           "info",
		LogFormat:          "console",
		UploadDir:          "uploads",
		MaxUploadBytes:     10 << 20,
		GeminiModel:        "gemini-2.5-flash",
		EmbeddingModel:     "text-embedding-004",
		KafkaActivityTopic: "ministry.activity",
		BigQueryDataset:    "ministry",
		BigQueryTable:      "ledger_entries",
		JobWorkers:         5,
		JobMaxRetries:      3,
	}
}

// Load resolves configuration. A missing .env or YAML file is not an error.
// DATABASE_URL must be set by one of the sources.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("Load: DATABASE_URL is required")
	}
	return cfg, nil
}

// LoadOptionalDB is Load without the DATABASE_URL requirement, for tools
// that never touch Postgres.
func LoadOptionalDB(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("LoadOptionalDB: reading .env: %w", err)
	}
	return load(path)
}

func load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		path = DefaultPath
	}
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("applyFile: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("applyFile: parsing %s: %w", path, err)
	}

	setString(&c.Port, f.Server.Port)
	setString(&c.FrontendURL, f.Server.FrontendURL)
	if f.Server.MaxUploadBytes > 0 {
		c.MaxUploadBytes = f.Server.MaxUploadBytes
	}
	setString(&c.DatabaseURL, f.Database.URL)
	if f.Auth.TTL != "" {
		ttl, err := time.ParseDuration(f.Auth.TTL)
		if err != nil {
			return fmt.Errorf("applyFile: auth.ttl: %w", err)
		}
		c.JWTTTL = ttl
	}
	setString(&c.LogLevel, f.Log.Level)
	setString(&c.LogFormat, f.Log.Format)
	setString(&c.GCSBucket, f.Storage.Bucket)
	setString(&c.UploadDir, f.Storage.UploadDir)
	setString(&c.GeminiModel, f.Gemini.Model)
	setString(&c.EmbeddingModel, f.Gemini.EmbeddingModel)
	setString(&c.RedisURL, f.Redis.URL)
	if len(f.Kafka.Brokers) > 0 {
		c.KafkaBrokers = f.Kafka.Brokers
	}
	setString(&c.KafkaActivityTopic, f.Kafka.ActivityTopic)
	setString(&c.BigQueryProject, f.BigQuery.Project)
	setString(&c.BigQueryDataset, f.BigQuery.Dataset)
	setString(&c.BigQueryTable, f.BigQuery.Table)
	if f.Jobs.Workers > 0 {
		c.JobWorkers = f.Jobs.Workers
	}
	if f.Jobs.MaxRetries > 0 {
		c.JobMaxRetries = f.Jobs.MaxRetries
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = envOrDefault("PORT", c.Port)
	c.DatabaseURL = envOrDefault("DATABASE_URL", c.DatabaseURL)
	c.FrontendURL = envOrDefault("FRONTEND_URL", c.FrontendURL)
	c.JWTSecret = envOrDefault("JWT_SECRET_KEY", c.JWTSecret)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("LOG_FORMAT", c.LogFormat)
	c.GCSBucket = envOrDefault("GCS_BUCKET", c.GCSBucket)
	c.UploadDir = envOrDefault("UPLOAD_DIR", c.UploadDir)
	c.GeminiAPIKey = envOrDefault("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = envOrDefault("GEMINI_MODEL", c.GeminiModel)
	c.EmbeddingModel = envOrDefault("EMBEDDING_MODEL", c.EmbeddingModel)
	c.RedisURL = envOrDefault("REDIS_URL", c.RedisURL)
	c.KafkaActivityTopic = envOrDefault("KAFKA_ACTIVITY_TOPIC", c.KafkaActivityTopic)
	c.BigQueryProject = envOrDefault("BIGQUERY_PROJECT", c.BigQueryProject)
	c.BigQueryDataset = envOrDefault("BIGQUERY_DATASET", c.BigQueryDataset)
	c.BigQueryTable = envOrDefault("BIGQUERY_TABLE", c.BigQueryTable)
	c.NotionToken = envOrDefault("NOTION_TOKEN", c.NotionToken)
	c.NotionLedgerDB = envOrDefault("NOTION_LEDGER_DB", c.NotionLedgerDB)

	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		c.KafkaBrokers = splitList(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("JWT_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("applyEnv: JWT_TTL: %w", err)
		}
		c.JWTTTL = ttl
	}

	var err error
	if c.MaxUploadBytes, err = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes); err != nil {
		return err
	}
	workers, err := envInt64("JOB_WORKERS", int64(c.JobWorkers))
	if err != nil {
		return err
	}
	c.JobWorkers = int(workers)
	retries, err := envInt64("JOB_MAX_RETRIES", int64(c.JobMaxRetries))
	if err != nil {
		return err
	}
	c.JobMaxRetries = int(retries)
	return nil
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("validate: unknown log format %q", c.LogFormat)
	}
	if c.JWTTTL <= 0 {
		return errors.New("validate: JWT TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("validate: max upload bytes must be positive")
	}
	if c.JobWorkers <= 0 {
		return errors.New("validate: job workers must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("envInt64: %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
