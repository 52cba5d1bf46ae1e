package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ministry")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.JWTTTL != 7*24*time.Hour || cfg.LogFormat != "console" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.MaxUploadBytes != 10<<20 || cfg.JobWorkers != 5 {
		t.Errorf("limits = %d, %d", cfg.MaxUploadBytes, cfg.JobWorkers)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: "9000"
  frontend_url: https://office.example.org
database:
  url: postgres://file/db
auth:
  ttl: 2h
log:
  format: json
kafka:
  brokers: [k1:9092]
`)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "9100")
	t.Setenv("KAFKA_BROKERS", "a:1, b:2,")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Port != "9100" {
		t.Errorf("Port = %q, env should win", cfg.Port)
	}
	if cfg.FrontendURL != "https://office.example.org" || cfg.LogFormat != "json" || cfg.JWTTTL != 2*time.Hour {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:2" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.MaxUploadBytes != 2048 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad yaml", file: "server: [", env: nil},
		{name: "bad ttl", file: "auth:\n  ttl: soon\n", env: nil},
		{name: "bad log format", file: "log:\n  format: xml\n", env: nil},
		{name: "bad env int", file: "", env: map[string]string{"MAX_UPLOAD_BYTES": "lots"}},
		{name: "bad env ttl", file: "", env: map[string]string{"JWT_TTL": "-1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/ministry")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(writeFile(t, tt.file)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadOptionalDB(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadOptionalDB(filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("LoadOptionalDB: %v", err)
	}
}
