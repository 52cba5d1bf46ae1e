package postgres

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_init.sql", true, 1, "init"},
		{"0012_add_recipe_images.sql", true, 12, "add_recipe_images"},
		{"001_short.sql", false, 0, ""},
		{"0001_missing_ext", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"init_0001.sql", false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := ParseMigrationFilename(tt.filename)
			if ok != tt.valid || version != tt.version || name != tt.name {
				t.Errorf("got (%d, %q, %v), want (%d, %q, %v)", version, name, ok, tt.version, tt.name, tt.valid)
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"0002_second.sql": "SELECT 2;",
		"0001_first.sql":  "SELECT 1;",
		"README.md":       "notes",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ReadMigrations(dir, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("ReadMigrations: %v", err)
	}
	if len(got) != 2 || got[0].Version != 1 || got[1].Name != "second" {
		t.Fatalf("migrations = %+v", got)
	}
	if got[0].Checksum == "" || got[0].Checksum == got[1].Checksum {
		t.Error("checksums should be set and differ by content")
	}

	again, _ := ReadMigrations(dir, zerolog.New(io.Discard))
	if again[0].Checksum != got[0].Checksum {
		t.Error("checksum should be stable")
	}
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0001_a.sql", "0001_b.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := ReadMigrations(dir, zerolog.New(io.Discard)); err == nil {
		t.Error("expected duplicate version error")
	}
}

func TestRepositoryMigrationsParse(t *testing.T) {
	got, err := ReadMigrations(filepath.Join("..", "..", "..", "migrations", "postgres"), zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("ReadMigrations: %v", err)
	}
	if len(got) == 0 || got[0].Version != 1 {
		t.Errorf("migrations = %+v", got)
	}
}

func TestCheckApplied(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Filename: "0001_init.sql", Checksum: "aaa"},
		{Version: 2, Filename: "0002_next.sql", Checksum: "bbb"},
	}
	tests := []struct {
		name    string
		applied map[int]string
		wantErr bool
	}{
		{"nothing applied", map[int]string{}, false},
		{"matching checksum", map[int]string{1: "aaa"}, false},
		{"edited after apply", map[int]string{1: "aaa", 2: "zzz"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckApplied(migrations, tt.applied)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckApplied() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrChecksumMismatch) {
				t.Errorf("error = %v, want ErrChecksumMismatch", err)
			}
		})
	}
}
