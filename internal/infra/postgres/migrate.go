package postgres

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Migration is one numbered SQL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// ParseMigrationFilename splits "0001_name.sql" into version and name.
func ParseMigrationFilename(filename string) (int, string, bool) {
	m := migrationPattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return version, m[2], true
}

// ReadMigrations loads every well-named file in dir, sorted by version.
// Other files are skipped. Two files with the same version are an error.
func ReadMigrations(dir string, log zerolog.Logger) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ReadMigrations: %w", err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok := ParseMigrationFilename(entry.Name())
		if !ok {
			log.Warn().Str("file", entry.Name()).Msg("Skipping file with invalid migration name")
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("ReadMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("ReadMigrations: reading %s: %w", entry.Name(), err)
		}
		out = append(out, Migration{
			Version:  version,
			Name:     name,
			Filename: entry.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every migration not yet recorded in schema_migrations.
// Each file runs in its own transaction together with its bookkeeping row.
// Nothing runs when a recorded migration's file has changed since it ran.
func (s *Store) Migrate(ctx context.Context, migrations []Migration, appliedBy string, log zerolog.Logger) (int, error) {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT        NOT NULL,
			checksum   TEXT        NOT NULL,
			applied_by TEXT        NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return 0, fmt.Errorf("Migrate: creating schema_migrations: %w", err)
	}

	applied := make(map[int]string)
	rows, err := s.db.Query(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("Migrate: reading schema_migrations: %w", err)
	}
	for rows.Next() {
		var (
			version  int
			checksum string
		)
		if err := rows.Scan(&version, &checksum); err != nil {
			rows.Close()
			return 0, fmt.Errorf("Migrate: scanning schema_migrations: %w", err)
		}
		applied[version] = checksum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	if err := CheckApplied(migrations, applied); err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	count := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			log.Debug().Str("migration", m.Filename).Msg("Already applied")
			continue
		}

		err := s.withTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name, checksum, applied_by) VALUES ($1, $2, $3, $4)`,
				m.Version, m.Name, m.Checksum, appliedBy)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("Migrate: %s: %w", m.Filename, err)
		}
		log.Info().Str("migration", m.Filename).Msg("Applied migration")
		count++
	}
	return count, nil
}

// ErrChecksumMismatch marks an applied migration whose file was edited.
var ErrChecksumMismatch = errors.New("applied migration was modified")

// CheckApplied compares files against the recorded version -> checksum map.
func CheckApplied(migrations []Migration, applied map[int]string) error {
	for _, m := range migrations {
		if checksum, ok := applied[m.Version]; ok && checksum != m.Checksum {
			return fmt.Errorf("%s: %w", m.Filename, ErrChecksumMismatch)
		}
	}
	return nil
}
