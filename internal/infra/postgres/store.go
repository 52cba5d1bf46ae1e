// Package postgres implements the repository ports on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements every repository interface on one connection pool.
type Store struct {
	db *pgxpool.Pool
}

// NewStore connects to connString and pings the server.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("NewStore: parsing config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("NewStore: ping: %w", err)
	}
	return &Store{db: pool}, nil
}

// Pool exposes the underlying pool for the migration runner.
func (s *Store) Pool() *pgxpool.Pool {
	return s.db
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.db.Close()
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// mapErr translates driver errors into domain errors and prefixes op.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, domain.ErrConflict)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, domain.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireRow maps a zero-row command to ErrNotFound.
func requireRow(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func dateParam(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func nullDateParam(d *civil.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return dateParam(*d)
}

func fromDate(d pgtype.Date) civil.Date {
	return civil.DateOf(d.Time)
}

func fromNullDate(d pgtype.Date) *civil.Date {
	if !d.Valid {
		return nil
	}
	out := civil.DateOf(d.Time)
	return &out
}

// rangeArgs returns the optional bounds of r as nullable dates. The upper
// bound is inclusive for date columns and exclusive when exclusiveEnd is set.
func rangeArgs(r domain.DateRange, exclusiveEnd bool) (pgtype.Date, pgtype.Date) {
	end := r.End
	if exclusiveEnd {
		end = r.ExclusiveEnd()
	}
	return nullDateParam(r.Start), nullDateParam(end)
}

var (
	_ repository.LedgerRepository        = (*Store)(nil)
	_ repository.ReimbursementRepository = (*Store)(nil)
	_ repository.UserRepository          = (*Store)(nil)
	_ repository.ActivityRepository      = (*Store)(nil)
	_ repository.ReceiptRepository       = (*Store)(nil)
	_ repository.InventoryRepository     = (*Store)(nil)
	_ repository.RecipeRepository        = (*Store)(nil)
)
