package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const ledgerColumns = `e.id, e.entry_date, e.category, e.amount, e.description, e.label,
	e.receipt_id, e.created_by, e.status, e.created_at`

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e    domain.LedgerEntry
		date pgtype.Date
	)
	err := row.Scan(&e.ID, &date, &e.Category, &e.Amount, &e.Description, &e.Label,
		&e.ReceiptID, &e.CreatedBy, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.EntryDate = fromDate(date)
	return &e, nil
}

func collectLedgerEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	defer rows.Close()
	var out []*domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertLedgerEntry(ctx context.Context, q querier, e *domain.LedgerEntry) error {
	return q.QueryRow(ctx, `
		INSERT INTO ledger_entries (entry_date, category, amount, description, label, receipt_id, created_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		dateParam(e.EntryDate), e.Category, e.Amount, e.Description, e.Label, e.ReceiptID, e.CreatedBy, e.Status,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *Store) CreateLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	return mapErr("CreateLedgerEntry", insertLedgerEntry(ctx, s.db, e))
}

func (s *Store) GetLedgerEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	e, err := scanLedgerEntry(s.db.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries e WHERE e.id = $1`, id))
	if err != nil {
		return nil, mapErr(fmt.Sprintf("GetLedgerEntry: entry %d", id), err)
	}
	return e, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error) {
	start, end := rangeArgs(r, true)
	rows, err := s.db.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries e
		WHERE ($1::date IS NULL OR e.entry_date >= $1)
		  AND ($2::date IS NULL OR e.entry_date < $2)
		ORDER BY e.entry_date DESC, e.id DESC`, start, end)
	if err != nil {
		return nil, mapErr("ListLedgerEntries", err)
	}
	out, err := collectLedgerEntries(rows)
	if err != nil {
		return nil, mapErr("ListLedgerEntries: scanning", err)
	}
	return out, nil
}

func (s *Store) ListApprovedLedgerEntries(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error) {
	start, end := rangeArgs(r, false)
	rows, err := s.db.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries e
		WHERE e.status = 'approved'
		  AND ($1::date IS NULL OR e.entry_date >= $1)
		  AND ($2::date IS NULL OR e.entry_date <= $2)
		ORDER BY e.entry_date ASC, e.id ASC`, start, end)
	if err != nil {
		return nil, mapErr("ListApprovedLedgerEntries", err)
	}
	out, err := collectLedgerEntries(rows)
	if err != nil {
		return nil, mapErr("ListApprovedLedgerEntries: scanning", err)
	}
	return out, nil
}

func (s *Store) UpdateLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE ledger_entries
		SET entry_date = $2, category = $3, amount = $4, description = $5, label = $6, status = $7
		WHERE id = $1`,
		e.ID, dateParam(e.EntryDate), e.Category, e.Amount, e.Description, e.Label, e.Status)
	return requireRow(fmt.Sprintf("UpdateLedgerEntry: entry %d", e.ID), tag, err)
}

// DeleteLedgerEntry relies on the reimbursements foreign key to refuse
// linked entries.
func (s *Store) DeleteLedgerEntry(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1`, id)
	return requireRow(fmt.Sprintf("DeleteLedgerEntry: entry %d", id), tag, err)
}

func (s *Store) LedgerEntryLinked(ctx context.Context, id int64) (bool, error) {
	var linked bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reimbursements WHERE ledger_entry_id = $1)`, id).Scan(&linked)
	if err != nil {
		return false, mapErr("LedgerEntryLinked", err)
	}
	return linked, nil
}
