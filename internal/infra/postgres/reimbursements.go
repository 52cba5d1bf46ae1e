package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const reimbursementSelect = `
	SELECT r.id, r.ledger_entry_id, r.requested_by, ru.name, r.approved_by, au.name,
	       r.status, r.notes, r.payout_date, r.created_at,
	       ` + ledgerColumns + `
	FROM reimbursements r
	JOIN ledger_entries e ON e.id = r.ledger_entry_id
	LEFT JOIN users ru ON ru.id = r.requested_by
	LEFT JOIN users au ON au.id = r.approved_by`

func scanReimbursement(row pgx.Row) (*domain.Reimbursement, error) {
	var (
		r         domain.Reimbursement
		e         domain.LedgerEntry
		payout    pgtype.Date
		entryDate pgtype.Date
	)
	err := row.Scan(
		&r.ID, &r.LedgerEntryID, &r.RequestedBy, &r.RequesterName, &r.ApprovedBy, &r.ApproverName,
		&r.Status, &r.Notes, &payout, &r.CreatedAt,
		&e.ID, &entryDate, &e.Category, &e.Amount, &e.Description, &e.Label,
		&e.ReceiptID, &e.CreatedBy, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.PayoutDate = fromNullDate(payout)
	e.EntryDate = fromDate(entryDate)
	r.LedgerEntry = &e
	return &r, nil
}

func (s *Store) listReimbursements(ctx context.Context, op, query string, args ...any) ([]*domain.Reimbursement, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	var out []*domain.Reimbursement
	for rows.Next() {
		r, err := scanReimbursement(rows)
		if err != nil {
			return nil, mapErr(op+": scanning", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return out, nil
}

// CreateReimbursement writes the ledger entry and the reimbursement in one
// transaction, then reloads the joined view into r.
func (s *Store) CreateReimbursement(ctx context.Context, entry *domain.LedgerEntry, r *domain.Reimbursement) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return fmt.Errorf("inserting ledger entry: %w", err)
		}
		r.LedgerEntryID = entry.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO reimbursements (ledger_entry_id, requested_by, status, notes)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`,
			r.LedgerEntryID, r.RequestedBy, r.Status, r.Notes,
		).Scan(&r.ID, &r.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting reimbursement: %w", err)
		}
		return nil
	})
	if err != nil {
		return mapErr("CreateReimbursement", err)
	}

	full, err := s.GetReimbursement(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("CreateReimbursement: %w", err)
	}
	*r = *full
	return nil
}

func (s *Store) GetReimbursement(ctx context.Context, id int64) (*domain.Reimbursement, error) {
	r, err := scanReimbursement(s.db.QueryRow(ctx, reimbursementSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, mapErr(fmt.Sprintf("GetReimbursement: reimbursement %d", id), err)
	}
	return r, nil
}

func (s *Store) ListReimbursementsByRequester(ctx context.Context, userID int64) ([]*domain.Reimbursement, error) {
	return s.listReimbursements(ctx, "ListReimbursementsByRequester",
		reimbursementSelect+` WHERE r.requested_by = $1 ORDER BY r.created_at DESC, r.id DESC`, userID)
}

func (s *Store) ListReimbursementsByStatus(ctx context.Context, status domain.Status) ([]*domain.Reimbursement, error) {
	return s.listReimbursements(ctx, "ListReimbursementsByStatus",
		reimbursementSelect+` WHERE r.status = $1 ORDER BY r.created_at ASC, r.id ASC`, status)
}

// ResolveReimbursement locks the reimbursement row so two concurrent
// resolutions cannot both observe it as pending.
func (s *Store) ResolveReimbursement(ctx context.Context, id int64, res domain.Resolution) (*domain.Reimbursement, error) {
	op := fmt.Sprintf("ResolveReimbursement: reimbursement %d", id)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var (
			status  domain.Status
			entryID int64
		)
		err := tx.QueryRow(ctx,
			`SELECT status, ledger_entry_id FROM reimbursements WHERE id = $1 FOR UPDATE`, id,
		).Scan(&status, &entryID)
		if err != nil {
			return err
		}
		if status != domain.StatusPending {
			return fmt.Errorf("already %s: %w", status, domain.ErrConflict)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE reimbursements SET status = $2, approved_by = $3, payout_date = $4
			WHERE id = $1`,
			id, res.Status, res.ApproverID, nullDateParam(res.PayoutDate)); err != nil {
			return fmt.Errorf("updating reimbursement: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE ledger_entries SET status = $2 WHERE id = $1`, entryID, res.Status); err != nil {
			return fmt.Errorf("updating ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(op, err)
	}
	return s.GetReimbursement(ctx, id)
}

func (s *Store) CountReimbursements(ctx context.Context, rng domain.DateRange) (int, error) {
	start, end := rangeArgs(rng, false)
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*)
		FROM reimbursements r
		JOIN ledger_entries e ON e.id = r.ledger_entry_id
		WHERE ($1::date IS NULL OR e.entry_date >= $1)
		  AND ($2::date IS NULL OR e.entry_date <= $2)`, start, end).Scan(&n)
	if err != nil {
		return 0, mapErr("CountReimbursements", err)
	}
	return n, nil
}
