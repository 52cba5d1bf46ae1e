// Package ledger implements the ledger store operations: entry creation,
// listing, admin edits and the daily summary report.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service runs ledger operations against a repository.
type Service struct {
	repo  repository.LedgerRepository
	users repository.UserRepository
	audit audit.Recorder
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a ledger service.
func NewService(repo repository.LedgerRepository, users repository.UserRepository, rec audit.Recorder, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		users: users,
		audit: rec,
		log:   log,
		now:   time.Now,
	}
}

// CreateInput is the payload of Create. Nil fields take their defaults.
type CreateInput struct {
	Category    domain.Category  `json:"category"`
	Amount      *decimal.Decimal `json:"amount"`
	EntryDate   *civil.Date      `json:"entry_date"`
	Description *string          `json:"description"`
	Label       *string          `json:"label"`
	ReceiptID   *int64           `json:"receipt_id"`
	Status      *domain.Status   `json:"status"`
}

// Create records a new entry. Status defaults to approved and entry_date to
// today.
func (s *Service) Create(ctx context.Context, actor *domain.User, in CreateInput) (*domain.LedgerEntry, error) {
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: invalid category", domain.ErrValidation)
	}
	if in.Amount == nil {
		return nil, fmt.Errorf("%w: amount is required", domain.ErrValidation)
	}
	status := domain.StatusApproved
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: invalid status", domain.ErrValidation)
		}
		status = *in.Status
	}

	entry := &domain.LedgerEntry{
		EntryDate:   s.today(),
		Category:    in.Category,
		Amount:      domain.RoundMoney(*in.Amount),
		Description: in.Description,
		Label:       in.Label,
		ReceiptID:   in.ReceiptID,
		CreatedBy:   actor.ID,
		Status:      status,
	}
	if in.EntryDate != nil {
		entry.EntryDate = *in.EntryDate
	}

	if err := s.repo.CreateLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "ledger.create",
		EntityType: "ledger",
		EntityID:   &entry.ID,
		Details:    fmt.Sprintf("Entry #%d: %s $%s", entry.ID, entry.Category, entry.Amount.StringFixed(2)),
	})
	return entry, nil
}

// List returns entries dated from start up to, but excluding, end + 1 day,
// newest first.
func (s *Service) List(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error) {
	entries, err := s.repo.ListLedgerEntries(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return entries, nil
}

// Update applies an admin patch. A reimbursement-linked entry may not have
// its status or category changed here; status moves with the reimbursement.
func (s *Service) Update(ctx context.Context, actor *domain.User, id int64, patch domain.LedgerEntryPatch) (*domain.LedgerEntry, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return nil, fmt.Errorf("%w: invalid category", domain.ErrValidation)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status", domain.ErrValidation)
	}

	entry, err := s.repo.GetLedgerEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	statusChange := patch.Status != nil && *patch.Status != entry.Status
	categoryChange := patch.Category != nil && *patch.Category != entry.Category
	if statusChange || categoryChange {
		linked, err := s.repo.LedgerEntryLinked(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("Update: checking reimbursement link: %w", err)
		}
		if linked && statusChange {
			return nil, fmt.Errorf("%w: status of a reimbursement entry changes only through approval or rejection", domain.ErrConflict)
		}
		if linked {
			return nil, fmt.Errorf("%w: a reimbursement entry keeps the reimbursement category", domain.ErrConflict)
		}
	}

	patch.Apply(entry)
	if err := s.repo.UpdateLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "ledger.update",
		EntityType: "ledger",
		EntityID:   &entry.ID,
		Details:    fmt.Sprintf("Updated entry #%d", entry.ID),
	})
	return entry, nil
}

// Delete hard-deletes an entry. Admin only.
func (s *Service) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}

	entry, err := s.repo.GetLedgerEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	details := fmt.Sprintf("Deleted entry #%d (%s $%s)", entry.ID, entry.Category, entry.Amount.StringFixed(2))

	if err := s.repo.DeleteLedgerEntry(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "ledger.delete",
		EntityType: "ledger",
		EntityID:   &id,
		Details:    details,
	})
	return nil
}

type groupKey struct {
	date   civil.Date
	label  string
	hasLbl bool
	user   int64
}

// DailySummary groups approved entries dated start..end inclusive by
// (entry_date, label, created_by) and totals each category.
func (s *Service) DailySummary(ctx context.Context, r domain.DateRange) (*domain.DailySummary, error) {
	entries, err := s.repo.ListApprovedLedgerEntries(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("DailySummary: %w", err)
	}

	groups := make(map[groupKey]*domain.DailySummaryRow)
	var order []groupKey
	userIDs := make(map[int64]struct{})

	for _, e := range entries {
		key := groupKey{date: e.EntryDate, user: e.CreatedBy}
		if e.Label != nil {
			key.label, key.hasLbl = *e.Label, true
		}
		row, ok := groups[key]
		if !ok {
			row = &domain.DailySummaryRow{Date: e.EntryDate, UserID: e.CreatedBy, Label: e.Label}
			groups[key] = row
			order = append(order, key)
			userIDs[e.CreatedBy] = struct{}{}
		}
		row.Add(e.Category, e.Amount)
	}

	names, err := s.users.UserNames(ctx, keys(userIDs))
	if err != nil {
		return nil, fmt.Errorf("DailySummary: resolving user names: %w", err)
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.date != b.date {
			return a.date.Before(b.date)
		}
		if a.label != b.label {
			return a.label < b.label
		}
		return a.user < b.user
	})

	summary := &domain.DailySummary{Rows: make([]domain.DailySummaryRow, 0, len(order))}
	for _, key := range order {
		row := groups[key]
		row.Settle()
		if name, ok := names[row.UserID]; ok {
			row.UserName = &name
		}
		summary.Rows = append(summary.Rows, *row)

		summary.Totals.Sales = summary.Totals.Sales.Add(row.Sales)
		summary.Totals.Expenses = summary.Totals.Expenses.Add(row.Expenses)
		summary.Totals.Reimbursement = summary.Totals.Reimbursement.Add(row.Reimbursement)
		summary.Totals.CollegeMinistryFund = summary.Totals.CollegeMinistryFund.Add(row.CollegeMinistryFund)
		summary.Totals.Offering = summary.Totals.Offering.Add(row.Offering)
	}
	summary.Totals.Settle()
	return summary, nil
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now())
}

func keys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
