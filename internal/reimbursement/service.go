// Package reimbursement implements the request / approve / reject workflow.
// A request creates a pending reimbursement-category ledger entry and the
// reimbursement in one transaction; resolving it moves both to the same
// terminal status in one transaction.
package reimbursement

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service runs the reimbursement workflow.
type Service struct {
	repo  repository.ReimbursementRepository
	audit audit.Recorder
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a reimbursement service.
func NewService(repo repository.ReimbursementRepository, rec audit.Recorder, log zerolog.Logger) *Service {
	return &Service{repo: repo, audit: rec, log: log, now: time.Now}
}

// RequestInput is the payload of Request.
type RequestInput struct {
	Amount      *decimal.Decimal `json:"amount"`
	EntryDate   *civil.Date      `json:"entry_date"`
	Description *string          `json:"description"`
	Label       *string          `json:"label"`
	ReceiptID   *int64           `json:"receipt_id"`
	Notes       *string          `json:"notes"`
}

// Request files a reimbursement for actor.
func (s *Service) Request(ctx context.Context, actor *domain.User, in RequestInput) (*domain.Reimbursement, error) {
	if in.Amount == nil {
		return nil, fmt.Errorf("%w: amount is required", domain.ErrValidation)
	}
	amount := domain.RoundMoney(*in.Amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}

	entry := &domain.LedgerEntry{
		EntryDate:   s.today(),
		Category:    domain.CategoryReimbursement,
		Amount:      amount,
		Description: in.Description,
		Label:       in.Label,
		ReceiptID:   in.ReceiptID,
		CreatedBy:   actor.ID,
		Status:      domain.StatusPending,
	}
	if in.EntryDate != nil {
		entry.EntryDate = *in.EntryDate
	}
	r := &domain.Reimbursement{
		RequestedBy: actor.ID,
		Status:      domain.StatusPending,
		Notes:       in.Notes,
	}

	if err := s.repo.CreateReimbursement(ctx, entry, r); err != nil {
		return nil, fmt.Errorf("Request: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "reimbursement.create",
		EntityType: "reimbursement",
		EntityID:   &r.ID,
		Details:    fmt.Sprintf("Requested reimbursement #%d ($%s)", r.ID, amount.StringFixed(2)),
	})
	return r, nil
}

// ListMine returns actor's own reimbursements, newest first.
func (s *Service) ListMine(ctx context.Context, actor *domain.User) ([]*domain.Reimbursement, error) {
	out, err := s.repo.ListReimbursementsByRequester(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("ListMine: %w", err)
	}
	return out, nil
}

// ListPending returns the review queue, oldest first. Admin only.
func (s *Service) ListPending(ctx context.Context, actor *domain.User) ([]*domain.Reimbursement, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	out, err := s.repo.ListReimbursementsByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	return out, nil
}

// Approve marks the reimbursement and its entry approved and sets the payout
// date to today. Admin only.
func (s *Service) Approve(ctx context.Context, actor *domain.User, id int64) (*domain.Reimbursement, error) {
	today := s.today()
	return s.resolve(ctx, actor, id, domain.Resolution{
		Status:     domain.StatusApproved,
		ApproverID: actor.ID,
		PayoutDate: &today,
	}, "reimbursement.approve", "Approved")
}

// Reject marks the reimbursement and its entry rejected. Admin only.
func (s *Service) Reject(ctx context.Context, actor *domain.User, id int64) (*domain.Reimbursement, error) {
	return s.resolve(ctx, actor, id, domain.Resolution{
		Status:     domain.StatusRejected,
		ApproverID: actor.ID,
	}, "reimbursement.reject", "Rejected")
}

func (s *Service) resolve(ctx context.Context, actor *domain.User, id int64, res domain.Resolution, action, verb string) (*domain.Reimbursement, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	r, err := s.repo.ResolveReimbursement(ctx, id, res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", verb, err)
	}

	requester := "unknown"
	if r.RequesterName != nil {
		requester = *r.RequesterName
	}
	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     action,
		EntityType: "reimbursement",
		EntityID:   &r.ID,
		Details:    fmt.Sprintf("%s reimbursement #%d (requested by %s)", verb, r.ID, requester),
	})
	return r, nil
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now())
}
