package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

func (s *Store) CreateReimbursement(ctx context.Context, entry *domain.LedgerEntry, r *domain.Reimbursement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertLedgerEntry(entry)

	r.ID = s.id()
	r.LedgerEntryID = entry.ID
	r.CreatedAt = s.stamp()
	cp := *r
	cp.LedgerEntry = nil
	s.reimbursements[r.ID] = &cp

	s.decorate(r)
	return nil
}

func (s *Store) GetReimbursement(ctx context.Context, id int64) (*domain.Reimbursement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reimbursements[id]
	if !ok {
		return nil, fmt.Errorf("GetReimbursement: reimbursement %d: %w", id, domain.ErrNotFound)
	}
	cp := *r
	s.decorate(&cp)
	return &cp, nil
}

func (s *Store) ListReimbursementsByRequester(ctx context.Context, userID int64) ([]*domain.Reimbursement, error) {
	out := s.filterReimbursements(func(r *domain.Reimbursement) bool { return r.RequestedBy == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListReimbursementsByStatus(ctx context.Context, status domain.Status) ([]*domain.Reimbursement, error) {
	out := s.filterReimbursements(func(r *domain.Reimbursement) bool { return r.Status == status })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) filterReimbursements(keep func(*domain.Reimbursement) bool) []*domain.Reimbursement {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Reimbursement
	for _, r := range s.reimbursements {
		if keep(r) {
			cp := *r
			s.decorate(&cp)
			out = append(out, &cp)
		}
	}
	return out
}

func (s *Store) ResolveReimbursement(ctx context.Context, id int64, res domain.Resolution) (*domain.Reimbursement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reimbursements[id]
	if !ok {
		return nil, fmt.Errorf("ResolveReimbursement: reimbursement %d: %w", id, domain.ErrNotFound)
	}
	if r.Status != domain.StatusPending {
		return nil, fmt.Errorf("ResolveReimbursement: reimbursement %d already %s: %w", id, r.Status, domain.ErrConflict)
	}

	approver := res.ApproverID
	r.Status = res.Status
	r.ApprovedBy = &approver
	r.PayoutDate = res.PayoutDate
	if e, ok := s.ledger[r.LedgerEntryID]; ok {
		e.Status = res.Status
	}

	cp := *r
	s.decorate(&cp)
	return &cp, nil
}

func (s *Store) CountReimbursements(ctx context.Context, rng domain.DateRange) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.reimbursements {
		e, ok := s.ledger[r.LedgerEntryID]
		if ok && rng.SummaryWindow(e.EntryDate) {
			n++
		}
	}
	return n, nil
}

// decorate fills the joined fields. Callers hold s.mu.
func (s *Store) decorate(r *domain.Reimbursement) {
	r.RequesterName = s.userName(r.RequestedBy)
	r.ApproverName = nil
	if r.ApprovedBy != nil {
		r.ApproverName = s.userName(*r.ApprovedBy)
	}
	r.LedgerEntry = nil
	if e, ok := s.ledger[r.LedgerEntryID]; ok {
		cp := *e
		r.LedgerEntry = &cp
	}
}
