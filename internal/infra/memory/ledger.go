package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

func (s *Store) CreateLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLedgerEntry(e)
	return nil
}

func (s *Store) insertLedgerEntry(e *domain.LedgerEntry) {
	e.ID = s.id()
	e.CreatedAt = s.stamp()
	cp := *e
	s.ledger[e.ID] = &cp
}

func (s *Store) GetLedgerEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.ledger[id]
	if !ok {
		return nil, fmt.Errorf("GetLedgerEntry: entry %d: %w", id, domain.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.LedgerEntry
	for _, e := range s.ledger {
		if r.ListWindow(e.EntryDate) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntryDate != out[j].EntryDate {
			return out[i].EntryDate.After(out[j].EntryDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListApprovedLedgerEntries(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.LedgerEntry
	for _, e := range s.ledger {
		if e.Status == domain.StatusApproved && r.SummaryWindow(e.EntryDate) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntryDate != out[j].EntryDate {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledger[e.ID]; !ok {
		return fmt.Errorf("UpdateLedgerEntry: entry %d: %w", e.ID, domain.ErrNotFound)
	}
	cp := *e
	s.ledger[e.ID] = &cp
	return nil
}

func (s *Store) DeleteLedgerEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledger[id]; !ok {
		return fmt.Errorf("DeleteLedgerEntry: entry %d: %w", id, domain.ErrNotFound)
	}
	if s.linked(id) {
		return fmt.Errorf("DeleteLedgerEntry: entry %d is linked to a reimbursement: %w", id, domain.ErrConflict)
	}
	delete(s.ledger, id)
	return nil
}

func (s *Store) LedgerEntryLinked(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linked(id), nil
}

func (s *Store) linked(entryID int64) bool {
	for _, r := range s.reimbursements {
		if r.LedgerEntryID == entryID {
			return true
		}
	}
	return false
}
