package memory

import (
	"sync"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
)

// Store is an in-memory implementation of every repository port.
// A single mutex serializes all access, so multi-row writes are atomic.
// Data is lost on restart; use it for tests and local runs.
type Store struct {
	mu sync.Mutex

	nextID int64
	now    func() time.Time

	users          map[int64]*domain.User
	ledger         map[int64]*domain.LedgerEntry
	reimbursements map[int64]*domain.Reimbursement
	activity       []*domain.ActivityLog
	receipts       map[int64]*domain.Receipt
	embeddings     map[int64][]float32
	inventory      map[int64]*domain.InventoryItem
	recipes        map[int64]*domain.Recipe
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		now:            time.Now,
		users:          make(map[int64]*domain.User),
		ledger:         make(map[int64]*domain.LedgerEntry),
		reimbursements: make(map[int64]*domain.Reimbursement),
		receipts:       make(map[int64]*domain.Receipt),
		embeddings:     make(map[int64][]float32),
		inventory:      make(map[int64]*domain.InventoryItem),
		recipes:        make(map[int64]*domain.Recipe),
	}
}

// SetClock replaces the timestamp source used for created_at columns.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// id hands out a store-wide increasing identifier. Callers hold s.mu.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// stamp returns a strictly increasing timestamp so created_at ordering is
// deterministic even when the clock is frozen. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	return s.now().Add(time.Duration(s.nextID) * time.Microsecond)
}

func (s *Store) userName(id int64) *string {
	if u, ok := s.users[id]; ok {
		name := u.Name
		return &name
	}
	return nil
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
