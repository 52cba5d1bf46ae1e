// Package repository declares the persistence ports used by the services.
// Implementations live under internal/infra (postgres for production,
// memory for tests and local runs).
package repository

import (
	"context"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

// LedgerRepository stores ledger entries.
type LedgerRepository interface {
	// CreateLedgerEntry inserts e and fills its ID and CreatedAt.
	CreateLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error

	// GetLedgerEntry returns domain.ErrNotFound when id is absent.
	GetLedgerEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error)

	// ListLedgerEntries returns entries in r.ListWindow, newest entry_date first.
	ListLedgerEntries(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error)

	// ListApprovedLedgerEntries returns approved entries in r.SummaryWindow,
	// oldest entry_date first.
	ListApprovedLedgerEntries(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error)

	// UpdateLedgerEntry overwrites every mutable column of e.
	UpdateLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error

	// DeleteLedgerEntry hard-deletes the entry. A reimbursement-linked entry
	// yields domain.ErrConflict.
	DeleteLedgerEntry(ctx context.Context, id int64) error

	// LedgerEntryLinked reports whether a reimbursement references the entry.
	LedgerEntryLinked(ctx context.Context, id int64) (bool, error)
}

// ReimbursementRepository stores reimbursements together with their ledger
// entries. Every multi-row write is atomic.
type ReimbursementRepository interface {
	// CreateReimbursement inserts entry and r in one transaction and links them.
	CreateReimbursement(ctx context.Context, entry *domain.LedgerEntry, r *domain.Reimbursement) error

	// GetReimbursement returns the reimbursement with names and ledger entry.
	GetReimbursement(ctx context.Context, id int64) (*domain.Reimbursement, error)

	// ListReimbursementsByRequester orders by created_at descending.
	ListReimbursementsByRequester(ctx context.Context, userID int64) ([]*domain.Reimbursement, error)

	// ListReimbursementsByStatus orders by created_at ascending.
	ListReimbursementsByStatus(ctx context.Context, status domain.Status) ([]*domain.Reimbursement, error)

	// ResolveReimbursement moves a pending reimbursement and its ledger entry
	// to res.Status in one transaction. A reimbursement that is no longer
	// pending yields domain.ErrConflict and nothing changes.
	ResolveReimbursement(ctx context.Context, id int64, res domain.Resolution) (*domain.Reimbursement, error)

	// CountReimbursements counts reimbursements of any status whose ledger
	// entry date is in r.SummaryWindow.
	CountReimbursements(ctx context.Context, r domain.DateRange) (int, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	// GetUserByEmail matches the lower-cased email.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListUsers orders by created_at descending.
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	// UserNames maps each known id to its display name.
	UserNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// ActivityRepository stores the audit trail.
type ActivityRepository interface {
	InsertActivity(ctx context.Context, a *domain.ActivityLog) error
	// ListActivity orders by created_at descending.
	ListActivity(ctx context.Context, f domain.ActivityFilter) ([]*domain.ActivityLog, error)
}

// ReceiptRepository stores receipts and their embeddings.
type ReceiptRepository interface {
	CreateReceipt(ctx context.Context, r *domain.Receipt) error
	GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error)
	// ListReceipts orders by created_at descending; a nil uploader lists all.
	ListReceipts(ctx context.Context, uploadedBy *int64) ([]*domain.Receipt, error)
	UpdateReceipt(ctx context.Context, r *domain.Receipt) error
	SaveReceiptEmbedding(ctx context.Context, e domain.ReceiptEmbedding) error
	ListReceiptEmbeddings(ctx context.Context) ([]domain.ReceiptEmbedding, error)
}

// InventoryRepository stores stock items.
type InventoryRepository interface {
	// ListInventory orders by name.
	ListInventory(ctx context.Context) ([]*domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error)
	// CreateInventoryItem yields domain.ErrConflict on a duplicate name.
	CreateInventoryItem(ctx context.Context, item *domain.InventoryItem) error
	// UpdateInventoryItem yields domain.ErrConflict on a duplicate name.
	UpdateInventoryItem(ctx context.Context, item *domain.InventoryItem) error
	DeleteInventoryItem(ctx context.Context, id int64) error
	// ApplyStockDeltas increments or creates each named item in one transaction.
	ApplyStockDeltas(ctx context.Context, deltas []domain.StockDelta, editorID int64) ([]*domain.InventoryItem, error)
}

// RecipeRepository stores the recipe catalog.
type RecipeRepository interface {
	// ListRecipes orders by created_at descending; empty category lists all.
	ListRecipes(ctx context.Context, category string) ([]*domain.Recipe, error)
	GetRecipe(ctx context.Context, id int64) (*domain.Recipe, error)
	CreateRecipe(ctx context.Context, r *domain.Recipe) error
	UpdateRecipe(ctx context.Context, r *domain.Recipe) error
	DeleteRecipe(ctx context.Context, id int64) error
}
