package pipeline

import (
	"context"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	infraBQ "github.com/dvloznov/ministry-backoffice/internal/infra/bigquery"
)

// LedgerReader is the ledger read side an export needs.
type LedgerReader interface {
	ListLedgerEntries(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error)
	UserNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Warehouse receives exported ledger rows. infraBQ.LedgerExporter is the
// production implementation.
type Warehouse interface {
	EnsureTable(ctx context.Context) error
	ReplaceRange(ctx context.Context, r domain.DateRange, rows []*infraBQ.LedgerRow) error
}
