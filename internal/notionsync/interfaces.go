package notionsync

import (
	"context"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/jomei/notionapi"
)

// NotionService is the subset of the Notion API the mirror needs.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// ArchivePage moves a page to the Notion trash.
	ArchivePage(ctx context.Context, pageID string) error
}

// LedgerSource reads the ledger being mirrored.
type LedgerSource interface {
	ListLedgerEntries(ctx context.Context, r domain.DateRange) ([]*domain.LedgerEntry, error)
	GetLedgerEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error)
	UserNames(ctx context.Context, ids []int64) (map[int64]string, error)
}
