package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

// LedgerRow is one ledger entry as stored in the warehouse table.
type LedgerRow struct {
	EntryID       int64               `bigquery:"entry_id"`
	EntryDate     civil.Date          `bigquery:"entry_date"`
	Category      string              `bigquery:"category"`
	Amount        *big.Rat            `bigquery:"amount"`
	Description   bigquery.NullString `bigquery:"description"`
	Label         bigquery.NullString `bigquery:"label"`
	ReceiptID     bigquery.NullInt64  `bigquery:"receipt_id"`
	CreatedBy     int64               `bigquery:"created_by"`
	CreatedByName bigquery.NullString `bigquery:"created_by_name"`
	Status        string              `bigquery:"status"`
	CreatedTS     time.Time           `bigquery:"created_ts"`
	ExportedTS    time.Time           `bigquery:"exported_ts"`
}

// NewLedgerRow flattens e. names resolves created_by to a display name.
func NewLedgerRow(e *domain.LedgerEntry, names map[int64]string, exportedAt time.Time) *LedgerRow {
	row := &LedgerRow{
		EntryID:     e.ID,
		EntryDate:   e.EntryDate,
		Category:    string(e.Category),
		Amount:      e.Amount.Rat(),
		Description: nullString(e.Description),
		Label:       nullString(e.Label),
		CreatedBy:   e.CreatedBy,
		Status:      string(e.Status),
		CreatedTS:   e.CreatedAt.UTC(),
		ExportedTS:  exportedAt.UTC(),
	}
	if e.ReceiptID != nil {
		row.ReceiptID = bigquery.NullInt64{Int64: *e.ReceiptID, Valid: true}
	}
	if name, ok := names[e.CreatedBy]; ok {
		row.CreatedByName = bigquery.NullString{StringVal: name, Valid: true}
	}
	return row
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}
