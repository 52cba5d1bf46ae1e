// Package pipeline holds the batch jobs run from the command line.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	infraBQ "github.com/dvloznov/ministry-backoffice/internal/infra/bigquery"
	"github.com/dvloznov/ministry-backoffice/internal/logger"
)

// ExportLedger copies every ledger entry in r's list window to the
// warehouse, replacing whatever the warehouse held for that window.
// It returns the number of rows written.
func ExportLedger(ctx context.Context, src LedgerReader, dst Warehouse, r domain.DateRange, now time.Time) (int, error) {
	log := logger.FromContext(ctx)

	entries, err := src.ListLedgerEntries(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("ExportLedger: listing entries: %w", err)
	}

	ids := make([]int64, 0, len(entries))
	seen := make(map[int64]bool)
	for _, e := range entries {
		if !seen[e.CreatedBy] {
			seen[e.CreatedBy] = true
			ids = append(ids, e.CreatedBy)
		}
	}
	names, err := src.UserNames(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("ExportLedger: resolving names: %w", err)
	}

	rows := make([]*infraBQ.LedgerRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, infraBQ.NewLedgerRow(e, names, now))
	}

	if err := dst.EnsureTable(ctx); err != nil {
		return 0, fmt.Errorf("ExportLedger: %w", err)
	}
	if err := dst.ReplaceRange(ctx, r, rows); err != nil {
		return 0, fmt.Errorf("ExportLedger: %w", err)
	}

	log.Info().Int("rows", len(rows)).Msg("Exported ledger window")
	return len(rows), nil
}
