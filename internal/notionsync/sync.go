// Package notionsync mirrors ledger entries into a Notion database.
package notionsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/logger"
	"github.com/jomei/notionapi"
)

// Result counts what a sync did, or would do in dry-run mode.
type Result struct {
	Created  int
	Updated  int
	Archived int
	Failed   int
}

// SyncLedger makes the Notion database match the ledger for rng. Entries in
// the window get a page created or updated. Pages whose entry no longer
// exists, or that carry no entry ID, are archived. Pages for entries outside
// the window are left alone. Per-page API failures are logged and counted
// in Result.Failed rather than aborting the run.
func SyncLedger(ctx context.Context, src LedgerSource, client NotionService, databaseID string, rng domain.DateRange, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	entries, err := src.ListLedgerEntries(ctx, rng)
	if err != nil {
		return res, fmt.Errorf("SyncLedger: listing entries: %w", err)
	}
	names, err := src.UserNames(ctx, creatorIDs(entries))
	if err != nil {
		return res, fmt.Errorf("SyncLedger: resolving names: %w", err)
	}
	log.Info().Int("entry_count", len(entries)).Bool("dry_run", dryRun).Msg("Loaded ledger entries")

	pages, err := queryAllPages(ctx, client, databaseID)
	if err != nil {
		return res, fmt.Errorf("SyncLedger: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	pageByEntry := make(map[int64]notionapi.Page, len(pages))
	var stale []notionapi.Page
	for _, page := range pages {
		id, ok := entryIDFromPage(page)
		if !ok {
			stale = append(stale, page)
			continue
		}
		if _, dup := pageByEntry[id]; dup {
			stale = append(stale, page)
			continue
		}
		pageByEntry[id] = page
	}

	inWindow := make(map[int64]bool, len(entries))
	for _, e := range entries {
		inWindow[e.ID] = true
		props := LedgerEntryToProperties(e, names[e.CreatedBy])
		page, exists := pageByEntry[e.ID]

		switch {
		case dryRun && exists:
			log.Info().Int64("entry_id", e.ID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would update Notion page")
			res.Updated++
		case dryRun:
			log.Info().Int64("entry_id", e.ID).Msg("[DRY RUN] Would create Notion page")
			res.Created++
		case exists:
			if _, err := client.UpdatePage(ctx, string(page.ID), props); err != nil {
				log.Warn().Err(err).Int64("entry_id", e.ID).Str("page_id", string(page.ID)).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
		default:
			created, err := client.CreatePage(ctx, databaseID, props)
			if err != nil {
				log.Warn().Err(err).Int64("entry_id", e.ID).Msg("Failed to create Notion page")
				res.Failed++
				continue
			}
			log.Debug().Int64("entry_id", e.ID).Str("page_id", string(created.ID)).Msg("Created Notion page")
			res.Created++
		}
	}

	for id, page := range pageByEntry {
		if inWindow[id] {
			continue
		}
		_, err := src.GetLedgerEntry(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Int64("entry_id", id).Msg("Failed to look up ledger entry")
			res.Failed++
			continue
		}
		stale = append(stale, page)
	}

	for _, page := range stale {
		if dryRun {
			log.Info().Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := client.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Ledger sync completed")
	return res, nil
}

func creatorIDs(entries []*domain.LedgerEntry) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, e := range entries {
		if !seen[e.CreatedBy] {
			seen[e.CreatedBy] = true
			ids = append(ids, e.CreatedBy)
		}
	}
	return ids
}

// queryAllPages follows the cursor until the database is exhausted.
func queryAllPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var (
		pages  []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}
