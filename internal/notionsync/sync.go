// Package notionsync mirrors the stored ledger into a Notion database.
// The mirror follows the ledger's full-replacement semantics: pages whose
// row IDs are no longer in the ledger are archived, missing rows are
// created. Row IDs are deterministic content keys, so a page that already
// exists is guaranteed current and is skipped.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/money-manager/internal/infra/bigquery"
	"github.com/dvloznov/money-manager/internal/logger"
)

// BatchSize defines the number of ledger rows to process in a single batch.
const BatchSize = 100

// LedgerQuerier provides the ledger rows to mirror.
type LedgerQuerier interface {
	QueryLedger(ctx context.Context) ([]*bigquery.LedgerRow, error)
}

// SyncLedger mirrors the full ledger into the Notion database. With
// dryRun set, it logs the plan without touching Notion.
func SyncLedger(ctx context.Context, repo LedgerQuerier, notionClient NotionService, notionDBID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Bool("dry_run", dryRun).
		Msg("Starting ledger sync to Notion")

	rows, err := repo.QueryLedger(ctx)
	if err != nil {
		return fmt.Errorf("failed to query ledger: %w", err)
	}
	log.Info().Int("ledger_rows", len(rows)).Msg("Retrieved ledger from BigQuery")

	validRowIDs := make(map[string]bool)
	for _, row := range rows {
		validRowIDs[row.RowID] = true
	}

	log.Info().Msg("Querying existing pages from Notion")
	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}
	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	existingRowIDs := make(map[string]bool)
	for _, page := range notionPages {
		rowID := extractRowID(page)
		if rowID != "" {
			existingRowIDs[rowID] = true
		}
	}

	// Archive stale pages: no row ID (from an old sync) or no longer in
	// the ledger.
	var deleted int
	for _, page := range notionPages {
		rowID := extractRowID(page)
		if rowID != "" && validRowIDs[rowID] {
			continue
		}
		if dryRun {
			log.Info().
				Str("row_id", rowID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would delete stale Notion page")
			deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("row_id", rowID).
				Str("page_id", string(page.ID)).
				Msg("Failed to delete stale Notion page")
			continue
		}
		deleted++
	}
	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("Deleted stale pages from Notion")
	}

	var created, skipped int
	for i := 0; i < len(rows); i += BatchSize {
		end := i + BatchSize
		if end > len(rows) {
			end = len(rows)
		}

		batch := rows[i:end]
		log.Debug().
			Int("batch_start", i).
			Int("batch_size", len(batch)).
			Msg("Processing batch")

		for _, row := range batch {
			if existingRowIDs[row.RowID] {
				skipped++
				continue
			}

			if dryRun {
				log.Info().
					Str("row_id", row.RowID).
					Msg("[DRY RUN] Would create Notion page")
				created++
				continue
			}

			props := LedgerRowToNotionProperties(row)
			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("row_id", row.RowID).
					Msg("Failed to create Notion page")
				continue
			}
			log.Debug().
				Str("row_id", row.RowID).
				Str("page_id", string(page.ID)).
				Msg("Created Notion page")
			created++
		}
	}

	log.Info().
		Int("deleted", deleted).
		Int("created", created).
		Int("skipped", skipped).
		Int("total", len(rows)).
		Msg("Ledger sync completed")

	return nil
}

// queryAllNotionPages queries all pages from a Notion database.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
