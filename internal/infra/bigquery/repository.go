package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/refdata"
)

// Repository holds a shared BigQuery client and exposes the store
// operations the refresh pipeline needs. It satisfies the pipeline's
// ReferenceStore, LedgerStore, and RunRecorder interfaces so one handle
// can be wired into every slot.
type Repository struct {
	client *bigquery.Client
}

// NewRepository creates a Repository with a shared BigQuery client.
func NewRepository(ctx context.Context) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client}, nil
}

// NewRepositoryWithClient wraps an existing BigQuery client, used in tests.
func NewRepositoryWithClient(client *bigquery.Client) *Repository {
	return &Repository{client: client}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Load delegates to LoadReferenceData with the shared client.
func (r *Repository) Load(ctx context.Context) (*refdata.ReferenceData, error) {
	return LoadReferenceDataWithClient(ctx, r.client)
}

// Replace converts the ledger to rows and delegates to ReplaceLedger with
// the shared client.
func (r *Repository) Replace(ctx context.Context, txs []domain.Transaction) error {
	refreshedTS := time.Now()
	rows := make([]*LedgerRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, RowFromTransaction(tx, refreshedTS))
	}
	return ReplaceLedgerWithClient(ctx, r.client, rows)
}

// QueryLedger delegates to QueryLedger with the shared client.
func (r *Repository) QueryLedger(ctx context.Context) ([]*LedgerRow, error) {
	return QueryLedgerWithClient(ctx, r.client)
}

// QueryLedgerByDateRange delegates with the shared client.
func (r *Repository) QueryLedgerByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*LedgerRow, error) {
	return QueryLedgerByDateRangeWithClient(ctx, r.client, startDate, endDate)
}

// StartRun delegates to StartRefreshRun with the shared client.
func (r *Repository) StartRun(ctx context.Context) (string, error) {
	return StartRefreshRunWithClient(ctx, r.client)
}

// MarkRunFailed delegates to MarkRefreshRunFailed with the shared client.
func (r *Repository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	MarkRefreshRunFailedWithClient(ctx, r.client, runID, runErr)
}

// MarkRunSucceeded delegates to MarkRefreshRunSucceeded with the shared client.
func (r *Repository) MarkRunSucceeded(ctx context.Context, runID string, transactionCount int) error {
	return MarkRefreshRunSucceededWithClient(ctx, r.client, runID, transactionCount)
}

// ReplaceHoldings delegates to ReplaceHoldings with the shared client.
func (r *Repository) ReplaceHoldings(ctx context.Context, rows []*HoldingRow) error {
	return ReplaceHoldingsWithClient(ctx, r.client, rows)
}
