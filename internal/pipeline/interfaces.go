package pipeline

import (
	"context"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/refdata"
)

// SourceAdapter produces raw records from one data origin. Fetch
// failures surface as domain.SourceUnavailableError and fail the run;
// the pipeline never retries.
type SourceAdapter interface {
	// Source tags the records for normalization and error reporting.
	Source() domain.Source

	// Fetch returns the source's current raw records.
	Fetch(ctx context.Context) ([]domain.RawRecord, error)
}

// IncomeSheet supplies out-of-band income rows that arrive already in
// Transaction shape (a manually maintained worksheet, not a raw feed).
// The assembler appends them after classification.
type IncomeSheet interface {
	FetchTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// ReferenceStore loads the run's reference data. It is read once at run
// start and treated as static for the duration of the run.
type ReferenceStore interface {
	Load(ctx context.Context) (*refdata.ReferenceData, error)
}

// LedgerStore accepts the final ordered ledger and atomically replaces
// its previously stored contents.
type LedgerStore interface {
	Replace(ctx context.Context, txs []domain.Transaction) error
}

// RunRecorder tracks refresh runs in the store (RUNNING, SUCCESS,
// FAILED plus an error message).
type RunRecorder interface {
	StartRun(ctx context.Context) (string, error)
	MarkRunFailed(ctx context.Context, runID string, runErr error)
	MarkRunSucceeded(ctx context.Context, runID string, transactionCount int) error
}

// RunLog receives a single status string per run, overwriting the
// previous one.
type RunLog interface {
	Write(ctx context.Context, status string) error
}
