package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/money-manager/internal/logger"
)

// Runner wires the refresh pipeline together: every collaborator is an
// injected dependency, there is no ambient store handle. A run either
// completes and writes its full output, or fails and writes nothing.
type Runner struct {
	refStore    ReferenceStore
	adapters    []SourceAdapter
	incomeSheet IncomeSheet
	ledgerStore LedgerStore
	runs        RunRecorder
	runLog      RunLog
}

// NewRunner creates a Runner. incomeSheet, runs, and runLog may be nil
// when the corresponding collaborator is not configured.
func NewRunner(
	refStore ReferenceStore,
	adapters []SourceAdapter,
	incomeSheet IncomeSheet,
	ledgerStore LedgerStore,
	runs RunRecorder,
	runLog RunLog,
) *Runner {
	return &Runner{
		refStore:    refStore,
		adapters:    adapters,
		incomeSheet: incomeSheet,
		ledgerStore: ledgerStore,
		runs:        runs,
		runLog:      runLog,
	}
}

// Run executes one full refresh: load reference data, fetch every
// source, normalize, classify, assemble, and replace the stored ledger.
func (r *Runner) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	state := &RunState{}
	if r.runs != nil {
		runID, err := r.runs.StartRun(ctx)
		if err != nil {
			return fmt.Errorf("starting refresh run: %w", err)
		}
		state.RunID = runID
	}

	p := NewPipeline(
		&LoadReferenceDataStep{Store: r.refStore},
		&FetchSourcesStep{Adapters: r.adapters},
		&NormalizeStep{},
		&ClassifyStep{},
		&FetchIncomeSheetStep{Sheet: r.incomeSheet},
		&AssembleStep{},
		&ReplaceLedgerStep{Store: r.ledgerStore},
	)

	if err := p.Execute(ctx, state); err != nil {
		if r.runs != nil {
			r.runs.MarkRunFailed(ctx, state.RunID, err)
		}
		r.writeRunLog(ctx, err.Error())
		return err
	}

	if r.runs != nil {
		if err := r.runs.MarkRunSucceeded(ctx, state.RunID, len(state.Ledger)); err != nil {
			return err
		}
	}

	status := fmt.Sprintf("Ledger refreshed successfully: %d transactions", len(state.Ledger))
	r.writeRunLog(ctx, status)

	log.Info().
		Str("run_id", state.RunID).
		Int("transactions", len(state.Ledger)).
		Msg("Refresh run complete")
	return nil
}

func (r *Runner) writeRunLog(ctx context.Context, status string) {
	if r.runLog == nil {
		return
	}
	if err := r.runLog.Write(ctx, status); err != nil {
		l := logger.FromContext(ctx)
		l.Warn().Err(err).Msg("Failed to write run log")
	}
}
