package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/money-manager/internal/classify"
	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/ledger"
	"github.com/dvloznov/money-manager/internal/logger"
	"github.com/dvloznov/money-manager/internal/normalize"
	"github.com/dvloznov/money-manager/internal/refdata"
)

// Step represents a single step in the refresh pipeline.
type Step interface {
	Execute(ctx context.Context, state *RunState) error
}

// RawBatch is one source's fetched records, kept in fetch order.
type RawBatch struct {
	Source  domain.Source
	Records []domain.RawRecord
}

// RunState holds the shared state across all pipeline steps.
type RunState struct {
	RunID string

	Ref     *refdata.ReferenceData
	Raw     []RawBatch
	Batches [][]domain.Transaction
	Extra   []domain.Transaction
	Ledger  []domain.Transaction
}

// LoadReferenceDataStep reads and validates the run's reference data.
type LoadReferenceDataStep struct {
	Store ReferenceStore
}

func (s *LoadReferenceDataStep) Execute(ctx context.Context, state *RunState) error {
	ref, err := s.Store.Load(ctx)
	if err != nil {
		return err
	}
	state.Ref = ref
	return nil
}

// FetchSourcesStep pulls raw records from every configured adapter, in
// configuration order. Source fetches are sequential; a failure aborts
// the run with nothing written.
type FetchSourcesStep struct {
	Adapters []SourceAdapter
}

func (s *FetchSourcesStep) Execute(ctx context.Context, state *RunState) error {
	log := logger.FromContext(ctx)

	for _, adapter := range s.Adapters {
		records, err := adapter.Fetch(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Str("source", string(adapter.Source())).
			Int("records", len(records)).
			Msg("Fetched raw records")
		state.Raw = append(state.Raw, RawBatch{Source: adapter.Source(), Records: records})
	}
	return nil
}

// NormalizeStep converts each raw batch into canonical transactions.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *RunState) error {
	n := normalize.New(state.Ref.Exclusions)
	for _, batch := range state.Raw {
		txs, err := n.Normalize(batch.Source, batch.Records)
		if err != nil {
			return err
		}
		state.Batches = append(state.Batches, txs)
	}
	return nil
}

// ClassifyStep labels and categorizes every normalized batch.
type ClassifyStep struct{}

func (s *ClassifyStep) Execute(ctx context.Context, state *RunState) error {
	c := classify.New(state.Ref)
	for i, batch := range state.Batches {
		state.Batches[i] = c.Classify(batch)
	}
	return nil
}

// FetchIncomeSheetStep pulls the out-of-band income rows, if an income
// sheet is configured.
type FetchIncomeSheetStep struct {
	Sheet IncomeSheet
}

func (s *FetchIncomeSheetStep) Execute(ctx context.Context, state *RunState) error {
	if s.Sheet == nil {
		return nil
	}
	extra, err := s.Sheet.FetchTransactions(ctx)
	if err != nil {
		return err
	}
	state.Extra = extra
	return nil
}

// AssembleStep merges all batches into the final ordered ledger.
type AssembleStep struct{}

func (s *AssembleStep) Execute(ctx context.Context, state *RunState) error {
	a := ledger.New(state.Ref.Corrections)
	batches := append([][]domain.Transaction{}, state.Batches...)
	if len(state.Extra) > 0 {
		batches = append(batches, state.Extra)
	}
	state.Ledger = a.Assemble(ctx, batches...)
	return nil
}

// ReplaceLedgerStep hands the finished ledger to the store for a full
// replacement of its previous contents.
type ReplaceLedgerStep struct {
	Store LedgerStore
}

func (s *ReplaceLedgerStep) Execute(ctx context.Context, state *RunState) error {
	return s.Store.Replace(ctx, state.Ledger)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *RunState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
