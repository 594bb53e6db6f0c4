package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/normalize"
	"github.com/dvloznov/money-manager/internal/pipeline"
	"github.com/dvloznov/money-manager/internal/refdata"
)

// MockReferenceStore is a mock implementation of ReferenceStore.
type MockReferenceStore struct {
	LoadFunc func(ctx context.Context) (*refdata.ReferenceData, error)
}

func (m *MockReferenceStore) Load(ctx context.Context) (*refdata.ReferenceData, error) {
	return m.LoadFunc(ctx)
}

// MockAdapter is a mock implementation of SourceAdapter.
type MockAdapter struct {
	Src       domain.Source
	FetchFunc func(ctx context.Context) ([]domain.RawRecord, error)
}

func (m *MockAdapter) Source() domain.Source { return m.Src }

func (m *MockAdapter) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	return m.FetchFunc(ctx)
}

// MockLedgerStore records what the pipeline hands to the store.
type MockLedgerStore struct {
	Replaced [][]domain.Transaction
	Err      error
}

func (m *MockLedgerStore) Replace(ctx context.Context, txs []domain.Transaction) error {
	if m.Err != nil {
		return m.Err
	}
	m.Replaced = append(m.Replaced, txs)
	return nil
}

// MockRunLog captures run statuses.
type MockRunLog struct {
	Statuses []string
}

func (m *MockRunLog) Write(ctx context.Context, status string) error {
	m.Statuses = append(m.Statuses, status)
	return nil
}

// MockRunRecorder tracks run bookkeeping calls.
type MockRunRecorder struct {
	Started   int
	Failed    []error
	Succeeded int
}

func (m *MockRunRecorder) StartRun(ctx context.Context) (string, error) {
	m.Started++
	return "run-1", nil
}

func (m *MockRunRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	m.Failed = append(m.Failed, runErr)
}

func (m *MockRunRecorder) MarkRunSucceeded(ctx context.Context, runID string, transactionCount int) error {
	m.Succeeded++
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRef() *refdata.ReferenceData {
	return &refdata.ReferenceData{
		AccountNames:      []string{"Checking"},
		CreditCardAccount: "Visa Credit Card",
		Exclusions:        []string{"TRANSFER"},
	}
}

func TestRunner_EndToEnd(t *testing.T) {
	refStore := &MockReferenceStore{
		LoadFunc: func(ctx context.Context) (*refdata.ReferenceData, error) {
			return testRef(), nil
		},
	}

	bank := &MockAdapter{
		Src: domain.SourceBank,
		FetchFunc: func(ctx context.Context) ([]domain.RawRecord, error) {
			return []domain.RawRecord{
				{PostDate: date(2024, 2, 1), Account: "Checking", Amount: "$50.00", Description: "PURCHASE ON 01-15 2024 STORE X"},
				{PostDate: date(2024, 2, 2), Account: "Checking", Amount: "-$20.00", Description: "TRANSFER TO SAVINGS"},
			}, nil
		},
	}

	store := &MockLedgerStore{}
	runLog := &MockRunLog{}
	runs := &MockRunRecorder{}

	runner := pipeline.NewRunner(refStore, []pipeline.SourceAdapter{bank}, nil, store, runs, runLog)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(store.Replaced) != 1 {
		t.Fatalf("expected one ledger replacement, got %d", len(store.Replaced))
	}
	got := store.Replaced[0]

	// The excluded transfer is dropped; exactly one row survives.
	if len(got) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(got))
	}
	tx := got[0]
	if domain.FormatDate(tx.PostDate) != "02/01/2024" {
		t.Errorf("post date = %s", domain.FormatDate(tx.PostDate))
	}
	if domain.FormatDate(tx.TxnDate) != "01/15/2024" {
		t.Errorf("transaction date = %s", domain.FormatDate(tx.TxnDate))
	}
	if tx.Amount.String() != "50" {
		t.Errorf("amount = %s", tx.Amount)
	}
	if tx.Flow != domain.FlowIncome {
		t.Errorf("flow = %s, want Income", tx.Flow)
	}
	if tx.Description != "PURCHASE STORE X" {
		t.Errorf("description = %q", tx.Description)
	}

	if runs.Started != 1 || runs.Succeeded != 1 || len(runs.Failed) != 0 {
		t.Errorf("run bookkeeping: %+v", runs)
	}
	if len(runLog.Statuses) != 1 || runLog.Statuses[0] != "Ledger refreshed successfully: 1 transactions" {
		t.Errorf("run log statuses: %v", runLog.Statuses)
	}
}

func TestRunner_ParseErrorAbortsRun(t *testing.T) {
	refStore := &MockReferenceStore{
		LoadFunc: func(ctx context.Context) (*refdata.ReferenceData, error) {
			return testRef(), nil
		},
	}
	bank := &MockAdapter{
		Src: domain.SourceBank,
		FetchFunc: func(ctx context.Context) ([]domain.RawRecord, error) {
			return []domain.RawRecord{
				{PostDate: date(2024, 2, 1), Account: "Checking", Amount: "not-a-number", Description: "BAD"},
			}, nil
		},
	}

	store := &MockLedgerStore{}
	runLog := &MockRunLog{}
	runs := &MockRunRecorder{}

	runner := pipeline.NewRunner(refStore, []pipeline.SourceAdapter{bank}, nil, store, runs, runLog)
	err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail")
	}

	var parseErr *normalize.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected ParseError, got %v", err)
	}

	// No partial ledger is ever written.
	if len(store.Replaced) != 0 {
		t.Error("ledger must not be written on a failed run")
	}
	if len(runs.Failed) != 1 {
		t.Errorf("run not marked failed: %+v", runs)
	}
	// The error text is surfaced to the operator via the run log.
	if len(runLog.Statuses) != 1 {
		t.Fatalf("expected one run log status, got %v", runLog.Statuses)
	}
}

func TestRunner_SourceUnavailablePropagates(t *testing.T) {
	refStore := &MockReferenceStore{
		LoadFunc: func(ctx context.Context) (*refdata.ReferenceData, error) {
			return testRef(), nil
		},
	}
	fetchCalls := 0
	down := &MockAdapter{
		Src: domain.SourceBrokerageSpending,
		FetchFunc: func(ctx context.Context) ([]domain.RawRecord, error) {
			fetchCalls++
			return nil, &domain.SourceUnavailableError{Source: domain.SourceBrokerageSpending, Err: errors.New("connection refused")}
		},
	}

	store := &MockLedgerStore{}
	runner := pipeline.NewRunner(refStore, []pipeline.SourceAdapter{down}, nil, store, nil, nil)

	err := runner.Run(context.Background())
	var srcErr *domain.SourceUnavailableError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceUnavailableError, got %v", err)
	}
	if fetchCalls != 1 {
		t.Errorf("expected no retries, adapter fetched %d times", fetchCalls)
	}
	if len(store.Replaced) != 0 {
		t.Error("ledger must not be written when a source is unavailable")
	}
}

func TestRunner_ConfigurationErrorFatalAtStart(t *testing.T) {
	refStore := &MockReferenceStore{
		LoadFunc: func(ctx context.Context) (*refdata.ReferenceData, error) {
			return nil, &refdata.ConfigurationError{Field: "credit_card_account is not set"}
		},
	}
	adapterCalled := false
	bank := &MockAdapter{
		Src: domain.SourceBank,
		FetchFunc: func(ctx context.Context) ([]domain.RawRecord, error) {
			adapterCalled = true
			return nil, nil
		},
	}

	runner := pipeline.NewRunner(refStore, []pipeline.SourceAdapter{bank}, nil, &MockLedgerStore{}, nil, nil)
	err := runner.Run(context.Background())

	var cfgErr *refdata.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if adapterCalled {
		t.Error("sources must not be fetched when reference data is invalid")
	}
}

// MockIncomeSheet supplies pre-classified income rows.
type MockIncomeSheet struct {
	Rows []domain.Transaction
}

func (m *MockIncomeSheet) FetchTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return m.Rows, nil
}

func TestRunner_IncomeSheetAppended(t *testing.T) {
	refStore := &MockReferenceStore{
		LoadFunc: func(ctx context.Context) (*refdata.ReferenceData, error) {
			return testRef(), nil
		},
	}
	bank := &MockAdapter{
		Src: domain.SourceBank,
		FetchFunc: func(ctx context.Context) ([]domain.RawRecord, error) {
			return []domain.RawRecord{
				{PostDate: date(2024, 2, 1), Account: "Checking", Amount: "10.00", Description: "DEPOSIT"},
			}, nil
		},
	}
	sheet := &MockIncomeSheet{Rows: []domain.Transaction{{
		PostDate:    date(2024, 2, 5),
		TxnDate:     date(2024, 2, 5),
		Account:     "Upwork",
		Amount:      mustAmount(t, "250.00"),
		Description: "Hourly - Client A",
		Type:        "Hourly",
		Flow:        domain.FlowIncome,
		Category:    "Upwork Income",
	}}}

	store := &MockLedgerStore{}
	runner := pipeline.NewRunner(refStore, []pipeline.SourceAdapter{bank}, sheet, store, nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := store.Replaced[0]
	if len(got) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(got))
	}
	// Sorted by post date descending: the income sheet row is newest.
	if got[0].Account != "Upwork" || got[0].Category != "Upwork Income" {
		t.Errorf("income sheet row not assembled: %+v", got[0])
	}
}

func mustAmount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := normalize.ParseAmount(s)
	if err != nil {
		t.Fatalf("parsing amount %q: %v", s, err)
	}
	return v
}
