package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	bq "github.com/dvloznov/money-manager/internal/infra/bigquery"
	"github.com/dvloznov/money-manager/internal/jobs"
)

// MockPublisher implements jobs.Publisher for testing.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, job *jobs.RefreshLedgerJob) error
	Published   []*jobs.RefreshLedgerJob
}

func (m *MockPublisher) PublishRefreshLedger(ctx context.Context, job *jobs.RefreshLedgerJob) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, job); err != nil {
			return err
		}
	}
	if job.JobID == "" {
		job.JobID = "job-123"
	}
	job.Status = jobs.JobStatusPending
	m.Published = append(m.Published, job)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// MockLedgerRepository implements LedgerRepository for testing.
type MockLedgerRepository struct {
	QueryLedgerFunc            func(ctx context.Context) ([]*bq.LedgerRow, error)
	QueryLedgerByDateRangeFunc func(ctx context.Context, start, end time.Time) ([]*bq.LedgerRow, error)
}

func (m *MockLedgerRepository) QueryLedger(ctx context.Context) ([]*bq.LedgerRow, error) {
	return m.QueryLedgerFunc(ctx)
}

func (m *MockLedgerRepository) QueryLedgerByDateRange(ctx context.Context, start, end time.Time) ([]*bq.LedgerRow, error) {
	return m.QueryLedgerByDateRangeFunc(ctx, start, end)
}

// MockJobStore implements jobs.JobStore for testing.
type MockJobStore struct {
	Jobs map[string]*jobs.RefreshLedgerJob
}

func (m *MockJobStore) SaveJob(ctx context.Context, job *jobs.RefreshLedgerJob) error {
	m.Jobs[job.JobID] = job
	return nil
}

func (m *MockJobStore) GetJob(ctx context.Context, jobID string) (*jobs.RefreshLedgerJob, error) {
	job, ok := m.Jobs[jobID]
	if !ok {
		return nil, errors.New("job not found: " + jobID)
	}
	return job, nil
}

func (m *MockJobStore) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.RefreshLedgerJob, error) {
	var out []*jobs.RefreshLedgerJob
	for _, job := range m.Jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func sampleRow() *bq.LedgerRow {
	return &bq.LedgerRow{
		RowID:           "row-1",
		PostDate:        civil.Date{Year: 2024, Month: time.February, Day: 1},
		TransactionDate: civil.Date{Year: 2024, Month: time.January, Day: 15},
		Account:         "First Bank Checking",
		Amount:          big.NewRat(5000, 100),
		Description:     "PURCHASE STORE X",
		TxnType:         bigquery.NullString{StringVal: "Debit Card Purchase", Valid: true},
		Indicator:       "Debit",
		Flow:            "Expense",
		RefreshedTS:     time.Now(),
	}
}

func TestEnqueueRefresh(t *testing.T) {
	publisher := &MockPublisher{}
	handler := NewRefreshHandler(publisher, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()

	handler.EnqueueRefresh(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}
	if len(publisher.Published) != 1 {
		t.Fatalf("expected 1 published job, got %d", len(publisher.Published))
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["job_id"] != "job-123" {
		t.Errorf("expected job_id job-123, got %q", body["job_id"])
	}
	if body["status"] != string(jobs.JobStatusPending) {
		t.Errorf("expected status pending, got %q", body["status"])
	}
}

func TestEnqueueRefresh_PublishError(t *testing.T) {
	publisher := &MockPublisher{
		PublishFunc: func(ctx context.Context, job *jobs.RefreshLedgerJob) error {
			return errors.New("queue is closed")
		},
	}
	handler := NewRefreshHandler(publisher, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()

	handler.EnqueueRefresh(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestListLedger(t *testing.T) {
	repo := &MockLedgerRepository{
		QueryLedgerFunc: func(ctx context.Context) ([]*bq.LedgerRow, error) {
			row := sampleRow()
			row.Category = bigquery.NullString{StringVal: "Shopping", Valid: true}
			return []*bq.LedgerRow{row}, nil
		},
	}
	handler := NewLedgerHandler(repo, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/ledger", nil)
	rec := httptest.NewRecorder()

	handler.ListLedger(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var body struct {
		Transactions []ledgerEntry `json:"transactions"`
		Count        int           `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("expected count 1, got %d", body.Count)
	}

	entry := body.Transactions[0]
	if entry.Amount != "50.00" {
		t.Errorf("expected amount 50.00, got %q", entry.Amount)
	}
	if entry.PostDate != "2024-02-01" {
		t.Errorf("expected post_date 2024-02-01, got %q", entry.PostDate)
	}
	if entry.Category != "Shopping" {
		t.Errorf("expected category Shopping, got %q", entry.Category)
	}
}

func TestListLedger_DateRange(t *testing.T) {
	var gotStart, gotEnd time.Time
	repo := &MockLedgerRepository{
		QueryLedgerByDateRangeFunc: func(ctx context.Context, start, end time.Time) ([]*bq.LedgerRow, error) {
			gotStart = start
			gotEnd = end
			return nil, nil
		},
	}
	handler := NewLedgerHandler(repo, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/ledger?start_date=2024-01-01&end_date=2024-03-31", nil)
	rec := httptest.NewRecorder()

	handler.ListLedger(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if gotStart.Format("2006-01-02") != "2024-01-01" {
		t.Errorf("expected start 2024-01-01, got %s", gotStart.Format("2006-01-02"))
	}
	if gotEnd.Format("2006-01-02") != "2024-03-31" {
		t.Errorf("expected end 2024-03-31, got %s", gotEnd.Format("2006-01-02"))
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 0 {
		t.Errorf("expected count 0, got %d", body.Count)
	}
}

func TestListLedger_InvalidDate(t *testing.T) {
	handler := NewLedgerHandler(&MockLedgerRepository{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/ledger?start_date=01/01/2024", nil)
	rec := httptest.NewRecorder()

	handler.ListLedger(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestGetJob(t *testing.T) {
	store := &MockJobStore{Jobs: map[string]*jobs.RefreshLedgerJob{
		"job-1": {JobID: "job-1", Status: jobs.JobStatusCompleted, TransactionCount: 42},
	}}
	handler := NewJobsHandler(store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
	rec := httptest.NewRecorder()

	handler.GetJob(rec, req, "job-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var job jobs.RefreshLedgerJob
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if job.Status != jobs.JobStatusCompleted {
		t.Errorf("expected status completed, got %q", job.Status)
	}
	if job.TransactionCount != 42 {
		t.Errorf("expected transaction count 42, got %d", job.TransactionCount)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	store := &MockJobStore{Jobs: map[string]*jobs.RefreshLedgerJob{}}
	handler := NewJobsHandler(store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)
	rec := httptest.NewRecorder()

	handler.GetJob(rec, req, "missing")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestListJobs_StatusFilter(t *testing.T) {
	store := &MockJobStore{Jobs: map[string]*jobs.RefreshLedgerJob{
		"job-1": {JobID: "job-1", Status: jobs.JobStatusCompleted},
		"job-2": {JobID: "job-2", Status: jobs.JobStatusFailed},
	}}
	handler := NewJobsHandler(store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?status=failed", nil)
	rec := httptest.NewRecorder()

	handler.ListJobs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var body struct {
		Jobs  []*jobs.RefreshLedgerJob `json:"jobs"`
		Count int                      `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("expected 1 job, got %d", body.Count)
	}
	if body.Jobs[0].JobID != "job-2" {
		t.Errorf("expected job-2, got %q", body.Jobs[0].JobID)
	}
}
