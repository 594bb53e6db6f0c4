package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/money-manager/internal/api/middleware"
	"github.com/dvloznov/money-manager/internal/infra/bigquery"
	"github.com/dvloznov/money-manager/internal/jobs"
	"github.com/rs/zerolog"
)

// LedgerRepository is the subset of the BigQuery repository the API reads from.
type LedgerRepository interface {
	QueryLedger(ctx context.Context) ([]*bigquery.LedgerRow, error)
	QueryLedgerByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*bigquery.LedgerRow, error)
}

// RefreshHandler handles ledger refresh endpoints.
type RefreshHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(publisher jobs.Publisher, log zerolog.Logger) *RefreshHandler {
	return &RefreshHandler{
		publisher: publisher,
		log:       log,
	}
}

// EnqueueRefresh handles POST /api/refresh
func (h *RefreshHandler) EnqueueRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	job := &jobs.RefreshLedgerJob{}

	if err := h.publisher.PublishRefreshLedger(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue refresh job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue refresh job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Refresh job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// LedgerHandler handles ledger read endpoints.
type LedgerHandler struct {
	repo LedgerRepository
	log  zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(repo LedgerRepository, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		repo: repo,
		log:  log,
	}
}

// ledgerEntry is the JSON shape of one ledger row. Amounts are rendered
// as fixed two-decimal strings so clients never see float artifacts.
type ledgerEntry struct {
	RowID           string `json:"row_id"`
	PostDate        string `json:"post_date"`
	TransactionDate string `json:"transaction_date"`
	Account         string `json:"account"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	Type            string `json:"type,omitempty"`
	Category        string `json:"category,omitempty"`
	Indicator       string `json:"indicator"`
	Flow            string `json:"flow"`
}

func toLedgerEntry(row *bigquery.LedgerRow) ledgerEntry {
	entry := ledgerEntry{
		RowID:           row.RowID,
		PostDate:        row.PostDate.String(),
		TransactionDate: row.TransactionDate.String(),
		Account:         row.Account,
		Description:     row.Description,
		Indicator:       row.Indicator,
		Flow:            row.Flow,
	}
	if row.Amount != nil {
		entry.Amount = row.Amount.FloatString(2)
	}
	if row.TxnType.Valid {
		entry.Type = row.TxnType.StringVal
	}
	if row.Category.Valid {
		entry.Category = row.Category.StringVal
	}
	return entry
}

// ListLedger handles GET /api/ledger
func (h *LedgerHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	startDateStr := query.Get("start_date")
	endDateStr := query.Get("end_date")

	var rows []*bigquery.LedgerRow
	var err error

	if startDateStr != "" || endDateStr != "" {
		var startDate, endDate time.Time

		if startDateStr != "" {
			startDate, err = time.Parse("2006-01-02", startDateStr)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
				return
			}
		} else {
			startDate = time.Now().AddDate(-1, 0, 0)
		}

		if endDateStr != "" {
			endDate, err = time.Parse("2006-01-02", endDateStr)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
				return
			}
		} else {
			endDate = time.Now()
		}

		rows, err = h.repo.QueryLedgerByDateRange(ctx, startDate, endDate)
	} else {
		rows, err = h.repo.QueryLedger(ctx)
	}

	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query ledger")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query ledger")
		return
	}

	entries := make([]ledgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toLedgerEntry(row))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": entries,
		"count":        len(entries),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
