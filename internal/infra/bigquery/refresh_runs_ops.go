package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/money-manager/internal/logger"
)

const refreshRunsTable = "refresh_runs"

// StartRefreshRun inserts a new row into bookkeeping.refresh_runs with
// status=RUNNING and returns the generated refresh_run_id.
func StartRefreshRun(ctx context.Context) (string, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("StartRefreshRun: bigquery client: %w", err)
	}
	defer client.Close()

	return StartRefreshRunWithClient(ctx, client)
}

// StartRefreshRunWithClient inserts a new RUNNING row into
// bookkeeping.refresh_runs using the provided BigQuery client.
func StartRefreshRunWithClient(ctx context.Context, client *bigquery.Client) (string, error) {
	refreshRunID := uuid.NewString()
	started := time.Now()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			refresh_run_id,
			started_ts,
			status
		)
		VALUES (
			@refresh_run_id,
			@started_ts,
			@status
		)
	`, datasetID, refreshRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "refresh_run_id", Value: refreshRunID},
		{Name: "started_ts", Value: started},
		{Name: "status", Value: "RUNNING"},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("StartRefreshRun: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("StartRefreshRun: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return "", fmt.Errorf("StartRefreshRun: job error: %w", err)
	}

	return refreshRunID, nil
}

// MarkRefreshRunFailed sets status=FAILED, finished_ts and error_message.
// Failures here are logged rather than returned: the run error being
// recorded must not be masked by bookkeeping errors.
func MarkRefreshRunFailed(ctx context.Context, refreshRunID string, runErr error) {
	log := logger.FromContext(ctx)

	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		log.Error().
			Err(err).
			Str("refresh_run_id", refreshRunID).
			Msg("MarkRefreshRunFailed: bigquery client error")
		return
	}
	defer client.Close()

	MarkRefreshRunFailedWithClient(ctx, client, refreshRunID, runErr)
}

// MarkRefreshRunFailedWithClient sets status=FAILED, finished_ts and
// error_message using the provided BigQuery client.
func MarkRefreshRunFailedWithClient(ctx context.Context, client *bigquery.Client, refreshRunID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE refresh_run_id = @refresh_run_id
	`, datasetID, refreshRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "refresh_run_id", Value: refreshRunID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("refresh_run_id", refreshRunID).
			Msg("MarkRefreshRunFailed: running update query")
		return
	}

	status, err := job.Wait(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("refresh_run_id", refreshRunID).
			Msg("MarkRefreshRunFailed: waiting for job")
		return
	}
	if err := status.Err(); err != nil {
		log.Error().
			Err(err).
			Str("refresh_run_id", refreshRunID).
			Msg("MarkRefreshRunFailed: job completed with error")
	}
}

// MarkRefreshRunSucceeded sets status=SUCCESS, finished_ts and the ledger
// row count, clears error_message.
func MarkRefreshRunSucceeded(ctx context.Context, refreshRunID string, transactionCount int) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("MarkRefreshRunSucceeded: bigquery client: %w", err)
	}
	defer client.Close()

	return MarkRefreshRunSucceededWithClient(ctx, client, refreshRunID, transactionCount)
}

// MarkRefreshRunSucceededWithClient sets status=SUCCESS using the provided
// BigQuery client.
func MarkRefreshRunSucceededWithClient(ctx context.Context, client *bigquery.Client, refreshRunID string, transactionCount int) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    transaction_count = @transaction_count
		WHERE refresh_run_id = @refresh_run_id
	`, datasetID, refreshRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "transaction_count", Value: int64(transactionCount)},
		{Name: "refresh_run_id", Value: refreshRunID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkRefreshRunSucceeded: running update query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkRefreshRunSucceeded: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("MarkRefreshRunSucceeded: job error: %w", err)
	}

	return nil
}
