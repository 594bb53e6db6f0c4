package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

type RefreshRunRow struct {
	RefreshRunID string `bigquery:"refresh_run_id"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // RUNNING / SUCCESS / FAILED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	TransactionCount bigquery.NullInt64 `bigquery:"transaction_count"` // NULLABLE
}
