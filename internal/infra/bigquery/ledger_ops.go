package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ReplaceLedger atomically replaces the full contents of bookkeeping.ledger
// with the given rows.
func ReplaceLedger(ctx context.Context, rows []*LedgerRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("ReplaceLedger: bigquery client: %w", err)
	}
	defer client.Close()

	return ReplaceLedgerWithClient(ctx, client, rows)
}

// replaceLedgerScript is one multi-statement transaction: the delete and
// the insert commit together or not at all. The insert is DML rather
// than a streaming write, so the rows never sit in the streaming buffer
// where the next run's delete would fail against them.
func replaceLedgerScript() string {
	table := "`" + projectID + "." + datasetID + "." + ledgerTable + "`"
	return `
		BEGIN TRANSACTION;

		DELETE FROM ` + table + ` WHERE TRUE;

		INSERT INTO ` + table + `
			(row_id, post_date, transaction_date, account, amount, description,
			 txn_type, indicator, flow, category, refreshed_ts)
		SELECT
			row_id, post_date, transaction_date, account, amount, description,
			txn_type, indicator, flow, category, refreshed_ts
		FROM UNNEST(@rows);

		COMMIT TRANSACTION;
	`
}

// ReplaceLedgerWithClient replaces the full contents of bookkeeping.ledger
// using the provided BigQuery client.
func ReplaceLedgerWithClient(ctx context.Context, client *bigquery.Client, rows []*LedgerRow) error {
	if len(rows) == 0 {
		// A lone DML statement is already atomic.
		q := client.Query(`
			DELETE FROM ` + "`" + projectID + "." + datasetID + "." + ledgerTable + "`" + `
			WHERE TRUE
		`)
		return runReplaceJob(ctx, q, "ReplaceLedger")
	}

	vals := make([]LedgerRow, len(rows))
	for i, r := range rows {
		vals[i] = *r
	}

	q := client.Query(replaceLedgerScript())
	q.Parameters = []bigquery.QueryParameter{
		{Name: "rows", Value: vals},
	}

	return runReplaceJob(ctx, q, "ReplaceLedger")
}

func runReplaceJob(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running replace query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for replace job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: replace job error: %w", op, err)
	}

	return nil
}

// QueryLedger returns the full ledger ordered by post date descending.
func QueryLedger(ctx context.Context) ([]*LedgerRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryLedger: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryLedgerWithClient(ctx, client)
}

// QueryLedgerWithClient returns the full ledger ordered by post date descending
// using the provided BigQuery client.
func QueryLedgerWithClient(ctx context.Context, client *bigquery.Client) ([]*LedgerRow, error) {
	q := client.Query(`
		SELECT
			row_id,
			post_date,
			transaction_date,
			account,
			amount,
			description,
			txn_type,
			indicator,
			flow,
			category,
			refreshed_ts
		FROM ` + datasetID + `.` + ledgerTable + `
		ORDER BY post_date DESC, row_id
	`)

	return readLedgerRows(ctx, q, "QueryLedger")
}

// QueryLedgerByDateRange returns ledger rows whose post date falls within the
// given inclusive range, ordered by post date descending.
func QueryLedgerByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*LedgerRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryLedgerByDateRange: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryLedgerByDateRangeWithClient(ctx, client, startDate, endDate)
}

// QueryLedgerByDateRangeWithClient returns ledger rows within the given range
// using the provided BigQuery client.
func QueryLedgerByDateRangeWithClient(ctx context.Context, client *bigquery.Client, startDate, endDate time.Time) ([]*LedgerRow, error) {
	q := client.Query(`
		SELECT
			row_id,
			post_date,
			transaction_date,
			account,
			amount,
			description,
			txn_type,
			indicator,
			flow,
			category,
			refreshed_ts
		FROM ` + datasetID + `.` + ledgerTable + `
		WHERE post_date >= @start_date
		  AND post_date <= @end_date
		ORDER BY post_date DESC, row_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: startDate.Format(dateFormat)},
		{Name: "end_date", Value: endDate.Format(dateFormat)},
	}

	return readLedgerRows(ctx, q, "QueryLedgerByDateRange")
}

func readLedgerRows(ctx context.Context, q *bigquery.Query, op string) ([]*LedgerRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	var rows []*LedgerRow
	for {
		var r LedgerRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
