package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// ReplaceHoldings replaces the contents of bookkeeping.holdings with the
// given snapshot.
func ReplaceHoldings(ctx context.Context, rows []*HoldingRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("ReplaceHoldings: bigquery client: %w", err)
	}
	defer client.Close()

	return ReplaceHoldingsWithClient(ctx, client, rows)
}

// replaceHoldingsScript is one multi-statement transaction, matching the
// ledger replace: delete and insert commit together.
func replaceHoldingsScript() string {
	table := "`" + projectID + "." + datasetID + "." + holdingsTable + "`"
	return `
		BEGIN TRANSACTION;

		DELETE FROM ` + table + ` WHERE TRUE;

		INSERT INTO ` + table + `
			(symbol, name, provider, quantity, value_usd, snapshot_ts)
		SELECT
			symbol, name, provider, quantity, value_usd, snapshot_ts
		FROM UNNEST(@rows);

		COMMIT TRANSACTION;
	`
}

// ReplaceHoldingsWithClient replaces the holdings snapshot using the
// provided BigQuery client.
func ReplaceHoldingsWithClient(ctx context.Context, client *bigquery.Client, rows []*HoldingRow) error {
	if len(rows) == 0 {
		q := client.Query(`
			DELETE FROM ` + "`" + projectID + "." + datasetID + "." + holdingsTable + "`" + `
			WHERE TRUE
		`)
		return runReplaceJob(ctx, q, "ReplaceHoldings")
	}

	vals := make([]HoldingRow, len(rows))
	for i, r := range rows {
		vals[i] = *r
	}

	q := client.Query(replaceHoldingsScript())
	q.Parameters = []bigquery.QueryParameter{
		{Name: "rows", Value: vals},
	}

	return runReplaceJob(ctx, q, "ReplaceHoldings")
}
