package bigquery

import (
	"math/big"
	"time"
)

const holdingsTable = "holdings"

type HoldingRow struct {
	Symbol   string   `bigquery:"symbol"`   // REQUIRED
	Name     string   `bigquery:"name"`     // REQUIRED
	Provider string   `bigquery:"provider"` // robinhood / coinbase
	Quantity *big.Rat `bigquery:"quantity"` // REQUIRED NUMERIC
	ValueUSD *big.Rat `bigquery:"value_usd"` // REQUIRED NUMERIC

	SnapshotTS time.Time `bigquery:"snapshot_ts"` // REQUIRED
}
