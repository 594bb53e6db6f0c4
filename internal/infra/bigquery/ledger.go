package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/money-manager/internal/domain"
)

const (
	projectID   = "studious-union-470122-v7"
	datasetID   = "bookkeeping"
	ledgerTable = "ledger"
	dateFormat  = "2006-01-02"
)

type LedgerRow struct {
	RowID string `bigquery:"row_id"` // REQUIRED

	PostDate        civil.Date `bigquery:"post_date"`        // REQUIRED
	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Account string   `bigquery:"account"` // REQUIRED
	Amount  *big.Rat `bigquery:"amount"`  // REQUIRED NUMERIC

	Description string              `bigquery:"description"` // REQUIRED
	TxnType     bigquery.NullString `bigquery:"txn_type"`    // NULLABLE

	Indicator string              `bigquery:"indicator"` // Credit / Debit
	Flow      string              `bigquery:"flow"`      // Income / Expense
	Category  bigquery.NullString `bigquery:"category"`  // NULLABLE

	RefreshedTS time.Time `bigquery:"refreshed_ts"` // REQUIRED
}

// RowFromTransaction converts a ledger transaction into its BigQuery row.
func RowFromTransaction(tx domain.Transaction, refreshedTS time.Time) *LedgerRow {
	row := &LedgerRow{
		RowID:           tx.ID,
		PostDate:        civil.DateOf(tx.PostDate),
		TransactionDate: civil.DateOf(tx.TxnDate),
		Account:         tx.Account,
		Amount:          tx.Amount.Rat(),
		Description:     tx.Description,
		Indicator:       string(tx.Indicator),
		Flow:            string(tx.Flow),
		RefreshedTS:     refreshedTS,
	}
	if tx.Type != "" {
		row.TxnType = bigquery.NullString{StringVal: tx.Type, Valid: true}
	}
	if tx.Category != "" {
		row.Category = bigquery.NullString{StringVal: tx.Category, Valid: true}
	}
	return row
}

// TransactionFromRow converts a BigQuery row back into a ledger transaction.
func TransactionFromRow(row *LedgerRow) (domain.Transaction, error) {
	if row.Amount == nil {
		return domain.Transaction{}, fmt.Errorf("TransactionFromRow: row %s has no amount", row.RowID)
	}
	return domain.Transaction{
		ID:          row.RowID,
		PostDate:    row.PostDate.In(time.UTC),
		TxnDate:     row.TransactionDate.In(time.UTC),
		Account:     row.Account,
		Amount:      decimal.NewFromBigRat(row.Amount, 2),
		Description: row.Description,
		Type:        row.TxnType.StringVal,
		Indicator:   domain.Indicator(row.Indicator),
		Flow:        domain.Flow(row.Flow),
		Category:    row.Category.StringVal,
	}, nil
}
