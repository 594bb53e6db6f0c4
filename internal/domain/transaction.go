package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the presentation format for all ledger dates.
// Dates stay time.Time internally and are rendered at the edges
// (Notion, the API, the run log).
const DateLayout = "01/02/2006"

// Source identifies which adapter produced a raw record.
type Source string

const (
	SourceBank              Source = "firstbank"
	SourceBrokerageSpending Source = "robinhood_spending"
	SourceBrokerageIncome   Source = "robinhood_income"
	SourceStatementBackfill Source = "statement_backfill"
	SourceOtherIncome       Source = "upwork"
)

// Indicator classifies a transaction by the sign of its raw amount.
type Indicator string

const (
	IndicatorCredit Indicator = "Credit"
	IndicatorDebit  Indicator = "Debit"
)

// Flow is the income/expense label assigned by the classifier.
type Flow string

const (
	FlowIncome  Flow = "Income"
	FlowExpense Flow = "Expense"
)

// RawRecord is one source-native row, already mapped by its adapter onto
// a common field set but not yet normalized. Amount is kept as the raw
// text the source produced ("$1,234.56", "(50.00)", "-20.00"); adapters
// for API sources that report direction instead of sign fold the
// direction into the sign before handing records over.
type RawRecord struct {
	PostDate    time.Time
	Account     string
	Amount      string
	Description string
	Type        string
}

// Transaction is the canonical ledger entry. It is created by the
// normalizer and mutated through the classification stages within a
// single run; the assembler then hands the finished batch to the ledger
// store wholesale.
type Transaction struct {
	ID string // row identity for the ledger store and the Notion mirror

	PostDate time.Time
	// TxnDate is the date the transaction actually occurred, inferred
	// from the description when an embedded date fragment is present,
	// otherwise equal to PostDate.
	TxnDate time.Time

	Account     string
	Amount      decimal.Decimal
	Description string
	Type        string

	Indicator Indicator
	Exclude   bool

	Flow     Flow
	Category string
}

// FormatDate renders a ledger date as MM/DD/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
