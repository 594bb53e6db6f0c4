package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

const (
	categoryRulesTable   = "category_rules"
	exclusionsTable      = "exclusions"
	manualOverridesTable = "manual_overrides"
	flowOverridesTable   = "flow_overrides"
	correctionsTable     = "corrections"
	accountsTable        = "accounts"
)

type CategoryRuleRow struct {
	Position int64  `bigquery:"position"` // REQUIRED, rule evaluation order
	Pattern  string `bigquery:"pattern"`  // REQUIRED
	Category string `bigquery:"category"` // REQUIRED
}

type ExclusionRow struct {
	Pattern string `bigquery:"pattern"` // REQUIRED, case-sensitive substring
}

type ManualOverrideRow struct {
	PostDate    civil.Date `bigquery:"post_date"`   // REQUIRED
	Amount      *big.Rat   `bigquery:"amount"`      // REQUIRED NUMERIC
	Description string     `bigquery:"description"` // REQUIRED
	Category    string     `bigquery:"category"`    // REQUIRED
}

type FlowOverrideRow struct {
	Account   string `bigquery:"account"`   // REQUIRED
	Indicator string `bigquery:"indicator"` // Credit / Debit
	Flow      string `bigquery:"flow"`      // Income / Expense
}

// CorrectionRow is one step of a correction group. Rows sharing a
// correction_id form one correction: its REMOVE rows name ledger entries
// that must all be present, and its ADD rows are the replacements.
type CorrectionRow struct {
	CorrectionID string `bigquery:"correction_id"` // REQUIRED
	Kind         string `bigquery:"kind"`          // REMOVE / ADD

	Amount   *big.Rat   `bigquery:"amount"`    // REQUIRED NUMERIC
	Flow     string     `bigquery:"flow"`      // REQUIRED
	PostDate civil.Date `bigquery:"post_date"` // REQUIRED

	// Populated on ADD rows only.
	TransactionDate bigquery.NullDate   `bigquery:"transaction_date"`
	Account         bigquery.NullString `bigquery:"account"`
	Description     bigquery.NullString `bigquery:"description"`
	TxnType         bigquery.NullString `bigquery:"txn_type"`
	Category        bigquery.NullString `bigquery:"category"`
}

type AccountRow struct {
	AccountName  string `bigquery:"account_name"`   // REQUIRED
	IsCreditCard bool   `bigquery:"is_credit_card"` // exactly one row true
}
