package bigquery

import (
	"strings"
	"testing"
)

// Replacing a stored snapshot must be all-or-nothing: a failure mid-way
// can never leave the table empty. Both replace scripts run delete and
// insert inside one transaction.
func TestReplaceScriptsAreTransactional(t *testing.T) {
	tests := []struct {
		name   string
		script string
		table  string
	}{
		{"ledger", replaceLedgerScript(), projectID + "." + datasetID + "." + ledgerTable},
		{"holdings", replaceHoldingsScript(), projectID + "." + datasetID + "." + holdingsTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stmts []string
			for _, s := range strings.Split(tt.script, ";") {
				if s = strings.Join(strings.Fields(s), " "); s != "" {
					stmts = append(stmts, s)
				}
			}

			if len(stmts) != 4 {
				t.Fatalf("expected 4 statements, got %d: %q", len(stmts), stmts)
			}
			if stmts[0] != "BEGIN TRANSACTION" {
				t.Errorf("script must open a transaction, got %q", stmts[0])
			}
			if stmts[3] != "COMMIT TRANSACTION" {
				t.Errorf("script must commit the transaction, got %q", stmts[3])
			}

			table := "`" + tt.table + "`"
			if !strings.HasPrefix(stmts[1], "DELETE FROM "+table) {
				t.Errorf("delete must target %s, got %q", table, stmts[1])
			}
			if !strings.HasPrefix(stmts[2], "INSERT INTO "+table) {
				t.Errorf("insert must target %s, got %q", table, stmts[2])
			}
			if !strings.Contains(stmts[2], "FROM UNNEST(@rows)") {
				t.Errorf("insert must read from the @rows parameter, got %q", stmts[2])
			}
		})
	}
}

func TestReplaceLedgerScriptColumns(t *testing.T) {
	script := replaceLedgerScript()

	// Insert column list and select list must stay aligned with the
	// ledger schema.
	for _, col := range []string{
		"row_id", "post_date", "transaction_date", "account", "amount",
		"description", "txn_type", "indicator", "flow", "category",
		"refreshed_ts",
	} {
		if n := strings.Count(script, col); n != 2 {
			t.Errorf("column %s should appear in both the insert and select lists, found %d", col, n)
		}
	}
}
