package refdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/money-manager/internal/domain"
)

const sampleDocument = `{
	"category_rules": [
		{"pattern": "AMAZON", "category": "Shopping"},
		{"pattern": "AMAZON PRIME", "category": "Subscriptions"}
	],
	"exclusions": ["TRANSFER", "PAYMENT THANK YOU"],
	"manual_overrides": [
		{"post_date": "03/01/2024", "amount": "42.00", "description": "COFFEE SHOP", "category": "Dining"}
	],
	"flow_overrides": [
		{"account": "Robinhood Brokerage", "indicator": "Credit", "flow": "Income"},
		{"account": "Robinhood Cash Card", "indicator": "Debit", "flow": "Expense"}
	],
	"corrections": [
		{
			"removals": [
				{"amount": "16815.39", "flow": "Income", "post_date": "02/24/2025"},
				{"amount": "17316.39", "flow": "Expense", "post_date": "02/25/2025"}
			],
			"replacement": {
				"post_date": "02/25/2025",
				"account": "Premier Checking",
				"amount": "500",
				"description": "Safeco Insurance Deductible - HOA Roof Replacement",
				"type": "DEBIT",
				"flow": "Expense",
				"category": ""
			}
		}
	],
	"account_names": ["Premier Checking", "Savings", "Robinhood Brokerage", "Robinhood Cash Management"],
	"credit_card_account": "Visa Credit Card"
}`

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refdata.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestFileStore_Load(t *testing.T) {
	store := NewFileStore(writeTempFile(t, sampleDocument))

	ref, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(ref.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(ref.Rules))
	}
	// Rule order must match the file exactly; first-match-wins depends on it.
	if ref.Rules[0].Pattern != "AMAZON" || ref.Rules[1].Pattern != "AMAZON PRIME" {
		t.Errorf("rule order not preserved: %+v", ref.Rules)
	}

	if ref.CreditCardAccount != "Visa Credit Card" {
		t.Errorf("credit card account = %q", ref.CreditCardAccount)
	}
	if len(ref.Exclusions) != 2 {
		t.Errorf("expected 2 exclusions, got %d", len(ref.Exclusions))
	}

	if len(ref.ManualOverrides) != 1 {
		t.Fatalf("expected 1 manual override, got %d", len(ref.ManualOverrides))
	}
	mo := ref.ManualOverrides[0]
	if domain.FormatDate(mo.PostDate) != "03/01/2024" {
		t.Errorf("override post date = %s", domain.FormatDate(mo.PostDate))
	}
	if mo.Amount.String() != "42" {
		t.Errorf("override amount = %s", mo.Amount)
	}

	if len(ref.Corrections) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(ref.Corrections))
	}
	corr := ref.Corrections[0]
	if len(corr.Removals) != 2 {
		t.Errorf("expected 2 removal keys, got %d", len(corr.Removals))
	}
	if corr.Replacement == nil || corr.Replacement.Flow != domain.FlowExpense {
		t.Errorf("unexpected replacement: %+v", corr.Replacement)
	}
	if !corr.Replacement.TxnDate.Equal(corr.Replacement.PostDate) {
		t.Error("replacement transaction date should default to its post date")
	}
}

func TestFileStore_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "malformed JSON",
			content: `{"category_rules": [`,
		},
		{
			name:    "missing credit card account",
			content: `{"account_names": ["Checking"], "credit_card_account": ""}`,
		},
		{
			name:    "bad override date",
			content: `{"account_names": ["Checking"], "credit_card_account": "Card", "manual_overrides": [{"post_date": "2024-03-01", "amount": "1", "description": "X", "category": "Y"}]}`,
		},
		{
			name:    "bad override amount",
			content: `{"account_names": ["Checking"], "credit_card_account": "Card", "manual_overrides": [{"post_date": "03/01/2024", "amount": "abc", "description": "X", "category": "Y"}]}`,
		},
		{
			name:    "empty rule pattern",
			content: `{"account_names": ["Checking"], "credit_card_account": "Card", "category_rules": [{"pattern": "", "category": "Y"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewFileStore(writeTempFile(t, tt.content))
			_, err := store.Load(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigurationError, got %T: %v", err, err)
			}
		})
	}
}

func TestFileStore_Load_MissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	_, err := store.Load(context.Background())
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError for missing file, got %v", err)
	}
}
