package upwork

import (
	"testing"

	"github.com/dvloznov/money-manager/internal/domain"
)

const sampleWorksheet = `Date,Amount $,Transaction Type,Transaction Summary
01/10/2024,500.00,Fixed-price,Milestone 1 - Client A
01/12/2024,-50.00,Service Fee,Upwork service fee
01/15/2024,1200.00,Hourly,Week of Jan 8 - Client B
01/20/2024,75.00,Bonus,Project bonus - Client A
01/25/2024,30.00,Expense reimbursement,Stock photos
01/31/2024,-1500.00,Withdrawal,Transfer to bank
`

func TestParseWorksheet(t *testing.T) {
	txs, err := ParseWorksheet([]byte(sampleWorksheet))
	if err != nil {
		t.Fatalf("ParseWorksheet: %v", err)
	}

	// Fees and withdrawals are skipped; four income types survive.
	if len(txs) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(txs))
	}

	for _, tx := range txs {
		if tx.Account != "Upwork" {
			t.Errorf("account = %q", tx.Account)
		}
		if tx.Flow != domain.FlowIncome {
			t.Errorf("flow = %s for %q", tx.Flow, tx.Description)
		}
		if tx.Category != "Upwork Income" {
			t.Errorf("category = %q for %q", tx.Category, tx.Description)
		}
		if !tx.TxnDate.Equal(tx.PostDate) {
			t.Errorf("transaction date %v != post date %v", tx.TxnDate, tx.PostDate)
		}
	}

	if txs[0].Amount.String() != "500" || txs[0].Type != "Fixed-price" {
		t.Errorf("first transaction = %+v", txs[0])
	}
	if domain.FormatDate(txs[2].PostDate) != "01/20/2024" {
		t.Errorf("third transaction date = %s", domain.FormatDate(txs[2].PostDate))
	}
}

func TestParseWorksheet_MissingColumn(t *testing.T) {
	data := []byte("Date,Amount $,Transaction Summary\n01/10/2024,500.00,Milestone\n")
	if _, err := ParseWorksheet(data); err == nil {
		t.Error("expected error for missing Transaction Type column")
	}
}

func TestParseWorksheet_BadAmount(t *testing.T) {
	data := []byte("Date,Amount $,Transaction Type,Transaction Summary\n01/10/2024,abc,Hourly,Week 1\n")
	if _, err := ParseWorksheet(data); err == nil {
		t.Error("expected error for malformed amount")
	}
}
