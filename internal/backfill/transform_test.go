package backfill

import (
	"encoding/json"
	"testing"

	"github.com/dvloznov/money-manager/internal/domain"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", `[{"a":1}]`, `[{"a":1}]`},
		{"json fence", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"bare fence", "```\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"leading prose", "Here is the result:\n[{\"a\":1}]", `[{"a":1}]`},
		{"surrounding junk", "x [1,2] y", `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransformModelOutput(t *testing.T) {
	raw := `[
		{"date": "2023-05-01", "description": "PURCHASE ON 04-28 STORE X", "amount": -42.50, "type": "Debit Card"},
		{"date": "2023-05-03", "description": "DIRECT DEPOSIT", "amount": 1500, "type": null}
	]`
	var parsed []interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	records, err := transformModelOutput(parsed, "Checking")
	if err != nil {
		t.Fatalf("transformModelOutput: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if domain.FormatDate(first.PostDate) != "05/01/2023" {
		t.Errorf("post date = %s", domain.FormatDate(first.PostDate))
	}
	if first.Amount != "-42.50" {
		t.Errorf("amount = %q", first.Amount)
	}
	if first.Account != "Checking" || first.Type != "Debit Card" {
		t.Errorf("record = %+v", first)
	}
	if records[1].Amount != "1500.00" {
		t.Errorf("deposit amount = %q", records[1].Amount)
	}
	if records[1].Type != "" {
		t.Errorf("null type = %q", records[1].Type)
	}
}

func TestTransformModelOutput_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing date", `[{"description": "X", "amount": 1}]`},
		{"bad date", `[{"date": "05/01/2023", "description": "X", "amount": 1}]`},
		{"amount as string", `[{"date": "2023-05-01", "description": "X", "amount": "1.00"}]`},
		{"element not object", `[42]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parsed []interface{}
			if err := json.Unmarshal([]byte(tt.raw), &parsed); err != nil {
				t.Fatalf("unmarshal fixture: %v", err)
			}
			if _, err := transformModelOutput(parsed, "Checking"); err == nil {
				t.Error("expected error")
			}
		})
	}
}
