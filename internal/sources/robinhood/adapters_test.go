package robinhood

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvloznov/money-manager/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClientWithHTTPClient("test-token", server.Client())
	c.CardURL = server.URL + "/cards/settled_transactions/"
	c.TransfersURL = server.URL + "/paymenthub/unified_transfers/"
	c.SweepsURL = server.URL + "/accounts/sweeps"
	return c
}

func TestSpendingAdapter_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cards/settled_transactions/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(`{"results": [
			{"post_date": "2024-02-01", "amount": {"amount": "12.50", "currency": "USD"}, "merchant_description": "COFFEE SHOP", "direction": "debit"},
			{"post_date": "2024-02-03T10:30:00Z", "amount": {"amount": "5.00", "currency": "USD"}, "merchant_description": "REFUND STORE", "direction": "credit"}
		]}`))
	})
	mux.HandleFunc("/paymenthub/unified_transfers/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"amount": "2000.00", "transfer_type": "ach", "details": {"description": "PAYROLL", "settlement_date": "2024-02-02", "originator_name": "ACME CORP", "direction": "credit"}},
			{"amount": "300.00", "transfer_type": "ach", "details": {"description": "WITHDRAWAL", "settlement_date": "2024-02-04", "originator_name": "", "direction": "debit"}}
		]}`))
	})

	a := NewSpendingAdapter(newTestClient(t, mux))
	records, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Two card transactions plus the one PAYROLL transfer.
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	card := records[0]
	if card.Account != "Robinhood Cash Card" || card.Type != "CASH CARD" {
		t.Errorf("card record = %+v", card)
	}
	if card.Amount != "-12.50" {
		t.Errorf("debit amount = %q, want -12.50", card.Amount)
	}
	if records[1].Amount != "5.00" {
		t.Errorf("credit amount = %q, want 5.00", records[1].Amount)
	}

	payroll := records[2]
	if payroll.Account != "Robinhood Cash Management" {
		t.Errorf("payroll account = %q", payroll.Account)
	}
	if payroll.Description != "PAYROLL ACME CORP" {
		t.Errorf("payroll description = %q", payroll.Description)
	}
	if domain.FormatDate(payroll.PostDate) != "02/02/2024" {
		t.Errorf("payroll date = %s", domain.FormatDate(payroll.PostDate))
	}
}

func TestIncomeAdapter_FetchFiltersOldSweeps(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/sweeps", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"pay_date": "2021-10-15", "amount": {"amount": "0.42"}, "reason": "interest_payment", "direction": "credit"},
			{"pay_date": "2021-11-01", "amount": {"amount": "0.55"}, "reason": "interest_payment", "direction": "credit"},
			{"pay_date": "2024-01-31", "amount": {"amount": "3.10"}, "reason": "interest_payment", "direction": "credit"}
		]}`))
	})

	a := NewIncomeAdapter(newTestClient(t, mux), "Robinhood Brokerage")
	records, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The cutoff is inclusive: the 2021-11-01 sweep stays.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if domain.FormatDate(records[0].PostDate) != "11/01/2021" {
		t.Errorf("first sweep date = %s", domain.FormatDate(records[0].PostDate))
	}
	if records[0].Account != "Robinhood Brokerage" || records[0].Type != "INTEREST" {
		t.Errorf("sweep record = %+v", records[0])
	}
}

func TestFetch_ServerErrorSurfacesSourceUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})

	spending := NewSpendingAdapter(newTestClient(t, mux))
	_, err := spending.Fetch(context.Background())

	var srcErr *domain.SourceUnavailableError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceUnavailableError, got %v", err)
	}
	if srcErr.Source != domain.SourceBrokerageSpending {
		t.Errorf("source = %s", srcErr.Source)
	}
}
