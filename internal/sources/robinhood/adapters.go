package robinhood

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/money-manager/internal/domain"
)

const (
	cashCardAccount       = "Robinhood Cash Card"
	cashManagementAccount = "Robinhood Cash Management"

	cashCardType = "CASH CARD"
	interestType = "INTEREST"

	payrollDescription = "PAYROLL"
)

// Interest sweeps before this date predate the tracked period.
var interestCutoff = time.Date(2021, time.November, 1, 0, 0, 0, 0, time.UTC)

// SpendingAdapter fetches cash card transactions and payroll deposits.
type SpendingAdapter struct {
	client *Client
}

func NewSpendingAdapter(client *Client) *SpendingAdapter {
	return &SpendingAdapter{client: client}
}

func (a *SpendingAdapter) Source() domain.Source {
	return domain.SourceBrokerageSpending
}

// Fetch returns the settled card transactions followed by the PAYROLL
// transfers. The API reports unsigned amounts with a direction field;
// debits are folded into negative amounts here.
func (a *SpendingAdapter) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	cards, err := a.client.CardSettledTransactions(ctx)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Source: a.Source(), Err: err}
	}

	var records []domain.RawRecord
	for i, tx := range cards {
		postDate, err := parseAPIDate(tx.PostDate)
		if err != nil {
			return nil, fmt.Errorf("robinhood: card transaction %d: parsing post date %q: %w", i, tx.PostDate, err)
		}
		records = append(records, domain.RawRecord{
			PostDate:    postDate,
			Account:     cashCardAccount,
			Amount:      signAmount(tx.Amount.Amount, tx.Direction),
			Description: tx.MerchantDescription,
			Type:        cashCardType,
		})
	}

	transfers, err := a.client.UnifiedTransfers(ctx)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Source: a.Source(), Err: err}
	}

	for i, tr := range transfers {
		if tr.Details.Description != payrollDescription {
			continue
		}
		postDate, err := parseAPIDate(tr.Details.SettlementDate)
		if err != nil {
			return nil, fmt.Errorf("robinhood: transfer %d: parsing settlement date %q: %w", i, tr.Details.SettlementDate, err)
		}
		description := strings.TrimSpace(tr.Details.Description + " " + tr.Details.OriginatorName)
		records = append(records, domain.RawRecord{
			PostDate:    postDate,
			Account:     cashManagementAccount,
			Amount:      signAmount(tr.Amount, tr.Details.Direction),
			Description: description,
			Type:        tr.TransferType,
		})
	}

	return records, nil
}

// IncomeAdapter fetches interest sweep payments for the brokerage account.
type IncomeAdapter struct {
	client  *Client
	account string
}

// NewIncomeAdapter creates an adapter for interest sweeps. An empty
// account defaults to the cash management account.
func NewIncomeAdapter(client *Client, account string) *IncomeAdapter {
	if account == "" {
		account = cashManagementAccount
	}
	return &IncomeAdapter{client: client, account: account}
}

func (a *IncomeAdapter) Source() domain.Source {
	return domain.SourceBrokerageIncome
}

// Fetch returns interest sweeps with pay dates on or after the tracking
// cutoff.
func (a *IncomeAdapter) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	sweeps, err := a.client.Sweeps(ctx)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Source: a.Source(), Err: err}
	}

	var records []domain.RawRecord
	for i, sw := range sweeps {
		payDate, err := parseAPIDate(sw.PayDate)
		if err != nil {
			return nil, fmt.Errorf("robinhood: sweep %d: parsing pay date %q: %w", i, sw.PayDate, err)
		}
		if payDate.Before(interestCutoff) {
			continue
		}
		records = append(records, domain.RawRecord{
			PostDate:    payDate,
			Account:     a.account,
			Amount:      signAmount(sw.Amount.Amount, sw.Direction),
			Description: sw.Reason,
			Type:        interestType,
		})
	}

	return records, nil
}

// signAmount folds the API's direction field into the amount's sign.
func signAmount(amount, direction string) string {
	if strings.EqualFold(direction, "debit") && !strings.HasPrefix(amount, "-") {
		return "-" + amount
	}
	return amount
}
