// Package robinhood fetches spending and interest income records from the
// brokerage's REST endpoints. One authenticated client backs two adapter
// views: card spending plus payroll deposits, and interest income.
package robinhood

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Endpoint defaults. The card and transfer APIs live on separate hosts
// from the brokerage API.
const (
	DefaultCardURL      = "https://minerva.robinhood.com/cards/settled_transactions/"
	DefaultTransfersURL = "https://bonfire.robinhood.com/paymenthub/unified_transfers/"
	DefaultSweepsURL    = "https://api.robinhood.com/accounts/sweeps"
)

// Client is an authenticated HTTP client for the brokerage endpoints.
type Client struct {
	httpClient *http.Client
	token      string

	CardURL      string
	TransfersURL string
	SweepsURL    string
	HoldingsURL  string
}

// NewClient creates a Client with the default endpoints. The token is an
// OAuth bearer token obtained out of band.
func NewClient(token string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		token:        token,
		CardURL:      DefaultCardURL,
		TransfersURL: DefaultTransfersURL,
		SweepsURL:    DefaultSweepsURL,
		HoldingsURL:  DefaultHoldingsURL,
	}
}

// NewClientWithHTTPClient creates a Client using the provided HTTP client,
// used in tests.
func NewClientWithHTTPClient(token string, httpClient *http.Client) *Client {
	c := NewClient(token)
	c.httpClient = httpClient
	return c
}

type moneyField struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type cardTransaction struct {
	PostDate            string     `json:"post_date"`
	Amount              moneyField `json:"amount"`
	MerchantDescription string     `json:"merchant_description"`
	Direction           string     `json:"direction"`
}

type transferDetails struct {
	Description    string `json:"description"`
	SettlementDate string `json:"settlement_date"`
	OriginatorName string `json:"originator_name"`
	Direction      string `json:"direction"`
}

type transfer struct {
	Amount       string          `json:"amount"`
	TransferType string          `json:"transfer_type"`
	Details      transferDetails `json:"details"`
}

type sweep struct {
	PayDate   string     `json:"pay_date"`
	Amount    moneyField `json:"amount"`
	Reason    string     `json:"reason"`
	Direction string     `json:"direction"`
}

// CardSettledTransactions returns the settled cash card transactions.
func (c *Client) CardSettledTransactions(ctx context.Context) ([]cardTransaction, error) {
	var page struct {
		Results []cardTransaction `json:"results"`
	}
	if err := c.get(ctx, c.CardURL, &page); err != nil {
		return nil, fmt.Errorf("CardSettledTransactions: %w", err)
	}
	return page.Results, nil
}

// UnifiedTransfers returns the payment hub transfer history.
func (c *Client) UnifiedTransfers(ctx context.Context) ([]transfer, error) {
	var page struct {
		Results []transfer `json:"results"`
	}
	if err := c.get(ctx, c.TransfersURL, &page); err != nil {
		return nil, fmt.Errorf("UnifiedTransfers: %w", err)
	}
	return page.Results, nil
}

// Sweeps returns the brokerage interest sweep payments.
func (c *Client) Sweeps(ctx context.Context) ([]sweep, error) {
	var page struct {
		Results []sweep `json:"results"`
	}
	if err := c.get(ctx, c.SweepsURL, &page); err != nil {
		return nil, fmt.Errorf("Sweeps: %w", err)
	}
	return page.Results, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// parseAPIDate accepts both full RFC 3339 timestamps and bare dates, the
// two formats the endpoints use.
func parseAPIDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", s)
}
