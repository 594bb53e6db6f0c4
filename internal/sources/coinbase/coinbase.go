// Package coinbase fetches crypto account balances and USD exchange rates.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultAccountsURL      = "https://api.coinbase.com/api/v3/brokerage/accounts"
	DefaultExchangeRatesURL = "https://api.coinbase.com/v2/exchange-rates"
)

// Account is one crypto wallet with a non-negative balance.
type Account struct {
	Name     string
	Currency string
	Balance  decimal.Decimal
}

// Client talks to the exchange's REST API. Balance listing requires the
// API key; exchange rates are public.
type Client struct {
	httpClient *http.Client
	apiKey     string

	AccountsURL      string
	ExchangeRatesURL string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		apiKey:           apiKey,
		AccountsURL:      DefaultAccountsURL,
		ExchangeRatesURL: DefaultExchangeRatesURL,
	}
}

// NewClientWithHTTPClient creates a Client using the provided HTTP client,
// used in tests.
func NewClientWithHTTPClient(apiKey string, httpClient *http.Client) *Client {
	c := NewClient(apiKey)
	c.httpClient = httpClient
	return c
}

// Accounts returns the wallets holding a positive balance.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var page struct {
		Accounts []struct {
			Name             string `json:"name"`
			AvailableBalance struct {
				Value    string `json:"value"`
				Currency string `json:"currency"`
			} `json:"available_balance"`
		} `json:"accounts"`
	}
	if err := c.get(ctx, c.AccountsURL, &page); err != nil {
		return nil, fmt.Errorf("Accounts: %w", err)
	}

	var accounts []Account
	for _, a := range page.Accounts {
		balance, err := decimal.NewFromString(a.AvailableBalance.Value)
		if err != nil {
			return nil, fmt.Errorf("Accounts: parsing balance %q for %s: %w", a.AvailableBalance.Value, a.Name, err)
		}
		if !balance.IsPositive() {
			continue
		}
		accounts = append(accounts, Account{
			Name:     a.Name,
			Currency: a.AvailableBalance.Currency,
			Balance:  balance,
		})
	}
	return accounts, nil
}

// USDRate returns the USD exchange rate for the given currency symbol.
func (c *Client) USDRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	u := c.ExchangeRatesURL + "?currency=" + url.QueryEscape(currency)

	var page struct {
		Data struct {
			Rates map[string]string `json:"rates"`
		} `json:"data"`
	}
	if err := c.get(ctx, u, &page); err != nil {
		return decimal.Decimal{}, fmt.Errorf("USDRate: %w", err)
	}

	raw, ok := page.Data.Rates["USD"]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("USDRate: no USD rate for %s", currency)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("USDRate: parsing rate %q for %s: %w", raw, currency, err)
	}
	return rate, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
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
