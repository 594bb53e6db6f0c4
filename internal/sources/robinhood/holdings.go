package robinhood

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const DefaultHoldingsURL = "https://api.robinhood.com/positions/aggregated/"

// Holding is one brokerage position with its current market value.
type Holding struct {
	Symbol   string
	Name     string
	Quantity decimal.Decimal
	Equity   decimal.Decimal
}

type holdingResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Equity   string `json:"equity"`
}

// Holdings returns the account's open positions.
func (c *Client) Holdings(ctx context.Context) ([]Holding, error) {
	url := c.HoldingsURL
	if url == "" {
		url = DefaultHoldingsURL
	}

	var page struct {
		Results []holdingResult `json:"results"`
	}
	if err := c.get(ctx, url, &page); err != nil {
		return nil, fmt.Errorf("Holdings: %w", err)
	}

	var holdings []Holding
	for _, r := range page.Results {
		quantity, err := decimal.NewFromString(r.Quantity)
		if err != nil {
			return nil, fmt.Errorf("Holdings: parsing quantity %q for %s: %w", r.Quantity, r.Symbol, err)
		}
		equity, err := decimal.NewFromString(r.Equity)
		if err != nil {
			return nil, fmt.Errorf("Holdings: parsing equity %q for %s: %w", r.Equity, r.Symbol, err)
		}
		holdings = append(holdings, Holding{
			Symbol:   r.Symbol,
			Name:     r.Name,
			Quantity: quantity,
			Equity:   equity,
		})
	}
	return holdings, nil
}
