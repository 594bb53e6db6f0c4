// Package investments consolidates brokerage positions and crypto
// balances into one holdings snapshot. Crypto equity is computed from
// live USD exchange rates; the USD wallet is reported separately as
// cash rather than listed as a holding.
package investments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	bq "github.com/dvloznov/money-manager/internal/infra/bigquery"
	"github.com/dvloznov/money-manager/internal/logger"
	"github.com/dvloznov/money-manager/internal/sources/coinbase"
	"github.com/dvloznov/money-manager/internal/sources/robinhood"
)

const (
	providerBrokerage = "robinhood"
	providerCrypto    = "coinbase"
)

// BrokerageHoldings lists open brokerage positions.
type BrokerageHoldings interface {
	Holdings(ctx context.Context) ([]robinhood.Holding, error)
}

// CryptoAccounts lists crypto balances and exchange rates.
type CryptoAccounts interface {
	Accounts(ctx context.Context) ([]coinbase.Account, error)
	USDRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// HoldingsStore replaces the stored snapshot.
type HoldingsStore interface {
	ReplaceHoldings(ctx context.Context, rows []*bq.HoldingRow) error
}

// Snapshot is the consolidated result of one refresh.
type Snapshot struct {
	Rows    []*bq.HoldingRow
	CashUSD decimal.Decimal
}

// Refresher builds and stores holdings snapshots.
type Refresher struct {
	brokerage BrokerageHoldings
	crypto    CryptoAccounts
	store     HoldingsStore
}

func NewRefresher(brokerage BrokerageHoldings, crypto CryptoAccounts, store HoldingsStore) *Refresher {
	return &Refresher{brokerage: brokerage, crypto: crypto, store: store}
}

// Refresh fetches both providers, consolidates them, and replaces the
// stored snapshot.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	log := logger.FromContext(ctx)
	snapshotTS := time.Now()

	snapshot := &Snapshot{}

	positions, err := r.brokerage.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("investments: fetching brokerage holdings: %w", err)
	}
	for _, h := range positions {
		snapshot.Rows = append(snapshot.Rows, &bq.HoldingRow{
			Symbol:     h.Symbol,
			Name:       h.Name,
			Provider:   providerBrokerage,
			Quantity:   h.Quantity.Rat(),
			ValueUSD:   h.Equity.Rat(),
			SnapshotTS: snapshotTS,
		})
	}

	accounts, err := r.crypto.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("investments: fetching crypto accounts: %w", err)
	}
	for _, a := range accounts {
		if a.Currency == "USD" {
			snapshot.CashUSD = snapshot.CashUSD.Add(a.Balance)
			continue
		}
		rate, err := r.crypto.USDRate(ctx, a.Currency)
		if err != nil {
			return nil, fmt.Errorf("investments: fetching USD rate for %s: %w", a.Currency, err)
		}
		snapshot.Rows = append(snapshot.Rows, &bq.HoldingRow{
			Symbol:     a.Currency,
			Name:       a.Name,
			Provider:   providerCrypto,
			Quantity:   a.Balance.Rat(),
			ValueUSD:   a.Balance.Mul(rate).Rat(),
			SnapshotTS: snapshotTS,
		})
	}

	if err := r.store.ReplaceHoldings(ctx, snapshot.Rows); err != nil {
		return nil, fmt.Errorf("investments: replacing holdings snapshot: %w", err)
	}

	log.Info().
		Int("holdings", len(snapshot.Rows)).
		Str("cash_usd", snapshot.CashUSD.String()).
		Msg("Holdings snapshot refreshed")
	return snapshot, nil
}
