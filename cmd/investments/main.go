package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/money-manager/internal/infra/bigquery"
	"github.com/dvloznov/money-manager/internal/investments"
	"github.com/dvloznov/money-manager/internal/logger"
	"github.com/dvloznov/money-manager/internal/sources/coinbase"
	"github.com/dvloznov/money-manager/internal/sources/robinhood"
)

func main() {
	// Initialize structured logger
	log := logger.New()
	flag.Parse()

	robinhoodToken := os.Getenv("ROBINHOOD_TOKEN")
	if robinhoodToken == "" {
		log.Fatal().Msg("Error: ROBINHOOD_TOKEN is required")
	}
	coinbaseKey := os.Getenv("COINBASE_API_KEY")
	if coinbaseKey == "" {
		log.Fatal().Msg("Error: COINBASE_API_KEY is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	// Initialize BigQuery repository
	repo, err := bigquery.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	refresher := investments.NewRefresher(
		robinhood.NewClient(robinhoodToken),
		coinbase.NewClient(coinbaseKey),
		repo,
	)

	snapshot, err := refresher.Refresh(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Holdings refresh failed")
	}

	fmt.Printf("Holdings snapshot stored: %d positions, %s USD cash.\n",
		len(snapshot.Rows), snapshot.CashUSD.StringFixed(2))
}
