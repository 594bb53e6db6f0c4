package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/money-manager/internal/backfill"
	"github.com/dvloznov/money-manager/internal/gcs"
	"github.com/dvloznov/money-manager/internal/infra/bigquery"
	"github.com/dvloznov/money-manager/internal/logger"
	"github.com/dvloznov/money-manager/internal/pipeline"
	"github.com/dvloznov/money-manager/internal/refdata"
	"github.com/dvloznov/money-manager/internal/runlog"
	"github.com/dvloznov/money-manager/internal/sources/firstbank"
	"github.com/dvloznov/money-manager/internal/sources/robinhood"
	"github.com/dvloznov/money-manager/internal/sources/upwork"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	bucket := flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket with source exports (or set GCS_BUCKET env)")
	bankPrefix := flag.String("bank-prefix", "exports/firstbank/", "GCS prefix of bank CSV exports")
	upworkObject := flag.String("upwork-object", "exports/upwork/transactions.csv", "GCS object with the Upwork worksheet export")
	backfillPrefix := flag.String("backfill-prefix", "", "GCS prefix of archived statement PDFs (optional)")
	backfillAccount := flag.String("backfill-account", "", "Account name for backfilled statements (required with -backfill-prefix)")
	refdataFile := flag.String("refdata-file", "", "Load reference data from a local JSON file instead of BigQuery")
	runLogPath := flag.String("runlog", "refresh.log", "Path of the single-line status file")
	flag.Parse()

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required (or set GCS_BUCKET)")
	}
	if *backfillPrefix != "" && *backfillAccount == "" {
		log.Fatal().Msg("Error: --backfill-account is required with --backfill-prefix")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("bucket", *bucket).Msg("Starting ledger refresh")

	// Initialize BigQuery repository
	repo, err := bigquery.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	// Initialize GCS store
	store, err := gcs.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize GCS store")
	}
	defer store.Close()

	// Assemble source adapters
	adapters := []pipeline.SourceAdapter{
		firstbank.New(store, *bucket, *bankPrefix),
	}

	if token := os.Getenv("ROBINHOOD_TOKEN"); token != "" {
		rh := robinhood.NewClient(token)
		adapters = append(adapters,
			robinhood.NewSpendingAdapter(rh),
			robinhood.NewIncomeAdapter(rh, ""),
		)
	} else {
		log.Warn().Msg("ROBINHOOD_TOKEN not set - brokerage sources will be skipped")
	}

	if *backfillPrefix != "" {
		adapters = append(adapters, backfill.New(store, *bucket, *backfillPrefix, *backfillAccount))
	}

	var incomeSheet pipeline.IncomeSheet
	if *upworkObject != "" {
		incomeSheet = upwork.NewSheet(store, *bucket, *upworkObject)
	}

	var refStore pipeline.ReferenceStore = repo
	if *refdataFile != "" {
		refStore = refdata.NewFileStore(*refdataFile)
	}

	runner := pipeline.NewRunner(
		refStore,
		adapters,
		incomeSheet,
		repo,
		repo,
		runlog.NewFileLog(*runLogPath),
	)

	if err := runner.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Refresh failed")
	}

	fmt.Println("Refresh completed successfully.")
}
