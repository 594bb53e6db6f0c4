package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/money-manager/internal/backfill"
	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/gcs"
	"github.com/dvloznov/money-manager/internal/logger"
)

// Dry-run extraction tool: parses archived statement PDFs for one
// account and prints the records without touching the ledger. Useful
// for checking model output before enabling the prefix in a refresh.
func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	bucket := flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket with statement archives (or set GCS_BUCKET env)")
	prefix := flag.String("prefix", "", "GCS prefix of archived statement PDFs (required)")
	account := flag.String("account", "", "Account name for the extracted records (required)")
	model := flag.String("model", backfill.DefaultModelName, "Gemini model used to parse statements")
	flag.Parse()

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required (or set GCS_BUCKET)")
	}
	if *prefix == "" {
		log.Fatal().Msg("Error: --prefix is required")
	}
	if *account == "" {
		log.Fatal().Msg("Error: --account is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	// Initialize GCS store
	store, err := gcs.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize GCS store")
	}
	defer store.Close()

	adapter := backfill.New(store, *bucket, *prefix, *account).WithModel(*model)

	log.Info().
		Str("bucket", *bucket).
		Str("prefix", *prefix).
		Str("account", *account).
		Msg("Extracting statement transactions")

	records, err := adapter.Fetch(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	printRecords(records)
	fmt.Printf("Extracted %d records.\n", len(records))
}

func printRecords(records []domain.RawRecord) {
	for _, rec := range records {
		typ := rec.Type
		if typ == "" {
			typ = "-"
		}
		fmt.Printf("%s  %10s  %-24s  %s\n",
			rec.PostDate.Format("2006-01-02"), rec.Amount, typ, rec.Description)
	}
}
