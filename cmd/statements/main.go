package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/money-manager/internal/gcs"
	"github.com/dvloznov/money-manager/internal/logger"
	"github.com/dvloznov/money-manager/internal/runlog"
	"github.com/dvloznov/money-manager/internal/statements"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	bucket := flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket with statement archives (or set GCS_BUCKET env)")
	prefix := flag.String("prefix", "statements/", "GCS prefix holding per-account statement folders")
	accountsFlag := flag.String("accounts", "", "Comma-separated account names to merge (required)")
	runLogPath := flag.String("runlog", "refresh.log", "Path of the single-line status file")
	flag.Parse()

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required (or set GCS_BUCKET)")
	}
	if *accountsFlag == "" {
		log.Fatal().Msg("Error: --accounts is required")
	}

	var accounts []string
	for _, a := range strings.Split(*accountsFlag, ",") {
		if a = strings.TrimSpace(a); a != "" {
			accounts = append(accounts, a)
		}
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

	// Merged PDFs are assembled in a scratch directory
	workDir, err := os.MkdirTemp("", "statements-*")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create work directory")
	}
	defer os.RemoveAll(workDir)

	log.Info().
		Str("bucket", *bucket).
		Str("prefix", *prefix).
		Strs("accounts", accounts).
		Msg("Starting statement merge")

	statusLog := runlog.NewFileLog(*runLogPath)

	merger := statements.NewMerger(store, *bucket, *prefix, workDir)
	if err := merger.MergeAll(ctx, accounts); err != nil {
		if logErr := statusLog.Write(ctx, fmt.Sprintf("statement merge failed: %v", err)); logErr != nil {
			log.Warn().Err(logErr).Msg("Failed to write run log")
		}
		log.Fatal().Err(err).Msg("Statement merge failed")
	}

	if err := statusLog.Write(ctx, fmt.Sprintf("Statements merged successfully: %d accounts", len(accounts))); err != nil {
		log.Warn().Err(err).Msg("Failed to write run log")
	}

	fmt.Println("Statement merge completed successfully.")
}
