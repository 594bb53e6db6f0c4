package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/money-manager/internal/api/handlers"
	"github.com/dvloznov/money-manager/internal/api/middleware"
	"github.com/dvloznov/money-manager/internal/backfill"
	"github.com/dvloznov/money-manager/internal/gcs"
	infraBQ "github.com/dvloznov/money-manager/internal/infra/bigquery"
	"github.com/dvloznov/money-manager/internal/jobs"
	"github.com/dvloznov/money-manager/internal/jobs/inmemory"
	"github.com/dvloznov/money-manager/internal/logger"
	"github.com/dvloznov/money-manager/internal/pipeline"
	"github.com/dvloznov/money-manager/internal/runlog"
	"github.com/dvloznov/money-manager/internal/sources/firstbank"
	"github.com/dvloznov/money-manager/internal/sources/robinhood"
	"github.com/dvloznov/money-manager/internal/sources/upwork"
)

func main() {
	// Parse command-line flags
	var (
		port            = flag.String("port", "8080", "HTTP server port")
		bucket          = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket with source exports (or set GCS_BUCKET env)")
		bankPrefix      = flag.String("bank-prefix", "exports/firstbank/", "GCS prefix of bank CSV exports")
		upworkObject    = flag.String("upwork-object", "exports/upwork/transactions.csv", "GCS object with the Upwork worksheet export")
		backfillPrefix  = flag.String("backfill-prefix", "", "GCS prefix of archived statement PDFs (optional)")
		backfillAccount = flag.String("backfill-account", "", "Account name for backfilled statements (required with -backfill-prefix)")
		runLogPath      = flag.String("runlog", "refresh.log", "Path of the single-line status file")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required (or set GCS_BUCKET)")
	}
	if *backfillPrefix != "" && *backfillAccount == "" {
		log.Fatal().Msg("Error: --backfill-account is required with --backfill-prefix")
	}

	ctx := context.Background()

	// Initialize repositories
	repo, err := infraBQ.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	store, err := gcs.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS store")
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

	runner := pipeline.NewRunner(
		repo,
		adapters,
		upwork.NewSheet(store, *bucket, *upworkObject),
		repo,
		repo,
		runlog.NewFileLog(*runLogPath),
	)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Create job handler for processing refresh jobs
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		refreshJob, ok := job.(*jobs.RefreshLedgerJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().Str("job_id", refreshJob.JobID).Msg("Processing refresh job")

		ctx = logger.WithContext(ctx, log)
		if err := runner.Run(ctx); err != nil {
			log.Error().Err(err).Str("job_id", refreshJob.JobID).Msg("Refresh run failed")
			return err
		}

		log.Info().Str("job_id", refreshJob.JobID).Msg("Refresh run completed successfully")
		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	refreshHandler := handlers.NewRefreshHandler(jobQueue, log)
	ledgerHandler := handlers.NewLedgerHandler(repo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Refresh endpoint
	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			refreshHandler.EnqueueRefresh(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Ledger endpoint
	mux.HandleFunc("/api/ledger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ledgerHandler.ListLedger(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/api/health", healthHandler)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
