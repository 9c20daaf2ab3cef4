package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/santhosh0000000/crossref-API/internal/citation"
	"github.com/santhosh0000000/crossref-API/internal/config"
	"github.com/santhosh0000000/crossref-API/internal/fetch"
	"github.com/santhosh0000000/crossref-API/internal/ingestion"
	"github.com/santhosh0000000/crossref-API/internal/logging"
	"github.com/santhosh0000000/crossref-API/internal/metadata"
	"github.com/santhosh0000000/crossref-API/internal/server"
	"github.com/santhosh0000000/crossref-API/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "crossref-enrich",
	Short: "Enrich DOI records with Crossref metadata and OpenCitations data",
	Long: `crossref-enrich reads (id, doi, external id) records from the source,
looks up each DOI on Crossref and OpenCitations, and appends one row per
record to the destination table. Configuration comes from the environment
and an optional .env file.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logFile, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := logger.WithField("run_id", uuid.NewString())

	if err := enrich(ctx, cfg, log); err != nil {
		log.Errorf("Enrichment failed: %v", err)
		return err
	}
	return nil
}

func enrich(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	// Initialize storage
	store, err := storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	if err := store.EnsureTable(ctx); err != nil {
		return err
	}

	source, closeSource, err := storage.NewSource(ctx, *cfg, store, log)
	if err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	defer closeSource()

	ec := cfg.Enrichment
	fetcher := fetch.New(log,
		fetch.WithClient(&http.Client{Timeout: ec.Timeout}),
		fetch.WithBackoff(fetch.Backoff{
			MaxAttempts: ec.RetryCount,
			BaseDelay:   ec.RetryBaseDelay,
			MaxDelay:    ec.RetryMaxDelay,
		}),
		fetch.WithUserAgent(ec.UserAgent),
		fetch.WithMinInterval(ec.MinRequestInterval),
	)
	citations := citation.NewClient(fetcher, ec.CitationCountEndpoint, ec.CitationsEndpoint, log)
	works := metadata.NewClient(ec.MetadataEndpoint, log,
		metadata.WithDoer(metadata.NewRetryingDoer(ec.MetadataEndpoint, ec.Timeout, ec.MetadataRetryCount, log)),
		metadata.WithMailto(ec.Mailto),
		metadata.WithUserAgent(ec.UserAgent),
	)

	ingestor := ingestion.NewService(source, store, works, citations, log,
		ingestion.WithPacingInterval(ec.PacingInterval))

	if cfg.Server.Port > 0 {
		httpServer := server.NewServer(cfg.Server, ingestor)
		go func() {
			log.Infof("Starting status server on port %d", cfg.Server.Port)
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Status server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Status server shutdown error: %v", err)
			}
		}()
	}

	return ingestor.Start(ctx)
}
