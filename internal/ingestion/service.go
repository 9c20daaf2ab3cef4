package ingestion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/santhosh0000000/crossref-API/internal/fetch"
	"github.com/santhosh0000000/crossref-API/internal/models"
	"github.com/santhosh0000000/crossref-API/internal/normalize"
	"github.com/santhosh0000000/crossref-API/internal/storage"
)

var errNoRecords = errors.New("no source records")

// MetadataFetcher looks up bibliographic metadata for a DOI
type MetadataFetcher interface {
	Metadata(ctx context.Context, doi string) models.Outcome[models.PublicationMetadata]
}

// CitationFetcher looks up the citation count and citing DOIs for a DOI
type CitationFetcher interface {
	Citations(ctx context.Context, doi string) models.CitationInfo
}

// Service enriches source records one at a time and appends each result
// to the destination store
type Service struct {
	source    storage.Source
	storage   storage.Storage
	metadata  MetadataFetcher
	citations CitationFetcher
	pause     time.Duration
	clock     fetch.Clock
	logger    logrus.FieldLogger
	out       io.Writer

	mu     sync.RWMutex
	status models.RunStatus
}

// Option configures a Service
type Option func(*Service)

// WithPacingInterval sets the pause after each inserted row. Zero disables
// pacing.
func WithPacingInterval(d time.Duration) Option {
	return func(s *Service) {
		s.pause = d
	}
}

// WithClock sets the clock used for pauses (for testing)
func WithClock(c fetch.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithOutput sets where inserted rows are echoed
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		s.out = w
	}
}

// NewService creates a new enrichment service
func NewService(source storage.Source, store storage.Storage, meta MetadataFetcher, cites CitationFetcher, logger logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		source:    source,
		storage:   store,
		metadata:  meta,
		citations: cites,
		pause:     time.Second,
		clock:     fetch.RealClock{},
		logger:    logger,
		out:       os.Stdout,
		status:    models.RunStatus{Status: "never_run"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the source records and enriches all of them
func (s *Service) Start(ctx context.Context) error {
	records, err := s.source.SourceRecords(ctx)
	if err != nil {
		s.logger.Errorf("Failed to fetch data: %v", err)
		s.finish(err)
		return fmt.Errorf("failed to fetch source records: %w", err)
	}
	if len(records) == 0 {
		s.logger.Error("Failed to fetch data.")
		s.begin(0)
		s.finish(errNoRecords)
		return nil
	}
	s.logger.WithField("records", len(records)).Info("Data fetched successfully.")

	if err := s.Run(ctx, records); err != nil {
		return err
	}
	s.logger.Info("Data saved to the database.")
	return nil
}

// Run enriches records in order, pausing after each inserted row. A storage
// failure stops the run; rows inserted before it stay committed.
func (s *Service) Run(ctx context.Context, records []models.SourceRecord) error {
	s.begin(len(records))

	for _, rec := range records {
		row, degraded := s.Enrich(ctx, rec)
		if err := s.storage.InsertRecord(ctx, row); err != nil {
			s.logger.WithField("doi", rec.DOI).Errorf("Failed to store record: %v", err)
			err = fmt.Errorf("failed to store record: %w", err)
			s.finish(err)
			return err
		}

		fmt.Fprintf(s.out, "Inserted row: %s\n", formatRow(row))
		s.logger.WithFields(logrus.Fields{
			"doi":         row.DOI,
			"external_id": row.ExternalID.String,
			"degraded":    degraded,
		}).Info("Inserted row")
		s.inserted(rec.DOI, degraded)

		if s.pause > 0 {
			if err := s.clock.Sleep(ctx, s.pause); err != nil {
				s.finish(err)
				return err
			}
		}
	}

	s.finish(nil)
	return nil
}

// Enrich fetches everything known about rec and builds its row. Citation
// lookups are skipped when no metadata was obtained. degraded reports
// whether any lookup came back failed or missing.
func (s *Service) Enrich(ctx context.Context, rec models.SourceRecord) (row models.EnrichedRecord, degraded bool) {
	meta := s.metadata.Metadata(ctx, rec.DOI)

	var cites models.CitationInfo
	if meta.OK() {
		cites = s.citations.Citations(ctx, rec.DOI)
	}

	degraded = !meta.OK() || !cites.Count.OK() || !cites.CitingDOIs.OK()
	return normalize.Normalize(rec, meta, cites), degraded
}

// Status returns a snapshot of the current run
func (s *Service) Status() models.RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Service) begin(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.status = models.RunStatus{
		Status:       "running",
		StartedAt:    now,
		LastAttempt:  now,
		RecordsTotal: total,
	}
}

func (s *Service) inserted(doi string, degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.RecordsInserted++
	if degraded {
		s.status.DegradedFetches++
	}
	s.status.LastDOI = doi
	s.status.LastAttempt = time.Now().UTC()
}

// finish ends the run; a nil err marks it successful
func (s *Service) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.status.FinishedAt = now
	s.status.LastAttempt = now
	if err != nil {
		s.status.Status = "failure"
		s.status.ErrorMessage = err.Error()
		return
	}
	s.status.Status = "success"
}

// formatRow renders row as a tuple in column order
func formatRow(row models.EnrichedRecord) string {
	cols := []string{quote(row.DOI)}
	for _, v := range []sql.NullString{
		row.ExternalID, row.DOIType, row.JournalTitle, row.ArticleTitle, row.Volume,
		row.FirstPage, row.Year, row.Authors, row.Publisher,
		row.PublicationDate, row.CitingDOIs, row.CitationCount,
	} {
		if !v.Valid {
			cols = append(cols, "NULL")
			continue
		}
		cols = append(cols, quote(v.String))
	}
	return "(" + strings.Join(cols, ", ") + ")"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
