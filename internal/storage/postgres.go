package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/santhosh0000000/crossref-API/internal/config"
	"github.com/santhosh0000000/crossref-API/internal/models"
)

// columns of the destination table, in insert order
var columns = []string{
	"doi",
	"external_id",
	"doi_type",
	"journal_title",
	"article_title",
	"volume",
	"first_page",
	"year",
	"authors",
	"publisher",
	"publication_date",
	"citing_dois",
	"citation_count",
}

// PostgreSQLStorage implements Storage and Source on a single PostgreSQL
// connection. Every statement commits on its own.
type PostgreSQLStorage struct {
	db     *sql.DB
	table  string
	query  string
	logger logrus.FieldLogger
}

// NewPostgreSQLStorage connects to cfg.PostgresURI
func NewPostgreSQLStorage(ctx context.Context, cfg config.StorageConfig) (*PostgreSQLStorage, error) {
	if cfg.PostgresURI == "" {
		return nil, fmt.Errorf("POSTGRES_URI is required for postgresql")
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	// one session for the source query and all writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgreSQLStorage{
		db:     db,
		table:  qualifiedTable(cfg.TableName),
		logger: logrus.StandardLogger(),
	}, nil
}

// WithQuery sets the query SourceRecords runs. It must select the id, DOI
// and external id columns, in that order.
func (p *PostgreSQLStorage) WithQuery(query string) *PostgreSQLStorage {
	p.query = query
	return p
}

// WithLogger sets the logger SourceRecords reports skipped rows to
func (p *PostgreSQLStorage) WithLogger(logger logrus.FieldLogger) *PostgreSQLStorage {
	p.logger = logger
	return p
}

// qualifiedTable quotes each dot-separated part of a possibly
// schema-qualified table name.
func qualifiedTable(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	doi TEXT,
	external_id TEXT,
	doi_type TEXT,
	journal_title TEXT,
	article_title TEXT,
	volume TEXT,
	first_page TEXT,
	year TEXT,
	authors TEXT,
	publisher TEXT,
	publication_date TEXT,
	citing_dois JSONB,
	citation_count TEXT
)`, table)
}

func insertSQL(table string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// insertArgs returns the row values in column order
func insertArgs(rec models.EnrichedRecord) []any {
	return []any{
		rec.DOI,
		rec.ExternalID,
		rec.DOIType,
		rec.JournalTitle,
		rec.ArticleTitle,
		rec.Volume,
		rec.FirstPage,
		rec.Year,
		rec.Authors,
		rec.Publisher,
		rec.PublicationDate,
		rec.CitingDOIs,
		rec.CitationCount,
	}
}

// EnsureTable creates the destination table if it doesn't exist
func (p *PostgreSQLStorage) EnsureTable(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createTableSQL(p.table)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", p.table, err)
	}
	return nil
}

// InsertRecord appends rec to the destination table
func (p *PostgreSQLStorage) InsertRecord(ctx context.Context, rec models.EnrichedRecord) error {
	if _, err := p.db.ExecContext(ctx, insertSQL(p.table), insertArgs(rec)...); err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.DOI, err)
	}
	return nil
}

// SourceRecords runs the source query and reads the full result set. Rows
// with a NULL DOI have nothing to look up and are skipped with a warning; a
// NULL external id is kept as NULL.
func (p *PostgreSQLStorage) SourceRecords(ctx context.Context) ([]models.SourceRecord, error) {
	if p.query == "" {
		return nil, fmt.Errorf("no source query configured")
	}

	rows, err := p.db.QueryContext(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("failed to query source records: %w", err)
	}
	defer rows.Close()

	var records []models.SourceRecord
	for rows.Next() {
		var (
			id, doi    sql.NullString
			externalID sql.NullString
		)
		if err := rows.Scan(&id, &doi, &externalID); err != nil {
			return nil, fmt.Errorf("failed to scan source record: %w", err)
		}
		rec, ok := toSourceRecord(id, doi, externalID)
		if !ok {
			p.logger.WithField("id", id.String).Warn("skipping source record without DOI")
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source records: %w", err)
	}
	return records, nil
}

// toSourceRecord maps one source row; ok is false when the DOI is NULL
func toSourceRecord(id, doi, externalID sql.NullString) (rec models.SourceRecord, ok bool) {
	if !doi.Valid {
		return models.SourceRecord{}, false
	}
	return models.SourceRecord{
		ID:         id.String,
		DOI:        doi.String,
		ExternalID: externalID,
	}, true
}

// Close closes the database connection
func (p *PostgreSQLStorage) Close() error {
	return p.db.Close()
}
