package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhosh0000000/crossref-API/internal/config"
	"github.com/santhosh0000000/crossref-API/internal/models"
)

func sampleRecord() models.EnrichedRecord {
	return models.EnrichedRecord{
		DOI:             "10.4108/eai.1-2-2020.123",
		ExternalID:      sql.NullString{String: "confy-9", Valid: true},
		DOIType:         sql.NullString{String: "journal-article", Valid: true},
		JournalTitle:    sql.NullString{String: "J1, J2", Valid: true},
		Year:            sql.NullString{String: "2020", Valid: true},
		PublicationDate: sql.NullString{String: "2020-5-1", Valid: true},
		CitingDOIs:      sql.NullString{String: `["10.1/a"]`, Valid: true},
	}
}

func TestQualifiedTable(t *testing.T) {
	assert.Equal(t, `"crossref_api_data"`, qualifiedTable("crossref_api_data"))
	assert.Equal(t, `"mod"."crossref_api_data"`, qualifiedTable("mod.crossref_api_data"))
	assert.Equal(t, `"we""ird"`, qualifiedTable(`we"ird`))
}

func TestCreateTableSQL(t *testing.T) {
	q := createTableSQL(`"mod"."crossref_api_data"`)
	assert.Contains(t, q, `CREATE TABLE IF NOT EXISTS "mod"."crossref_api_data"`)
	assert.Contains(t, q, "id SERIAL PRIMARY KEY")
	assert.Contains(t, q, "citing_dois JSONB")
	for _, c := range columns {
		assert.Contains(t, q, "\t"+c+" ")
	}
}

func TestInsertSQL(t *testing.T) {
	q := insertSQL(`"crossref_api_data"`)
	assert.Equal(t, `INSERT INTO "crossref_api_data" (doi, external_id, doi_type, journal_title, article_title, volume, first_page, year, authors, publisher, publication_date, citing_dois, citation_count) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`, q)
}

func TestInsertArgs(t *testing.T) {
	args := insertArgs(sampleRecord())
	require.Len(t, args, len(columns))
	assert.Equal(t, "10.4108/eai.1-2-2020.123", args[0])
	assert.Equal(t, sql.NullString{String: "confy-9", Valid: true}, args[1])
	assert.Equal(t, sql.NullString{String: `["10.1/a"]`, Valid: true}, args[11])
	assert.Equal(t, sql.NullString{}, args[12])
}

func TestToSourceRecord(t *testing.T) {
	str := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

	rec, ok := toSourceRecord(str("1"), str("10.1/a"), str("confy-1"))
	require.True(t, ok)
	assert.Equal(t, models.SourceRecord{ID: "1", DOI: "10.1/a", ExternalID: str("confy-1")}, rec)

	rec, ok = toSourceRecord(str("2"), str("10.1/b"), sql.NullString{})
	require.True(t, ok)
	assert.False(t, rec.ExternalID.Valid)

	rec, ok = toSourceRecord(str("3"), str("10.1/c"), str(""))
	require.True(t, ok)
	assert.Equal(t, str(""), rec.ExternalID)

	_, ok = toSourceRecord(str("4"), sql.NullString{}, str("confy-4"))
	assert.False(t, ok)
}

func TestNewPostgreSQLStorage_RequiresURI(t *testing.T) {
	_, err := NewPostgreSQLStorage(context.Background(), config.StorageConfig{Type: "postgresql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_URI")
}

// TestPostgreSQLStorage_Integration needs a scratch database, e.g.
// POSTGRES_TEST_URI=postgres://postgres@localhost/test?sslmode=disable
func TestPostgreSQLStorage_Integration(t *testing.T) {
	uri := os.Getenv("POSTGRES_TEST_URI")
	if uri == "" {
		t.Skip("POSTGRES_TEST_URI not set")
	}
	ctx := context.Background()

	store, err := NewPostgreSQLStorage(ctx, config.StorageConfig{PostgresURI: uri, TableName: "enrich_test_rows"})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.ExecContext(ctx, `DROP TABLE IF EXISTS "enrich_test_rows"`)
	require.NoError(t, err)
	require.NoError(t, store.EnsureTable(ctx))
	require.NoError(t, store.EnsureTable(ctx))

	require.NoError(t, store.InsertRecord(ctx, sampleRecord()))
	require.NoError(t, store.InsertRecord(ctx, models.EnrichedRecord{DOI: "10.1/empty"}))
	_, err = store.db.ExecContext(ctx, `INSERT INTO "enrich_test_rows" (doi, external_id) VALUES (NULL, 'no-doi')`)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	store.WithQuery(`SELECT id, doi, external_id FROM "enrich_test_rows" ORDER BY id`).WithLogger(logger)
	recs, err := store.SourceRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, "10.4108/eai.1-2-2020.123", recs[0].DOI)
	assert.Equal(t, "confy-9", recs[0].ExternalID.String)
	assert.Equal(t, "10.1/empty", recs[1].DOI)
	assert.False(t, recs[1].ExternalID.Valid)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "3", hook.LastEntry().Data["id"])

	var citing sql.NullString
	err = store.db.QueryRowContext(ctx, `SELECT citing_dois::text FROM "enrich_test_rows" WHERE doi = $1`, "10.1/empty").Scan(&citing)
	require.NoError(t, err)
	assert.False(t, citing.Valid)
}
