package models

import (
	"database/sql"
	"time"
)

// SourceRecord is a work to enrich, as yielded by the source provider.
// ExternalID is NULL when the source has no value for it.
type SourceRecord struct {
	ID         string
	DOI        string
	ExternalID sql.NullString
}

// Author is a single contributor of a publication. Either name part may be
// absent in the registry response.
type Author struct {
	Given  Optional[string]
	Family Optional[string]
}

// DatePart is one element of a date-parts sequence, already coerced to its
// string form. Null elements are missing.
type DatePart = Optional[string]

// DateParts mirrors the registry's nested date representation, e.g.
// [[2020, 5, 1]].
type DateParts [][]DatePart

// PublicationMetadata holds the bibliographic fields used for enrichment.
// A field whose value was absent or had the wrong shape is not Valid.
type PublicationMetadata struct {
	Type            Optional[string]
	ContainerTitle  Optional[[]string]
	Title           Optional[[]string]
	Volume          Optional[string]
	FirstPage       Optional[string]
	PublishedOnline Optional[DateParts]
	Authors         Optional[[]Author]
	Publisher       Optional[string]
}

// CitationInfo combines the outcomes of both citation lookups for a DOI
type CitationInfo struct {
	Count      Outcome[string]
	CitingDOIs Outcome[[]string]
}

// EnrichedRecord is the destination row. Invalid values are stored as NULL.
type EnrichedRecord struct {
	DOI             string
	ExternalID      sql.NullString
	DOIType         sql.NullString
	JournalTitle    sql.NullString
	ArticleTitle    sql.NullString
	Volume          sql.NullString
	FirstPage       sql.NullString
	Year            sql.NullString
	Authors         sql.NullString
	Publisher       sql.NullString
	PublicationDate sql.NullString
	CitingDOIs      sql.NullString
	CitationCount   sql.NullString
}

// RunStatus tracks the progress of an enrichment run
type RunStatus struct {
	Status          string    `json:"status"` // "never_run", "running", "success", "failure"
	StartedAt       time.Time `json:"started_at,omitempty"`
	FinishedAt      time.Time `json:"finished_at,omitempty"`
	LastAttempt     time.Time `json:"last_attempt,omitempty"`
	RecordsTotal    int       `json:"records_total"`
	RecordsInserted int       `json:"records_inserted"`
	DegradedFetches int       `json:"degraded_fetches"`
	LastDOI         string    `json:"last_doi,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}
