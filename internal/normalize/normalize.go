// Package normalize merges publication metadata and citation data into the
// fixed-shape destination row. It performs no I/O.
package normalize

import (
	"bytes"
	"database/sql"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/santhosh0000000/crossref-API/internal/models"
)

// Normalize builds the destination row for rec. When the metadata lookup did
// not succeed only the DOI and external id are set. The result depends on
// its inputs alone.
func Normalize(rec models.SourceRecord, meta models.Outcome[models.PublicationMetadata], cites models.CitationInfo) models.EnrichedRecord {
	row := models.EnrichedRecord{
		DOI:        rec.DOI,
		ExternalID: rec.ExternalID,
	}
	if !meta.OK() {
		return row
	}

	md := meta.Value
	row.DOIType = nonEmpty(md.Type)
	row.JournalTitle = joinList(md.ContainerTitle)
	row.ArticleTitle = joinList(md.Title)
	row.Volume = text(md.Volume)
	row.FirstPage = text(md.FirstPage)
	row.Year, row.PublicationDate = dates(md.PublishedOnline)
	row.Authors = authors(md.Authors)
	row.Publisher = text(md.Publisher)
	row.CitingDOIs = citingDOIs(cites.CitingDOIs)
	row.CitationCount = count(cites.Count)
	return row
}

func text(o models.Optional[string]) sql.NullString {
	return sql.NullString{String: o.Value, Valid: o.Valid}
}

func nonEmpty(o models.Optional[string]) sql.NullString {
	if !o.Valid || o.Value == "" {
		return sql.NullString{}
	}
	return text(o)
}

// joinList joins a list-valued field with ", "; non-lists are missing
func joinList(o models.Optional[[]string]) sql.NullString {
	if !o.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(o.Value, ", "), Valid: true}
}

// authors renders "given family" per author, ", "-joined in order. A missing
// name part counts as the empty string.
func authors(o models.Optional[[]models.Author]) sql.NullString {
	if !o.Valid || len(o.Value) == 0 {
		return sql.NullString{}
	}
	names := make([]string, 0, len(o.Value))
	for _, a := range o.Value {
		names = append(names, strings.TrimSpace(a.Given.Value+" "+a.Family.Value))
	}
	return sql.NullString{String: strings.Join(names, ", "), Valid: true}
}

// dates returns the year and the "-"-joined date of the first date-parts
// sequence. Both are missing without a usable first element.
func dates(o models.Optional[models.DateParts]) (year, date sql.NullString) {
	if !o.Valid || len(o.Value) == 0 || len(o.Value[0]) == 0 {
		return
	}
	first := o.Value[0]
	if !first[0].Valid {
		return
	}

	parts := make([]string, 0, len(first))
	for _, p := range first {
		if p.Valid {
			parts = append(parts, p.Value)
		}
	}
	year = sql.NullString{String: first[0].Value, Valid: true}
	date = sql.NullString{String: strings.Join(parts, "-"), Valid: true}
	return
}

// citingDOIs serializes a non-empty list as a compact JSON array. DOIs may
// contain <, > or &, which are kept verbatim.
func citingDOIs(o models.Outcome[[]string]) sql.NullString {
	if !o.OK() || len(o.Value) == 0 {
		return sql.NullString{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o.Value); err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSuffix(buf.String(), "\n"), Valid: true}
}

func count(o models.Outcome[string]) sql.NullString {
	if !o.OK() {
		return sql.NullString{}
	}
	return sql.NullString{String: o.Value, Valid: true}
}
