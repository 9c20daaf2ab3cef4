package storage

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/segmentio/encoding/json"

	"github.com/santhosh0000000/crossref-API/internal/models"
)

// JSONLSource reads source records from a JSON lines file, one
// {"id": ..., "doi": ..., "external_id": ...} object per line.
type JSONLSource struct {
	path string
}

// NewJSONLSource creates a source for the file at path
func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{path: path}
}

// jsonlRecord accepts ids given as strings or numbers
type jsonlRecord struct {
	ID         json.RawMessage `json:"id"`
	DOI        string          `json:"doi"`
	ExternalID json.RawMessage `json:"external_id"`
}

// SourceRecords reads all records; blank lines are skipped
func (s *JSONLSource) SourceRecords(ctx context.Context) ([]models.SourceRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	var (
		records []models.SourceRecord
		scanner = bufio.NewScanner(f)
		lineNo  int
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var r jsonlRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.path, lineNo, err)
		}
		if r.DOI == "" {
			return nil, fmt.Errorf("%s:%d: doi is required", s.path, lineNo)
		}
		records = append(records, models.SourceRecord{
			ID:         rawText(r.ID).String,
			DOI:        r.DOI,
			ExternalID: rawText(r.ExternalID),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	return records, nil
}

// rawText returns a JSON string's contents or a number's literal text.
// An absent or null value is NULL.
func rawText(raw json.RawMessage) sql.NullString {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || string(b) == "null" {
		return sql.NullString{}
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return sql.NullString{String: s, Valid: true}
	}
	return sql.NullString{String: string(b), Valid: true}
}
