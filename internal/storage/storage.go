package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/santhosh0000000/crossref-API/internal/config"
	"github.com/santhosh0000000/crossref-API/internal/models"
)

// ErrUnsupportedType is returned for an unknown storage or source type
var ErrUnsupportedType = errors.New("unsupported type")

// Storage is the append-only destination for enriched records
type Storage interface {
	// EnsureTable creates the destination table if it does not exist
	EnsureTable(ctx context.Context) error
	// InsertRecord appends one row; it is durable once this returns nil
	InsertRecord(ctx context.Context, rec models.EnrichedRecord) error
	Close() error
}

// Source yields the records to enrich
type Source interface {
	SourceRecords(ctx context.Context) ([]models.SourceRecord, error)
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "postgresql":
		return NewPostgreSQLStorage(ctx, cfg)
	case "mongodb":
		return NewMongoDBStorage(ctx, cfg)
	case "dynamodb":
		return NewDynamoDBStorage(cfg)
	default:
		return nil, fmt.Errorf("%w: storage %s", ErrUnsupportedType, cfg.Type)
	}
}

// NewSource creates the record source. A postgresql source shares the
// connection of a postgresql store; otherwise it opens its own. The
// returned close function releases anything NewSource opened.
func NewSource(ctx context.Context, cfg config.Config, store Storage, logger logrus.FieldLogger) (Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Source.Type {
	case "postgresql":
		if pg, ok := store.(*PostgreSQLStorage); ok {
			return pg.WithQuery(cfg.Source.Query).WithLogger(logger), noop, nil
		}
		pg, err := NewPostgreSQLStorage(ctx, cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		return pg.WithQuery(cfg.Source.Query).WithLogger(logger), pg.Close, nil
	case "jsonl":
		return NewJSONLSource(cfg.Source.Path), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: source %s", ErrUnsupportedType, cfg.Source.Type)
	}
}
