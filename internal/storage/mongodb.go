package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/santhosh0000000/crossref-API/internal/config"
	"github.com/santhosh0000000/crossref-API/internal/models"
)

// MongoDBStorage implements Storage using a MongoDB collection. Documents
// get an ObjectID as surrogate key.
type MongoDBStorage struct {
	client     *mongo.Client
	database   *mongo.Database
	collection string
}

// NewMongoDBStorage connects to cfg.MongoDBURI
func NewMongoDBStorage(ctx context.Context, cfg config.StorageConfig) (*MongoDBStorage, error) {
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required for mongodb")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBStorage{
		client:     client,
		database:   client.Database(cfg.MongoDatabase),
		collection: cfg.TableName,
	}, nil
}

// EnsureTable creates the collection if it doesn't exist
func (m *MongoDBStorage) EnsureTable(ctx context.Context) error {
	names, err := m.database.ListCollectionNames(ctx, bson.D{{Key: "name", Value: m.collection}})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(names) > 0 {
		return nil
	}
	if err := m.database.CreateCollection(ctx, m.collection); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", m.collection, err)
	}
	return nil
}

// toDocument lays out rec in column order; NULL columns become BSON null
func toDocument(rec models.EnrichedRecord) bson.D {
	val := func(n sql.NullString) any {
		if !n.Valid {
			return nil
		}
		return n.String
	}
	return bson.D{
		{Key: "doi", Value: rec.DOI},
		{Key: "external_id", Value: val(rec.ExternalID)},
		{Key: "doi_type", Value: val(rec.DOIType)},
		{Key: "journal_title", Value: val(rec.JournalTitle)},
		{Key: "article_title", Value: val(rec.ArticleTitle)},
		{Key: "volume", Value: val(rec.Volume)},
		{Key: "first_page", Value: val(rec.FirstPage)},
		{Key: "year", Value: val(rec.Year)},
		{Key: "authors", Value: val(rec.Authors)},
		{Key: "publisher", Value: val(rec.Publisher)},
		{Key: "publication_date", Value: val(rec.PublicationDate)},
		{Key: "citing_dois", Value: val(rec.CitingDOIs)},
		{Key: "citation_count", Value: val(rec.CitationCount)},
	}
}

// InsertRecord inserts rec as a new document
func (m *MongoDBStorage) InsertRecord(ctx context.Context, rec models.EnrichedRecord) error {
	if _, err := m.database.Collection(m.collection).InsertOne(ctx, toDocument(rec)); err != nil {
		return fmt.Errorf("failed to store record %s: %w", rec.DOI, err)
	}
	return nil
}

// Close disconnects from the server
func (m *MongoDBStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
