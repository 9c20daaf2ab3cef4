package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/google/uuid"

	"github.com/santhosh0000000/crossref-API/internal/config"
	"github.com/santhosh0000000/crossref-API/internal/models"
)

// DynamoDBStorage implements Storage using AWS DynamoDB
type DynamoDBStorage struct {
	client    *dynamodb.DynamoDB
	tableName string
	encoder   *dynamodbattribute.Encoder
	newID     func() string
}

// dynamoRow is the item layout; nil pointers are stored as NULL
type dynamoRow struct {
	ID              string  `dynamodbav:"id"`
	DOI             string  `dynamodbav:"doi"`
	ExternalID      *string `dynamodbav:"external_id"`
	DOIType         *string `dynamodbav:"doi_type"`
	JournalTitle    *string `dynamodbav:"journal_title"`
	ArticleTitle    *string `dynamodbav:"article_title"`
	Volume          *string `dynamodbav:"volume"`
	FirstPage       *string `dynamodbav:"first_page"`
	Year            *string `dynamodbav:"year"`
	Authors         *string `dynamodbav:"authors"`
	Publisher       *string `dynamodbav:"publisher"`
	PublicationDate *string `dynamodbav:"publication_date"`
	CitingDOIs      *string `dynamodbav:"citing_dois"`
	CitationCount   *string `dynamodbav:"citation_count"`
}

// NewDynamoDBStorage creates a new DynamoDB storage instance
func NewDynamoDBStorage(cfg config.StorageConfig) (*DynamoDBStorage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &DynamoDBStorage{
		client:    dynamodb.New(sess),
		tableName: cfg.TableName,
		encoder:   newDynamoEncoder(),
		newID:     uuid.NewString,
	}, nil
}

func newDynamoEncoder() *dynamodbattribute.Encoder {
	return dynamodbattribute.NewEncoder(func(e *dynamodbattribute.Encoder) {
		// "" is a value, not a missing field
		e.NullEmptyString = false
	})
}

// EnsureTable creates the DynamoDB table if it doesn't exist
func (d *DynamoDBStorage) EnsureTable(ctx context.Context) error {
	_, err := d.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tableName),
	})
	if err == nil {
		return nil // Table already exists
	}

	input := &dynamodb.CreateTableInput{
		TableName: aws.String(d.tableName),
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("id"),
				KeyType:       aws.String("HASH"),
			},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("id"),
				AttributeType: aws.String("S"),
			},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	}

	if _, err := d.client.CreateTableWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// Wait for table to be created
	return d.client.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tableName),
	})
}

// stringPtr maps NULL to nil
func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func toDynamoRow(rec models.EnrichedRecord) dynamoRow {
	return dynamoRow{
		DOI:             rec.DOI,
		ExternalID:      stringPtr(rec.ExternalID),
		DOIType:         stringPtr(rec.DOIType),
		JournalTitle:    stringPtr(rec.JournalTitle),
		ArticleTitle:    stringPtr(rec.ArticleTitle),
		Volume:          stringPtr(rec.Volume),
		FirstPage:       stringPtr(rec.FirstPage),
		Year:            stringPtr(rec.Year),
		Authors:         stringPtr(rec.Authors),
		Publisher:       stringPtr(rec.Publisher),
		PublicationDate: stringPtr(rec.PublicationDate),
		CitingDOIs:      stringPtr(rec.CitingDOIs),
		CitationCount:   stringPtr(rec.CitationCount),
	}
}

// item builds the DynamoDB item for rec under a fresh surrogate key
func (d *DynamoDBStorage) item(rec models.EnrichedRecord) (map[string]*dynamodb.AttributeValue, error) {
	row := toDynamoRow(rec)
	row.ID = d.newID()

	av, err := d.encoder.Encode(row)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record %s: %w", rec.DOI, err)
	}
	return av.M, nil
}

// InsertRecord stores rec as a new item
func (d *DynamoDBStorage) InsertRecord(ctx context.Context, rec models.EnrichedRecord) error {
	item, err := d.item(rec)
	if err != nil {
		return err
	}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", rec.DOI, err)
	}
	return nil
}

// Close closes the DynamoDB connection
func (d *DynamoDBStorage) Close() error {
	// DynamoDB client doesn't need explicit closing
	return nil
}
