package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Storage    StorageConfig
	Source     SourceConfig
	Enrichment EnrichmentConfig
	Log        LogConfig
	Server     ServerConfig
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	Type          string // "postgresql", "mongodb", "dynamodb"
	Region        string // For AWS DynamoDB
	TableName     string
	Endpoint      string // Custom endpoint for local testing
	MongoDBURI    string
	MongoDatabase string
	PostgresURI   string
}

// SourceConfig describes where the records to enrich come from
type SourceConfig struct {
	Type  string // "postgresql", "jsonl"
	Query string
	Path  string // For jsonl
}

// EnrichmentConfig holds the external API and pacing configuration
type EnrichmentConfig struct {
	MetadataEndpoint      string
	CitationCountEndpoint string
	CitationsEndpoint     string
	Mailto                string
	UserAgent             string
	Timeout               time.Duration
	RetryCount            int
	RetryBaseDelay        time.Duration
	RetryMaxDelay         time.Duration
	MetadataRetryCount    int
	PacingInterval        time.Duration // pause after each inserted row
	MinRequestInterval    time.Duration // citation request spacing; 0 is unthrottled
}

// LogConfig holds logging configuration
type LogConfig struct {
	File  string
	Level string
}

// ServerConfig holds the status server configuration. Port 0 disables it.
type ServerConfig struct {
	Port int
}

const defaultSourceQuery = "SELECT id, doi, confy_id FROM eudl.content WHERE doi_resolves = true"

// Load loads configuration from environment variables with defaults. A .env
// file in the working directory is read first; variables already set in the
// environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage: StorageConfig{
			Type:          getEnv("STORAGE_TYPE", "postgresql"),
			Region:        getEnv("AWS_REGION", "us-west-2"),
			TableName:     getEnv("TABLE_NAME", "mod.crossref_api_data"),
			Endpoint:      getEnv("DYNAMODB_ENDPOINT", ""), // For local DynamoDB
			MongoDBURI:    getEnv("MONGODB_URI", ""),
			MongoDatabase: getEnv("MONGODB_DATABASE", "crossref"),
			PostgresURI:   getEnv("POSTGRES_URI", ""),
		},
		Source: SourceConfig{
			Type:  getEnv("SOURCE_TYPE", "postgresql"),
			Query: getEnv("SOURCE_QUERY", defaultSourceQuery),
			Path:  getEnv("SOURCE_PATH", ""),
		},
		Enrichment: EnrichmentConfig{
			MetadataEndpoint:      getEnv("METADATA_ENDPOINT", "https://api.crossref.org/works"),
			CitationCountEndpoint: getEnv("CITATION_COUNT_ENDPOINT", "https://opencitations.net/index/api/v1/citation-count"),
			CitationsEndpoint:     getEnv("CITATIONS_ENDPOINT", "https://opencitations.net/index/api/v1/citations"),
			Mailto:                getEnv("CROSSREF_MAILTO", ""),
			UserAgent:             getEnv("USER_AGENT", "crossref-enrich/1.0"),
			Timeout:               getEnvDuration("API_TIMEOUT", 30*time.Second),
			RetryCount:            getEnvInt("RETRY_COUNT", 5),
			RetryBaseDelay:        getEnvDuration("RETRY_BASE_DELAY", time.Second),
			RetryMaxDelay:         getEnvDuration("RETRY_MAX_DELAY", 10*time.Second),
			MetadataRetryCount:    getEnvInt("METADATA_RETRY_COUNT", 3),
			PacingInterval:        getEnvDuration("PACING_INTERVAL", time.Second),
			MinRequestInterval:    getEnvDuration("MIN_REQUEST_INTERVAL", 0),
		},
		Log: LogConfig{
			File:  getEnv("LOG_FILE", "API.log"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getEnvInt("STATUS_PORT", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the run cannot work with
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "postgresql", "mongodb", "dynamodb":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	switch c.Source.Type {
	case "postgresql":
	case "jsonl":
		if c.Source.Path == "" {
			return fmt.Errorf("SOURCE_PATH is required for source type jsonl")
		}
	default:
		return fmt.Errorf("unsupported source type: %s", c.Source.Type)
	}

	e := c.Enrichment
	if e.RetryCount < 1 {
		return fmt.Errorf("RETRY_COUNT must be at least 1, got %d", e.RetryCount)
	}
	if e.MetadataRetryCount < 1 {
		return fmt.Errorf("METADATA_RETRY_COUNT must be at least 1, got %d", e.MetadataRetryCount)
	}
	if e.RetryMaxDelay < e.RetryBaseDelay {
		return fmt.Errorf("RETRY_MAX_DELAY (%s) is below RETRY_BASE_DELAY (%s)", e.RetryMaxDelay, e.RetryBaseDelay)
	}
	if e.PacingInterval < 0 {
		return fmt.Errorf("PACING_INTERVAL must not be negative")
	}
	if e.MinRequestInterval < 0 {
		return fmt.Errorf("MIN_REQUEST_INTERVAL must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
