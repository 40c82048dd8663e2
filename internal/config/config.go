package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration.
type Config struct {
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`

	Database    DatabaseConfig
	TripleStore TripleStoreConfig
	Index       IndexConfig
	Cache       CacheConfig
	Records     RecordsConfig
	Ontology    OntologyConfig
	Journal     JournalConfig
	Otel        OtelConfig

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings for the update journal.
type DatabaseConfig struct {
	Enabled      bool          `env:"DATABASE_ENABLED" envDefault:"true"`
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"osf"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"osf"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
	AutoMigrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// TripleStoreConfig points at the SPARQL 1.1 endpoints of the triple store.
type TripleStoreConfig struct {
	// "sparql" or "memory"
	Backend        string        `env:"TRIPLESTORE_BACKEND" envDefault:"sparql"`
	QueryEndpoint  string        `env:"SPARQL_ENDPOINT" envDefault:"http://localhost:8890/sparql"`
	UpdateEndpoint string        `env:"SPARQL_UPDATE_ENDPOINT"`
	GraphStore     string        `env:"SPARQL_GRAPH_STORE_ENDPOINT"`
	User           string        `env:"SPARQL_USER"`
	Password       string        `env:"SPARQL_PASSWORD"`
	BulkLoad       bool          `env:"SPARQL_BULK_LOAD" envDefault:"false"`
	Timeout        time.Duration `env:"SPARQL_TIMEOUT" envDefault:"60s"`
}

// UpdateURL falls back to the query endpoint when no separate update
// endpoint is configured.
func (t TripleStoreConfig) UpdateURL() string {
	if t.UpdateEndpoint != "" {
		return t.UpdateEndpoint
	}
	return t.QueryEndpoint
}

// IndexConfig points at the Solr core holding search documents.
type IndexConfig struct {
	// "solr" or "memory"
	Backend    string        `env:"INDEX_BACKEND" envDefault:"solr"`
	URL        string        `env:"SOLR_URL" envDefault:"http://localhost:8983/solr"`
	Core       string        `env:"SOLR_CORE" envDefault:"osf"`
	AutoCommit bool          `env:"SOLR_AUTO_COMMIT" envDefault:"false"`
	Timeout    time.Duration `env:"SOLR_TIMEOUT" envDefault:"30s"`
}

// CacheConfig selects the shared cache collaborator.
type CacheConfig struct {
	// "nats" or "memory"
	Backend string        `env:"CACHE_BACKEND" envDefault:"nats"`
	NatsURL string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	Bucket  string        `env:"CACHE_BUCKET" envDefault:"osf_cache"`
	TTL     time.Duration `env:"CACHE_TTL" envDefault:"1h"`
}

// RecordsConfig tunes the update pipeline.
type RecordsConfig struct {
	// Ordered; the first entry is the default language.
	Languages        []string      `env:"RECORDS_LANGUAGES" envSeparator:"," envDefault:"en"`
	GeoEnabled       bool          `env:"RECORDS_GEO_ENABLED" envDefault:"false"`
	RevisionMinDelay time.Duration `env:"RECORDS_REVISION_MIN_DELAY" envDefault:"1us"`
	RootType         string        `env:"RECORDS_ROOT_TYPE" envDefault:"http://www.w3.org/2002/07/owl#Thing"`
	MaxDocumentSize  int64         `env:"RECORDS_MAX_DOCUMENT_SIZE" envDefault:"10485760"`
}

// OntologyConfig sizes the process-local metadata memo.
type OntologyConfig struct {
	LocalCacheSize int           `env:"ONTOLOGY_LOCAL_CACHE_SIZE" envDefault:"4096"`
	LocalCacheTTL  time.Duration `env:"ONTOLOGY_LOCAL_CACHE_TTL" envDefault:"10m"`
}

// JournalConfig controls the sweeper that cleans up after interrupted updates.
type JournalConfig struct {
	SweepEnabled  bool          `env:"JOURNAL_SWEEP_ENABLED" envDefault:"true"`
	SweepInterval time.Duration `env:"JOURNAL_SWEEP_INTERVAL" envDefault:"5m"`
	StaleAfter    time.Duration `env:"JOURNAL_STALE_AFTER" envDefault:"15m"`
}

// NewConfig parses the environment.
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.Bool("db_enabled", cfg.Database.Enabled),
		slog.String("triplestore", cfg.TripleStore.Backend),
		slog.String("sparql_endpoint", cfg.TripleStore.QueryEndpoint),
		slog.String("index", cfg.Index.Backend),
		slog.String("cache", cfg.Cache.Backend),
		slog.Any("languages", cfg.Records.Languages),
	)

	return cfg, nil
}

// Load parses the environment without logging.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Records.Languages) == 0 {
		return nil, fmt.Errorf("RECORDS_LANGUAGES must name at least one language")
	}
	return cfg, nil
}
