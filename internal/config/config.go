package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/utafrali/CarCatalog/pkg/database"
	pkgconfig "github.com/utafrali/CarCatalog/pkg/config"
)

// Mirror backends.
const (
	MirrorRedis         = "redis"
	MirrorElasticsearch = "elasticsearch"
	MirrorMemory        = "memory"
	MirrorNone          = "none"
)

// Image storage backends.
const (
	BlobS3     = "s3"
	BlobMemory = "memory"
	BlobNone   = "none"
)

// Config holds all configuration for the catalog server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8000"`

	// PostgreSQL. DATABASE_URL wins over the discrete fields.
	DatabaseURL  string `env:"DATABASE_URL"`
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"car_catalog"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns         int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns         int32 `env:"DB_MIN_CONNS" envDefault:"1"`
	SlowQueryThreshold int   `env:"DB_SLOW_QUERY_MS" envDefault:"500"`

	// Mirror document store
	MirrorBackend string        `env:"MIRROR_BACKEND" envDefault:"memory"`
	MirrorURL     string        `env:"MIRROR_URL"`
	MirrorKey     string        `env:"MIRROR_KEY"`
	MirrorIndex   string        `env:"MIRROR_INDEX" envDefault:"cars"`
	MirrorTimeout time.Duration `env:"MIRROR_TIMEOUT" envDefault:"3s"`

	// Mirror outbox relay
	RelayInterval    time.Duration `env:"MIRROR_RELAY_INTERVAL" envDefault:"30s"`
	RelayBatch       int           `env:"MIRROR_RELAY_BATCH" envDefault:"100"`
	RelayMaxAttempts int           `env:"MIRROR_RELAY_MAX_ATTEMPTS" envDefault:"10"`

	// Notification service
	NotifyURL     string        `env:"NOTIFY_URL"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`

	// Image storage
	BlobBackend   string        `env:"BLOB_BACKEND" envDefault:"memory"`
	BlobEndpoint  string        `env:"BLOB_ENDPOINT"`
	BlobRegion    string        `env:"BLOB_REGION" envDefault:"us-east-1"`
	BlobBucket    string        `env:"BLOB_BUCKET" envDefault:"car-images"`
	BlobAccessKey string        `env:"BLOB_ACCESS_KEY"`
	BlobSecretKey string        `env:"BLOB_SECRET_KEY"`
	BlobURLTTL    time.Duration `env:"BLOB_URL_TTL" envDefault:"168h"`
	UploadMaxSize int64         `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`

	// Per-IP limit on write routes; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Kafka. Events are disabled when no broker is configured.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"catalog.cars"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from .env (if present) and the environment.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.DatabaseURL == "" && c.PostgresHost == "" {
		return fmt.Errorf("DATABASE_URL or POSTGRES_HOST is required")
	}
	if !slices.Contains([]string{MirrorRedis, MirrorElasticsearch, MirrorMemory, MirrorNone}, c.MirrorBackend) {
		return fmt.Errorf("MIRROR_BACKEND must be one of redis, elasticsearch, memory, none; got %q", c.MirrorBackend)
	}
	if (c.MirrorBackend == MirrorRedis || c.MirrorBackend == MirrorElasticsearch) && c.MirrorURL == "" {
		return fmt.Errorf("MIRROR_URL is required for the %s mirror", c.MirrorBackend)
	}
	if c.MirrorTimeout <= 0 {
		return fmt.Errorf("MIRROR_TIMEOUT must be > 0, got %s", c.MirrorTimeout)
	}
	if c.RelayInterval < 0 {
		return fmt.Errorf("MIRROR_RELAY_INTERVAL must be >= 0, got %s", c.RelayInterval)
	}
	if c.RelayBatch <= 0 || c.RelayMaxAttempts <= 0 {
		return fmt.Errorf("MIRROR_RELAY_BATCH and MIRROR_RELAY_MAX_ATTEMPTS must be > 0")
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be > 0, got %s", c.NotifyTimeout)
	}
	if !slices.Contains([]string{BlobS3, BlobMemory, BlobNone}, c.BlobBackend) {
		return fmt.Errorf("BLOB_BACKEND must be one of s3, memory, none; got %q", c.BlobBackend)
	}
	if c.BlobBackend == BlobS3 && c.BlobBucket == "" {
		return fmt.Errorf("BLOB_BUCKET is required for the s3 backend")
	}
	if c.UploadMaxSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be > 0, got %d", c.UploadMaxSize)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0, got %f", c.RateLimitRPS)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		URL:             c.DatabaseURL,
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}
