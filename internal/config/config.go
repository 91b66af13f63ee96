// Package config provides centralized configuration management for the loader.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Backend names accepted by WAREHOUSE_BACKEND.
const (
	BackendBigQuery = "bigquery"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Warehouse WarehouseConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Ingest    IngestConfig
	Logging   LoggingConfig
}

// ServerConfig holds settings for the HTTP event receiver.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on. PORT is what Cloud Run and Cloud Functions inject.
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout must outlive a full ingestion run (default: 15m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"15m"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for in-flight runs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxEventBytes caps the size of an inbound notification body (default: 1MB)
	MaxEventBytes int64 `env:"SERVER_MAX_EVENT_BYTES" default:"1048576"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers are believed.
	// Comma-separated; empty trusts nobody.
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`

	// APIKeys gates the /api routes when set. Event routes stay open so push
	// subscriptions and storage triggers can reach them.
	APIKeys []string `env:"SERVER_API_KEYS"`
}

// WarehouseConfig selects the warehouse backend and names the datasets it writes to.
type WarehouseConfig struct {
	// Backend is "bigquery" or "postgres" (default: bigquery)
	Backend string `env:"WAREHOUSE_BACKEND" default:"bigquery"`

	// ProjectID is the warehouse project. Ignored by the postgres backend.
	ProjectID string `env:"GCP_PROJECT_ID" default:"striking-coil-474009-u5"`

	// StagingDataset holds the permanent staging tables (default: staging)
	StagingDataset string `env:"BQ_DATASET" default:"staging"`

	// TempDataset holds the per-run disposable tables (default: staging_temp)
	TempDataset string `env:"BQ_TEMP_DATASET" default:"staging_temp"`

	// Location is the geographic location datasets are created in (default: EU)
	Location string `env:"BQ_LOCATION" default:"EU"`
}

// DatabaseConfig holds connection settings for the postgres backend.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Required when WAREHOUSE_BACKEND=postgres; DB_URL is accepted for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// CloudSQLInstance enables the Cloud SQL IAM dialer (project:region:instance).
	CloudSQLInstance string `env:"CLOUDSQL_INSTANCE"`

	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// StorageConfig describes where source objects live.
type StorageConfig struct {
	// Scheme prefixes object URIs: gs://bucket/name (default: gs)
	Scheme string `env:"STORAGE_SCHEME" default:"gs"`

	// LocalRoot is the directory backing the file scheme.
	LocalRoot string `env:"STORAGE_LOCAL_ROOT" default:"."`
}

// IngestConfig bounds how ingestion runs execute inside one process.
type IngestConfig struct {
	// MaxConcurrent is the maximum number of parallel runs (default: 4)
	MaxConcurrent int `env:"INGEST_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an event waits for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"INGEST_MAX_WAIT_TIME" default:"30s"`

	// RunTimeout caps a single run end to end (default: 10m)
	RunTimeout time.Duration `env:"INGEST_RUN_TIMEOUT" default:"10m"`

	// CleanupTimeout bounds the temp table drop, which runs even after the run context ends (default: 1m)
	CleanupTimeout time.Duration `env:"INGEST_CLEANUP_TIMEOUT" default:"1m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
