package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// datasetNameRegex limits dataset names to what both backends accept unquoted.
// The length is checked separately: RE2 caps repeat counts at 1000.
var datasetNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxDatasetNameLen is the BigQuery dataset name limit.
const maxDatasetNameLen = 1024

// validDatasetName reports whether name is usable as a dataset or schema.
func validDatasetName(name string) bool {
	return len(name) <= maxDatasetNameLen && datasetNameRegex.MatchString(name)
}

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), os.Getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration populated from tag defaults only.
// The process environment is not consulted. Tests and tools build on it.
func Default() *Config {
	cfg := &Config{}
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), func(string) string { return "" }); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields using lookup for env values.
func loadStruct(v reflect.Value, lookup func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := lookup(envName)
		if value == "" && envAlt != "" {
			value = lookup(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		// Split comma-separated values, trim whitespace
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Warehouse validation
	switch strings.ToLower(c.Warehouse.Backend) {
	case BackendBigQuery:
		if c.Warehouse.ProjectID == "" {
			errs = append(errs, "GCP_PROJECT_ID is required for the bigquery backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" && c.Database.CloudSQLInstance == "" {
			errs = append(errs, "DATABASE_URL or CLOUDSQL_INSTANCE is required for the postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("WAREHOUSE_BACKEND (%q) must be one of: bigquery, postgres", c.Warehouse.Backend))
	}
	if !validDatasetName(c.Warehouse.StagingDataset) {
		errs = append(errs, fmt.Sprintf("BQ_DATASET (%q) must be letters, digits and underscores, at most 1024 long", c.Warehouse.StagingDataset))
	}
	if !validDatasetName(c.Warehouse.TempDataset) {
		errs = append(errs, fmt.Sprintf("BQ_TEMP_DATASET (%q) must be letters, digits and underscores, at most 1024 long", c.Warehouse.TempDataset))
	}
	if c.Warehouse.StagingDataset == c.Warehouse.TempDataset {
		errs = append(errs, "BQ_TEMP_DATASET must differ from BQ_DATASET")
	}
	if c.Warehouse.Location == "" {
		errs = append(errs, "BQ_LOCATION must not be empty")
	}

	// Database validation
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Storage validation
	switch c.Storage.Scheme {
	case "gs", "file":
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_SCHEME (%q) must be one of: gs, file", c.Storage.Scheme))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.MaxEventBytes <= 0 {
		errs = append(errs, "SERVER_MAX_EVENT_BYTES must be positive")
	}

	// Ingest validation
	if c.Ingest.MaxConcurrent <= 0 {
		errs = append(errs, "INGEST_MAX_CONCURRENT must be positive")
	}
	if c.Ingest.MaxWaitTime <= 0 {
		errs = append(errs, "INGEST_MAX_WAIT_TIME must be positive")
	}
	if c.Ingest.RunTimeout <= 0 {
		errs = append(errs, "INGEST_RUN_TIMEOUT must be positive")
	}
	if c.Ingest.CleanupTimeout <= 0 {
		errs = append(errs, "INGEST_CLEANUP_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Warehouse: {Backend: %q, ProjectID: %q, StagingDataset: %q, TempDataset: %q, Location: %q}, ",
		c.Warehouse.Backend, c.Warehouse.ProjectID, c.Warehouse.StagingDataset, c.Warehouse.TempDataset, c.Warehouse.Location))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], CloudSQLInstance: %q, MaxConns: %d, MinConns: %d}, ",
		c.Database.CloudSQLInstance, c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Storage: {Scheme: %q}, ", c.Storage.Scheme))
	b.WriteString(fmt.Sprintf("Ingest: {MaxConcurrent: %d, RunTimeout: %s}, ",
		c.Ingest.MaxConcurrent, c.Ingest.RunTimeout))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
