package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dbsmedya/outreachkpi/internal/kpi"
	"github.com/dbsmedya/outreachkpi/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if len(c.Datasets) == 0 {
		errors = append(errors, ValidationError{
			Field:   "datasets",
			Message: "at least one dataset must be defined",
		})
	}
	for _, name := range c.ListDatasets() {
		ds := c.Datasets[name]
		if err := c.validateDataset(name, &ds); err != nil {
			errors = append(errors, err...)
		}
	}

	if err := c.validateServer(); err != nil {
		errors = append(errors, err...)
	}

	if c.Publish.Redis.Enabled {
		if err := c.validateRedis(); err != nil {
			errors = append(errors, err...)
		}
	}

	// Validate logging settings
	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDataset(name string, ds *DatasetConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("datasets.%s", name)

	shape, err := kpi.ParseShape(ds.Shape)
	if err != nil {
		errors = append(errors, ValidationError{
			Field:   prefix + ".shape",
			Message: "shape must be 'email', 'linkedin', or 'connections'",
		})
	} else if _, err := kpi.ResolveFormulas(shape, ds.Formulas); err != nil {
		errors = append(errors, ValidationError{
			Field:   prefix + ".formulas",
			Message: err.Error(),
		})
	}

	if _, err := kpi.ParseEmptyPolicy(ds.OnEmpty); err != nil {
		errors = append(errors, ValidationError{
			Field:   prefix + ".on_empty",
			Message: "on_empty must be 'keep', 'clear', or 'compute'",
		})
	}

	b := ds.Business
	if negative(b.HourlyRate) || negative(b.MinutesPerRecord) || negative(b.AvgDealSize) || negative(b.SystemCost) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".business",
			Message: "business constants cannot be negative",
		})
	}
	if b.CloseRate != nil && (*b.CloseRate < 0 || *b.CloseRate > 1) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".business.close_rate",
			Message: "close_rate must be between 0 and 1",
		})
	}

	errors = append(errors, c.validateSource(prefix+".source", &ds.Source)...)
	return errors
}

func negative(v *float64) bool {
	return v != nil && *v < 0
}

func (c *Config) validateSource(prefix string, src *SourceConfig) ValidationErrors {
	var errors ValidationErrors

	switch src.Type {
	case "rest":
		u, err := url.Parse(src.URL)
		if src.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".url",
				Message: "url must be an absolute http(s) URL",
			})
		}
		if src.TimeoutSeconds < 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".timeout_seconds",
				Message: "timeout_seconds cannot be negative",
			})
		}
		if src.MaxRetries < 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".max_retries",
				Message: "max_retries cannot be negative",
			})
		}
	case "file":
		if src.Path == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".path",
				Message: "path is required",
			})
		}
	case "sql":
		errors = append(errors, c.validateDatabase(prefix, &src.DatabaseConfig)...)
		if !sqlutil.IsValidIdentifier(src.Table) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".table",
				Message: "table must contain only letters, digits, underscores and spaces",
			})
		}
		for i, col := range src.Columns {
			if strings.TrimSpace(col) == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("%s.columns[%d]", prefix, i),
					Message: "column name cannot be empty",
				})
			}
		}
	default:
		errors = append(errors, ValidationError{
			Field:   prefix + ".type",
			Message: "type must be 'rest', 'sql', or 'file'",
		})
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	validDrivers := map[string]bool{"mysql": true, "postgres": true}
	if !validDrivers[db.Driver] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".driver",
			Message: "driver must be 'mysql' or 'postgres'",
		})
	}

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateServer() ValidationErrors {
	var errors ValidationErrors

	if c.Server.Listen == "" {
		errors = append(errors, ValidationError{
			Field:   "server.listen",
			Message: "listen address is required",
		})
	}

	if c.Server.RefreshPerMinute < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.refresh_per_minute",
			Message: "refresh_per_minute cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateRedis() ValidationErrors {
	var errors ValidationErrors

	if c.Publish.Redis.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "publish.redis.addr",
			Message: "addr is required when redis publishing is enabled",
		})
	}

	if c.Publish.Redis.DB < 0 {
		errors = append(errors, ValidationError{
			Field:   "publish.redis.db",
			Message: "db cannot be negative",
		})
	}

	if c.Publish.Redis.TTLSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "publish.redis.ttl_seconds",
			Message: "ttl_seconds cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
