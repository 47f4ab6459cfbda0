// Package config provides configuration structures and loading for outreachkpi.
package config

import (
	"fmt"
	"sort"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Datasets map[string]DatasetConfig `yaml:"datasets" mapstructure:"datasets"`
	Server   ServerConfig             `yaml:"server" mapstructure:"server"`
	Publish  PublishConfig            `yaml:"publish" mapstructure:"publish"`
	Logging  LoggingConfig            `yaml:"logging" mapstructure:"logging"`
}

// DatasetConfig describes one outreach dataset: where its records live and
// how its metrics are computed.
type DatasetConfig struct {
	Title                  string            `yaml:"title" mapstructure:"title"`
	Shape                  string            `yaml:"shape" mapstructure:"shape"` // email, linkedin, connections
	RefreshIntervalSeconds int               `yaml:"refresh_interval_seconds" mapstructure:"refresh_interval_seconds"`
	OnEmpty                string            `yaml:"on_empty" mapstructure:"on_empty"` // keep, clear, compute
	Source                 SourceConfig      `yaml:"source" mapstructure:"source"`
	Business               BusinessConfig    `yaml:"business" mapstructure:"business"`
	Formulas               map[string]string `yaml:"formulas" mapstructure:"formulas"`
}

// SourceConfig represents the record store a dataset is read from.
type SourceConfig struct {
	Type           string            `yaml:"type" mapstructure:"type"` // rest, sql, file
	URL            string            `yaml:"url" mapstructure:"url"`
	Headers        map[string]string `yaml:"headers" mapstructure:"headers"`
	EnvelopeKey    string            `yaml:"envelope_key" mapstructure:"envelope_key"`
	TimeoutSeconds int               `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxRetries     int               `yaml:"max_retries" mapstructure:"max_retries"`
	Path           string            `yaml:"path" mapstructure:"path"`
	Table          string            `yaml:"table" mapstructure:"table"`
	Columns        []string          `yaml:"columns" mapstructure:"columns"`

	DatabaseConfig `yaml:",inline" mapstructure:",squash"`
}

// DatabaseConfig represents a SQL record store connection.
type DatabaseConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // mysql, postgres
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// BusinessConfig overrides the shape's business constants. Omitted keys keep
// the default; an explicit 0 is applied.
type BusinessConfig struct {
	HourlyRate       *float64 `yaml:"hourly_rate" mapstructure:"hourly_rate"`
	MinutesPerRecord *float64 `yaml:"minutes_per_record" mapstructure:"minutes_per_record"`
	AvgDealSize      *float64 `yaml:"avg_deal_size" mapstructure:"avg_deal_size"`
	CloseRate        *float64 `yaml:"close_rate" mapstructure:"close_rate"`
	SystemCost       *float64 `yaml:"system_cost" mapstructure:"system_cost"`
}

// ServerConfig represents the HTTP server settings of the serve command.
type ServerConfig struct {
	Listen           string `yaml:"listen" mapstructure:"listen"`
	APIKey           string `yaml:"api_key" mapstructure:"api_key"`
	RefreshPerMinute int    `yaml:"refresh_per_minute" mapstructure:"refresh_per_minute"`
}

// PublishConfig represents the optional snapshot publishers.
type PublishConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig represents the Redis snapshot publisher.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr       string `yaml:"addr" mapstructure:"addr"`
	Password   string `yaml:"password" mapstructure:"password"`
	DB         int    `yaml:"db" mapstructure:"db"`
	KeyPrefix  string `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
	Channel    string `yaml:"channel" mapstructure:"channel"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// Dataset and source defaults applied after loading.
const (
	DefaultRefreshIntervalSeconds = 30
	DefaultTimeoutSeconds         = 15
	DefaultMaxRetries             = 3
	DefaultEnvelopeKey            = "list"
	DefaultMaxConnections         = 5
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Datasets: map[string]DatasetConfig{},
		Server: ServerConfig{
			Listen:           "127.0.0.1:8080",
			RefreshPerMinute: 6,
		},
		Publish: PublishConfig{
			Redis: RedisConfig{
				Enabled:    false,
				Addr:       "localhost:6379",
				KeyPrefix:  "outreachkpi:",
				TTLSeconds: 300,
				Channel:    "outreachkpi:updates",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyDefaults fills unset dataset fields. Map entries cannot carry
// defaults through DefaultConfig, so this runs after unmarshalling.
func (c *Config) applyDefaults() {
	for name, ds := range c.Datasets {
		if ds.Title == "" {
			ds.Title = name
		}
		if ds.RefreshIntervalSeconds == 0 {
			ds.RefreshIntervalSeconds = DefaultRefreshIntervalSeconds
		}
		src := &ds.Source
		if src.Type == "" {
			src.Type = "rest"
		}
		switch src.Type {
		case "rest":
			if src.TimeoutSeconds == 0 {
				src.TimeoutSeconds = DefaultTimeoutSeconds
			}
			if src.MaxRetries == 0 {
				src.MaxRetries = DefaultMaxRetries
			}
			if src.EnvelopeKey == "" {
				src.EnvelopeKey = DefaultEnvelopeKey
			}
		case "file":
			if src.EnvelopeKey == "" {
				src.EnvelopeKey = DefaultEnvelopeKey
			}
		case "sql":
			if src.Driver == "" {
				src.Driver = "postgres"
			}
			if src.Port == 0 {
				src.Port = DefaultPort(src.Driver)
			}
			if src.TLS == "" {
				src.TLS = "preferred"
			}
			if src.MaxConnections == 0 {
				src.MaxConnections = DefaultMaxConnections
			}
		}
		c.Datasets[name] = ds
	}
}

// DefaultPort returns the standard port of a SQL driver.
func DefaultPort(driver string) int {
	if driver == "mysql" {
		return 3306
	}
	return 5432
}

// RefreshInterval returns the polling interval of the dataset.
// A negative refresh_interval_seconds disables polling.
func (d *DatasetConfig) RefreshInterval() time.Duration {
	if d.RefreshIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(d.RefreshIntervalSeconds) * time.Second
}

// Timeout returns the request timeout of a REST source.
func (s *SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// GetDataset retrieves a specific dataset configuration by name.
func (c *Config) GetDataset(name string) (*DatasetConfig, error) {
	ds, exists := c.Datasets[name]
	if !exists {
		return nil, fmt.Errorf("dataset %q not found in configuration", name)
	}
	return &ds, nil
}

// ListDatasets returns all dataset names defined in the configuration, sorted.
func (c *Config) ListDatasets() []string {
	names := make([]string, 0, len(c.Datasets))
	for name := range c.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, intervalSeconds int) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if intervalSeconds > 0 {
		for name, ds := range c.Datasets {
			ds.RefreshIntervalSeconds = intervalSeconds
			c.Datasets[name] = ds
		}
	}
}
