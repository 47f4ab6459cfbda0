package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/logger"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile         string
	logLevel        string
	logFormat       string
	intervalSeconds int
)

var rootCmd = &cobra.Command{
	Use:   "outreachkpi",
	Short: "Outreach campaign KPI service",
	Long: `Retrieves prospecting and outreach records (LinkedIn connection automation,
LinkedIn prospect lists, email campaigns) from REST endpoints, SQL databases or
JSON files and derives marketing and sales metrics from them.

Features:
  - Acceptance, response and meeting rates with selectable formulas
  - Funnels and top-N breakdowns
  - Projected revenue, time saved and ROI from configurable business constants
  - Polling data sources with a JSON API, Prometheus metrics and a web dashboard
  - Optional Redis snapshot publishing`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "outreachkpi.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Polling override
	rootCmd.PersistentFlags().IntVar(&intervalSeconds, "interval", 0,
		"Override refresh interval in seconds for every dataset")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel        string
	LogFormat       string
	IntervalSeconds int
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		IntervalSeconds: intervalSeconds,
	}
}

// loadConfig loads the config file, applies CLI overrides and validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.IntervalSeconds)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newCommandLogger builds a logger for commands that print results on stdout.
// Log lines that would go to stdout are sent to stderr instead.
func newCommandLogger(cfg *config.Config) (*logger.Logger, error) {
	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	log, err := logger.New(&logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}
