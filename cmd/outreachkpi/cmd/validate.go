package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/dashboard"
	"github.com/dbsmedya/outreachkpi/internal/database"
	"github.com/dbsmedya/outreachkpi/internal/notify"
)

var validateProbe bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and optionally probe every data source",
	Long: `Validate checks the configuration file for syntax and required fields.

Checks performed:
  - Dataset shapes and empty-result policies
  - Source settings (rest, sql, file)
  - Selectable formulas and business constants
  - Server and publisher settings

With --probe every dataset is fetched once and the record count is reported.

Example:
  outreachkpi validate --config outreachkpi.yaml --probe`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateProbe, "probe", false,
		"Fetch every dataset once and report record counts")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", configFile)

	cfg, err := loadConfig()
	if err != nil {
		cmd.Printf("❌ %v\n", err)
		return err
	}

	cmd.Printf("Datasets found: %d\n\n", len(cfg.Datasets))
	for _, name := range cfg.ListDatasets() {
		ds := cfg.Datasets[name]
		cmd.Printf("--- Dataset: %s ---\n", name)
		cmd.Printf("Shape: %s\n", ds.Shape)
		cmd.Printf("Source: %s\n", describeSource(&ds.Source))
		cmd.Printf("✅ Configuration valid\n\n")
	}

	if !validateProbe {
		cmd.Println("=== Validation Complete ===")
		cmd.Println("✅ All datasets validated successfully")
		return nil
	}

	if err := probeDatasets(cmd, cfg); err != nil {
		return err
	}

	cmd.Println("=== Validation Complete ===")
	cmd.Println("✅ All datasets validated and reachable")
	return nil
}

// probeDatasets fetches every dataset once without polling.
func probeDatasets(cmd *cobra.Command, cfg *config.Config) error {
	log, err := newCommandLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	dbManager := database.NewManager()
	defer dbManager.Close()

	mgr, err := dashboard.FromConfig(cfg, dashboard.Deps{
		DB:       dbManager,
		Notifier: notify.NewLogNotifier(log),
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to build data sources: %w", err)
	}

	ctx := context.Background()
	cmd.Printf("=== Source Probe ===\n")

	hasErrors := false
	for _, src := range mgr.Sources() {
		if err := src.Refresh(ctx); err != nil {
			cmd.Printf("❌ %s: %v\n", src.Dataset(), err)
			hasErrors = true
			continue
		}
		cmd.Printf("✅ %s: %d records\n", src.Dataset(), src.Summary().Records)
	}

	// Test connections opened by SQL sources
	if err := dbManager.Ping(ctx); err != nil {
		cmd.Printf("❌ %v\n", err)
		hasErrors = true
	}
	cmd.Println()

	if hasErrors {
		return fmt.Errorf("probe failed for one or more datasets")
	}
	return nil
}
