package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/outreachkpi/internal/dashboard"
	"github.com/dbsmedya/outreachkpi/internal/database"
	"github.com/dbsmedya/outreachkpi/internal/notify"
	"github.com/dbsmedya/outreachkpi/internal/report"
)

// maxParallelFetches bounds concurrent dataset fetches of one snapshot run.
const maxParallelFetches = 4

var (
	snapshotDatasets []string
	snapshotAll      bool
	snapshotFormat   string
	snapshotNoColor  bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch datasets once and print their metrics",
	Long: `Snapshot fetches one or more datasets once, computes their metrics and
prints them as a terminal report, JSON or YAML.

Example:
  outreachkpi snapshot --config outreachkpi.yaml --dataset email
  outreachkpi snapshot --all --format json`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringSliceVarP(&snapshotDatasets, "dataset", "d", nil,
		"Dataset name from configuration file (repeatable)")
	snapshotCmd.Flags().BoolVar(&snapshotAll, "all", false,
		"Fetch every configured dataset")
	snapshotCmd.Flags().StringVar(&snapshotFormat, "format", "text",
		"Output format (text, json, yaml)")
	snapshotCmd.Flags().BoolVar(&snapshotNoColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	switch snapshotFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid format %q (must be text, json, or yaml)", snapshotFormat)
	}
	if !snapshotAll && len(snapshotDatasets) == 0 {
		return errors.New("either --dataset or --all is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

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

	names := snapshotDatasets
	if snapshotAll {
		names = mgr.Names()
	}
	sources := make([]*dashboard.Source, 0, len(names))
	for _, name := range names {
		src, ok := mgr.Get(name)
		if !ok {
			return fmt.Errorf("dataset '%s' not found in configuration", name)
		}
		sources = append(sources, src)
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			log.Warn("Received shutdown signal - cancelling fetches...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Fetch errors are kept per dataset so every view is still printed.
	fetchErrs := make([]error, len(sources))
	var g errgroup.Group
	g.SetLimit(maxParallelFetches)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			fetchErrs[i] = src.Refresh(ctx)
			return nil
		})
	}
	_ = g.Wait()

	views := make([]dashboard.View, len(sources))
	for i, src := range sources {
		views[i] = src.View()
	}

	if err := printViews(cmd, views); err != nil {
		return err
	}

	if err := errors.Join(fetchErrs...); err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	return nil
}

func printViews(cmd *cobra.Command, views []dashboard.View) error {
	out := cmd.OutOrStdout()

	switch snapshotFormat {
	case "json":
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return enc.Close()
	default:
		printer := report.NewPrinter(out, color.SupportColor() && !snapshotNoColor)
		for i, v := range views {
			if i > 0 {
				fmt.Fprintln(out)
			}
			printer.Render(v)
		}
		return nil
	}
}
