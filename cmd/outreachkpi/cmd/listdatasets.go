package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/outreachkpi/internal/config"
	"github.com/dbsmedya/outreachkpi/internal/kpi"
)

var listDatasetsCmd = &cobra.Command{
	Use:   "list-datasets",
	Short: "List all datasets defined in configuration",
	Long: `List-datasets displays all datasets defined in the configuration file
along with their shape, source and polling settings.

Example:
  outreachkpi list-datasets --config outreachkpi.yaml`,
	RunE: runListDatasets,
}

func init() {
	rootCmd.AddCommand(listDatasetsCmd)
}

func runListDatasets(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides("", "", GetCLIOverrides().IntervalSeconds)

	names := cfg.ListDatasets()
	if len(names) == 0 {
		cmd.Printf("No datasets defined in %s\n", configFile)
		return nil
	}

	cmd.Printf("Datasets defined in %s:\n\n", configFile)

	for i, name := range names {
		ds, err := cfg.GetDataset(name)
		if err != nil {
			return fmt.Errorf("failed to get dataset %q: %w", name, err)
		}

		cmd.Printf("%d. %s\n", i+1, name)
		cmd.Printf("   Title:         %s\n", ds.Title)
		cmd.Printf("   Shape:         %s\n", ds.Shape)
		cmd.Printf("   Source:        %s\n", describeSource(&ds.Source))

		if interval := ds.RefreshInterval(); interval > 0 {
			cmd.Printf("   Refresh:       every %s\n", interval)
		} else {
			cmd.Printf("   Refresh:       (polling disabled)\n")
		}

		if shape, err := kpi.ParseShape(ds.Shape); err == nil {
			policy := kpi.EmptyPolicy(ds.OnEmpty)
			if policy == "" {
				policy = shape.DefaultEmptyPolicy()
			}
			cmd.Printf("   On empty:      %s\n", policy)
		}

		if len(ds.Formulas) > 0 {
			metrics := make([]string, 0, len(ds.Formulas))
			for m := range ds.Formulas {
				metrics = append(metrics, m)
			}
			sort.Strings(metrics)
			for _, m := range metrics {
				cmd.Printf("   Formula:       %s = %s\n", m, ds.Formulas[m])
			}
		}

		if i < len(names)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d dataset(s)\n", len(names))
	return nil
}

// describeSource summarises a source without credentials.
func describeSource(src *config.SourceConfig) string {
	switch src.Type {
	case "sql":
		desc := fmt.Sprintf("sql %s://%s:%d/%s table=%q", src.Driver, src.Host, src.Port, src.Database, src.Table)
		if len(src.Columns) > 0 {
			desc += " columns=" + strings.Join(src.Columns, ",")
		}
		return desc
	case "file":
		return "file " + src.Path
	default:
		u := src.URL
		if i := strings.Index(u, "?"); i >= 0 {
			u = u[:i]
		}
		return fmt.Sprintf("rest %s (envelope=%s, retries=%d)", u, src.EnvelopeKey, src.MaxRetries)
	}
}
