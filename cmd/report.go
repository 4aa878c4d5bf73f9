package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/KaramelBytes/bizratio-cli/internal/log"
	"github.com/KaramelBytes/bizratio-cli/internal/sink"
)

var reportNoCharts bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the per-cluster region list and charts from the merged table",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		return runReport(c, c.Report.Charts && !reportNoCharts)
	},
}

func runReport(c *cfgpkg.Global, charts bool) error {
	rows, err := sink.ReadMerged(c.Paths.Merged)
	if errors.Is(err, sink.ErrMissingInput) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s not found; run `bizratio analyze` first\n", c.Paths.Merged)
		return err
	}
	if err != nil {
		return err
	}
	rows = sink.Exclude(rows, c.Report.ExcludeRegions)
	groups := sink.GroupByCluster(rows, nil)

	listPath := filepath.Join(c.Paths.ResultsDir, sink.ClusterFile)
	if err := sink.WriteClusterList(listPath, groups); err != nil {
		return err
	}
	fmt.Printf("✓ Cluster list (%d clusters): %s\n", len(groups), listPath)

	if !charts {
		return nil
	}
	paths, err := sink.Charts(c.Paths.ResultsDir, rows, groups)
	if errors.Is(err, sink.ErrNoData) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; charts skipped\n", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("charts: %w", err)
	}
	for _, p := range paths {
		fmt.Printf("✓ Chart: %s\n", p)
	}
	log.Debugw("report written", "results_dir", c.Paths.ResultsDir, "charts", len(paths))
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportNoCharts, "no-charts", false, "skip chart rendering")
}
