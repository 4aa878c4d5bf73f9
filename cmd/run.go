package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	runSkipFetch bool
	runNoCharts  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run fetch, prepare, analyze and report in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		if !runSkipFetch {
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
			defer stop()
			if err := runFetch(ctx, c, true, true); err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
		}
		if err := runPrepare(c); err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		if _, err := runAnalyze(c); err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		if err := runReport(c, c.Report.Charts && !runNoCharts); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runSkipFetch, "skip-fetch", false, "reuse previously downloaded raw files")
	runCmd.Flags().BoolVar(&runNoCharts, "no-charts", false, "skip chart rendering")
}
