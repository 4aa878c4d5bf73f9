package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	cfgpkg "github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/KaramelBytes/bizratio-cli/internal/fetch"
	"github.com/KaramelBytes/bizratio-cli/internal/log"
	"github.com/spf13/cobra"
)

var (
	fetchSkipBusinesses bool
	fetchSkipPopulation bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the business table and the population projection spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
		defer stop()
		return runFetch(ctx, c, !fetchSkipBusinesses, !fetchSkipPopulation)
	},
}

func newFetchClient(c *cfgpkg.Global) *fetch.Client {
	return fetch.NewClient(
		time.Duration(c.Fetch.HTTPTimeoutSec)*time.Second,
		c.Fetch.RetryMaxAttempts,
		time.Duration(c.Fetch.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(c.Fetch.RetryMaxDelayMs)*time.Millisecond,
	)
}

func runFetch(ctx context.Context, c *cfgpkg.Global, businesses, population bool) error {
	client := newFetchClient(c)
	lg := log.With("stage", "fetch")
	if businesses {
		if c.Fetch.SidraURL == "" {
			return fmt.Errorf("fetch.sidra_url is not set")
		}
		t, err := client.FetchTable(ctx, c.Fetch.SidraURL)
		if err != nil {
			return fmt.Errorf("fetch business table: %w", err)
		}
		histEnd := c.Study.HistoryEnd()
		parts := []fetch.Partition{
			{From: c.Study.Start, To: histEnd, Path: c.Paths.BusinessesHistory},
			{From: histEnd + 1, To: c.Study.End, Path: c.Paths.BusinessesRecent},
		}
		if err := fetch.SplitByYear(t, c.Columns.Year, parts); err != nil {
			return err
		}
		lg.Infow("business table saved", "rows", len(t.Rows))
		for _, p := range parts {
			fmt.Printf("✓ Saved %d-%d businesses: %s\n", p.From, p.To, p.Path)
		}
	}
	if population {
		if c.Fetch.PopulationURL == "" {
			return fmt.Errorf("fetch.population_url is not set")
		}
		if err := client.Download(ctx, c.Fetch.PopulationURL, c.Paths.PopulationXLSX); err != nil {
			return fmt.Errorf("download population: %w", err)
		}
		lg.Infow("population spreadsheet saved", "path", c.Paths.PopulationXLSX)
		fmt.Printf("✓ Saved population projections: %s\n", c.Paths.PopulationXLSX)
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchSkipBusinesses, "skip-businesses", false, "do not download the business table")
	fetchCmd.Flags().BoolVar(&fetchSkipPopulation, "skip-population", false, "do not download the population spreadsheet")
}
