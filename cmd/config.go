package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set bizratio configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("study: %d-%d (recent_years=%d, targets=%v)\n", cfg.Study.Start, cfg.Study.End, cfg.Study.RecentYears, cfg.Study.TargetYears())
		fmt.Printf("interpolation: %s\n", cfg.Interpolation)
		fmt.Printf("data_dir: %s\n", cfg.Paths.DataDir)
		fmt.Printf("results_dir: %s\n", cfg.Paths.ResultsDir)
		fmt.Printf("businesses: %s\n", cfg.Paths.Businesses)
		fmt.Printf("population: %s\n", cfg.Paths.Population)
		fmt.Printf("merged: %s\n", cfg.Paths.Merged)
		fmt.Printf("clustering: k=%d seed=%d n_init=%d max_iter=%d tolerance=%g leading_gap=%s\n",
			cfg.Clustering.K, cfg.Clustering.Seed, cfg.Clustering.NInit, cfg.Clustering.MaxIter,
			cfg.Clustering.Tolerance, cfg.Clustering.LeadingGap)
		fmt.Printf("sidra_url: %s\n", cfg.Fetch.SidraURL)
		fmt.Printf("population_url: %s\n", cfg.Fetch.PopulationURL)
		fmt.Printf("http: timeout=%ds retry_max=%d base=%dms cap=%dms\n", cfg.Fetch.HTTPTimeoutSec,
			cfg.Fetch.RetryMaxAttempts, cfg.Fetch.RetryBaseDelayMs, cfg.Fetch.RetryMaxDelayMs)
		fmt.Printf("exclude_regions: %s\n", strings.Join(cfg.Report.ExcludeRegions, ", "))
		fmt.Printf("charts: %t\n", cfg.Report.Charts)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			cfg = cfgpkg.Default()
		}
		before := *cfg
		if err := setKey(cfg, key, val); err != nil {
			return err
		}
		cfg.Reresolve(before)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Printf("✓ Saved %s = %s\n", key, val)
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "study.start":
		c.Study.Start, err = atoi()
	case "study.end":
		c.Study.End, err = atoi()
	case "study.recent_years":
		c.Study.RecentYears, err = atoi()
	case "interpolation":
		c.Interpolation = strings.ToLower(val)
	case "paths.data_dir":
		c.Paths.DataDir = val
	case "paths.results_dir":
		c.Paths.ResultsDir = val
	case "paths.businesses":
		c.Paths.Businesses = val
	case "paths.population":
		c.Paths.Population = val
	case "paths.population_xlsx":
		c.Paths.PopulationXLSX = val
	case "paths.merged":
		c.Paths.Merged = val
	case "clustering.k":
		c.Clustering.K, err = atoi()
	case "clustering.seed":
		s, perr := strconv.ParseUint(val, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid seed: %v", val)
		}
		c.Clustering.Seed = s
	case "clustering.n_init":
		c.Clustering.NInit, err = atoi()
	case "clustering.max_iter":
		c.Clustering.MaxIter, err = atoi()
	case "clustering.tolerance":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for clustering.tolerance: %w", perr)
		}
		c.Clustering.Tolerance = f
	case "clustering.leading_gap":
		c.Clustering.LeadingGap = strings.ToLower(val)
	case "fetch.sidra_url":
		c.Fetch.SidraURL = val
	case "fetch.population_url":
		c.Fetch.PopulationURL = val
	case "fetch.http_timeout_sec":
		c.Fetch.HTTPTimeoutSec, err = atoi()
	case "report.exclude_regions":
		c.Report.ExcludeRegions = splitList(val)
	case "report.charts":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for report.charts: %v", val)
		}
		c.Report.Charts = b
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
