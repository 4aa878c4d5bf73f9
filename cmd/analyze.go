package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/bizratio-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/KaramelBytes/bizratio-cli/internal/dataset"
	"github.com/KaramelBytes/bizratio-cli/internal/log"
	"github.com/KaramelBytes/bizratio-cli/internal/sink"
	"github.com/KaramelBytes/bizratio-cli/internal/table"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Join, interpolate, cluster and classify; writes the merged table and a run summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		_, err = runAnalyze(c)
		return err
	},
}

func analysisOptions(c *cfgpkg.Global) (analysis.Options, error) {
	method, err := analysis.ParseMethod(c.Interpolation)
	if err != nil {
		return analysis.Options{}, err
	}
	targets := c.Study.TargetYears()
	return analysis.Options{
		TargetYears: targets,
		RecentYears: targets,
		Method:      method,
		Cluster: analysis.ClusterOptions{
			K:          c.Clustering.K,
			Seed:       c.Clustering.Seed,
			NInit:      c.Clustering.NInit,
			MaxIter:    c.Clustering.MaxIter,
			Tolerance:  c.Clustering.Tolerance,
			LeadingGap: analysis.LeadingGap(c.Clustering.LeadingGap),
		},
	}, nil
}

func runAnalyze(c *cfgpkg.Global) (*sink.Summary, error) {
	started := time.Now().UTC()
	runID := uuid.NewString()
	lg := log.With("stage", "analyze", "run_id", runID)

	popTable, err := table.ReadFile(c.Paths.Population, table.Options{})
	if err != nil {
		return nil, fmt.Errorf("read population: %w", err)
	}
	bizTable, err := table.ReadFile(c.Paths.Businesses, table.Options{})
	if err != nil {
		return nil, fmt.Errorf("read businesses: %w", err)
	}
	pop, err := dataset.LoadPopulation(popTable, c.Columns, dataset.Years(c.Study.Start, c.Study.End))
	if err != nil {
		return nil, fmt.Errorf("load population: %w", err)
	}
	biz, err := dataset.LoadBusinesses(bizTable, c.Columns)
	if err != nil {
		return nil, fmt.Errorf("load businesses: %w", err)
	}

	opt, err := analysisOptions(c)
	if err != nil {
		return nil, err
	}
	res, err := analysis.Run(pop, biz, opt)
	if err != nil {
		return nil, err
	}
	if err := sink.WriteMerged(c.Paths.Merged, res.Annotated()); err != nil {
		return nil, err
	}

	metricsPath := filepath.Join(c.Paths.ResultsDir, sink.MetricsFile)
	s := &sink.Summary{
		RunID:         runID,
		StartedAt:     started,
		StudyStart:    c.Study.Start,
		StudyEnd:      c.Study.End,
		TargetYears:   opt.TargetYears,
		Interpolation: string(opt.Method),
		Outputs: map[string]string{
			"merged":  c.Paths.Merged,
			"metrics": metricsPath,
		},
	}
	sink.Summarize(s, res, c.Clustering.K, c.Report.ExcludeRegions)
	s.FinishedAt = time.Now().UTC()
	if err := sink.WriteMetrics(metricsPath, s); err != nil {
		return nil, err
	}
	if err := sink.WriteSummary(c.Paths.Summary, s); err != nil {
		return nil, err
	}
	lg.Infow("analysis written", "merged", c.Paths.Merged, "summary", c.Paths.Summary, "rows", s.Rows)

	fmt.Printf("✓ Merged data (%d rows, %d interpolated): %s\n", s.Rows, s.SyntheticRows, c.Paths.Merged)
	fmt.Printf("✓ Run summary: %s\n", c.Paths.Summary)
	if len(s.Dropped) > 0 {
		fmt.Printf("⚠ Regions without a leading value were not clustered: %s\n", strings.Join(s.Dropped, ", "))
	}
	fmt.Printf("Saturated markets (ratio above %.2f): %s\n", s.Q75, listOrNone(s.Saturated))
	fmt.Printf("Opportunity markets (ratio below %.2f): %s\n", s.Q25, listOrNone(s.Opportunity))
	return s, nil
}

func listOrNone(xs []string) string {
	if len(xs) == 0 {
		return "(none)"
	}
	return strings.Join(xs, ", ")
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
