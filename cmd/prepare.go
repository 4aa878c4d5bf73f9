package cmd

import (
	"fmt"

	cfgpkg "github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/KaramelBytes/bizratio-cli/internal/dataset"
	"github.com/KaramelBytes/bizratio-cli/internal/log"
	"github.com/KaramelBytes/bizratio-cli/internal/table"
	"github.com/spf13/cobra"
)

var prepSheetName string

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Filter the raw downloads into the business and population inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		return runPrepare(c)
	},
}

func runPrepare(c *cfgpkg.Global) error {
	lg := log.With("stage", "prepare")

	var parts []*table.Table
	for _, p := range []string{c.Paths.BusinessesHistory, c.Paths.BusinessesRecent} {
		t, err := table.ReadFile(p, table.Options{})
		if err != nil {
			return fmt.Errorf("read businesses: %w", err)
		}
		parts = append(parts, t)
	}
	biz, err := dataset.PrepareBusinesses(parts, c.Columns)
	if err != nil {
		return fmt.Errorf("prepare businesses: %w", err)
	}
	if err := table.WriteCSV(c.Paths.Businesses, biz); err != nil {
		return err
	}
	lg.Infow("businesses prepared", "rows", len(biz.Rows), "path", c.Paths.Businesses)
	fmt.Printf("✓ Filtered businesses (%d rows): %s\n", len(biz.Rows), c.Paths.Businesses)

	raw, err := table.ReadFile(c.Paths.PopulationXLSX, table.Options{Sheet: prepSheetName, HeaderMarker: c.Columns.Region})
	if err != nil {
		return fmt.Errorf("read population: %w", err)
	}
	pop, err := dataset.PreparePopulation(raw, c.Columns, dataset.Years(c.Study.Start, c.Study.End))
	if err != nil {
		return fmt.Errorf("prepare population: %w", err)
	}
	if err := table.WriteCSV(c.Paths.Population, pop); err != nil {
		return err
	}
	lg.Infow("population prepared", "rows", len(pop.Rows), "path", c.Paths.Population)
	fmt.Printf("✓ Filtered population (%d rows): %s\n", len(pop.Rows), c.Paths.Population)
	return nil
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().StringVar(&prepSheetName, "sheet-name", "", "XLSX: population sheet name (default first sheet)")
}
