package dataset

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/KaramelBytes/bizratio-cli/internal/log"
	"github.com/KaramelBytes/bizratio-cli/internal/table"
)

// PrepareBusinesses concatenates the year-partitioned business tables, keeps
// the rows of the active business count measure and projects them to
// region, year and count under the canonical column names.
func PrepareBusinesses(parts []*table.Table, cols config.Columns) (*table.Table, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("no business tables to prepare")
	}
	all := table.Concat("businesses", parts...)
	filtered, err := all.Filter(cols.Variable, cols.BusinessMeasure)
	if err != nil {
		return nil, err
	}
	log.Debugw("business measure filtered", "rows_in", len(all.Rows), "rows_out", len(filtered.Rows), "measure", cols.BusinessMeasure)

	proj, err := filtered.Select(cols.BusinessRegion, cols.Year, cols.Value)
	if err != nil {
		return nil, err
	}
	out := table.New("businesses", []string{cols.Region, cols.Year, cols.BusinessesOutput}, proj.Rows)
	return out, nil
}

// PreparePopulation reduces the population projection sheet to the region
// column plus one column per study year, after applying the sex filter.
func PreparePopulation(t *table.Table, cols config.Columns, years []int) (*table.Table, error) {
	if cols.Sex != "" && cols.SexFilter != "" {
		ft, err := t.Filter(cols.Sex, cols.SexFilter)
		if err != nil {
			return nil, err
		}
		log.Debugw("population sex filter", "rows_in", len(t.Rows), "rows_out", len(ft.Rows), "value", cols.SexFilter)
		t = ft
	}
	names := []string{cols.Region}
	for _, y := range years {
		names = append(names, strconv.Itoa(y))
	}
	out, err := t.Select(names...)
	if err != nil {
		return nil, err
	}
	out.Name = "population"
	return out, nil
}
