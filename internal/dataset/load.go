// Package dataset turns raw population and business tables into the
// long-format observations the analysis consumes, and prepares the filtered
// source files from the downloaded raw data.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/bizratio-cli/internal/analysis"
	"github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/KaramelBytes/bizratio-cli/internal/log"
	"github.com/KaramelBytes/bizratio-cli/internal/table"
)

// LoadPopulation melts a wide population table (one column per year) into
// observations, summing finer-grained rows such as age bands per
// (region, year). Every year in years must be present as a column. When the
// table still carries the sex column, only rows matching the configured sex
// filter are used so totals are not counted twice.
func LoadPopulation(t *table.Table, cols config.Columns, years []int) ([]analysis.Observation, error) {
	if cols.Sex != "" && cols.SexFilter != "" && t.Has(cols.Sex) {
		ft, err := t.Filter(cols.Sex, cols.SexFilter)
		if err != nil {
			return nil, err
		}
		t = ft
	}
	ri, err := t.Index(cols.Region)
	if err != nil {
		return nil, err
	}
	yi := make([]int, len(years))
	for i, y := range years {
		idx, err := t.Index(strconv.Itoa(y))
		if err != nil {
			return nil, err
		}
		yi[i] = idx
	}

	var out []analysis.Observation
	skipped := 0
	for _, row := range t.Rows {
		region := strings.TrimSpace(row[ri])
		if region == "" {
			skipped++
			continue
		}
		for i, y := range years {
			v, ok := table.ParseNumber(row[yi[i]], table.NumberFormat{})
			if !ok {
				v = math.NaN()
			}
			out = append(out, analysis.Observation{Region: region, Year: y, Value: v})
		}
	}
	if skipped > 0 {
		log.Debugw("population rows without region skipped", "table", t.Name, "rows", skipped)
	}
	return analysis.SumByKey(out), nil
}

// LoadBusinesses reads region, year and active business count from a business
// table and sums per (region, year). The region column may carry either the
// canonical region name or the raw source name; the count column either the
// prepared measure name or the raw value column.
func LoadBusinesses(t *table.Table, cols config.Columns) ([]analysis.Observation, error) {
	ri, err := firstIndex(t, cols.Region, cols.BusinessRegion)
	if err != nil {
		return nil, err
	}
	yi, err := t.Index(cols.Year)
	if err != nil {
		return nil, err
	}
	vi, err := firstIndex(t, cols.BusinessesOutput, cols.Value)
	if err != nil {
		return nil, err
	}

	var out []analysis.Observation
	for n, row := range t.Rows {
		region := strings.TrimSpace(row[ri])
		year, ok := table.ParseYear(row[yi])
		if region == "" || !ok {
			log.Debugw("business row skipped", "table", t.Name, "row", n+1, "region", region, "year", row[yi])
			continue
		}
		v, ok := table.ParseNumber(row[vi], table.NumberFormat{})
		if !ok {
			v = math.NaN()
		}
		out = append(out, analysis.Observation{Region: region, Year: year, Value: v})
	}
	return analysis.SumByKey(out), nil
}

func firstIndex(t *table.Table, names ...string) (int, error) {
	var firstErr error
	for _, n := range names {
		if n == "" {
			continue
		}
		idx, err := t.Index(n)
		if err == nil {
			return idx, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		return -1, fmt.Errorf("no column name configured")
	}
	return -1, firstErr
}

// Years lists start..end inclusive.
func Years(start, end int) []int {
	if end < start {
		return nil
	}
	out := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		out = append(out, y)
	}
	return out
}
