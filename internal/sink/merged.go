// Package sink persists analysis results: the merged region-year table, the
// per-cluster region list, the run summary and the charts.
package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"

	"github.com/KaramelBytes/bizratio-cli/internal/analysis"
	"github.com/KaramelBytes/bizratio-cli/internal/table"
)

// ErrMissingInput indicates a stage's input file has not been produced yet.
var ErrMissingInput = errors.New("input file not found")

// Merged table columns.
const (
	ColRegion     = "region"
	ColYear       = "year"
	ColPopulation = "population"
	ColBusinesses = "business_count"
	ColRatio      = "ratio"
	ColCluster    = "cluster_id"
	ColSynthetic  = "synthetic"
)

var mergedHeader = []string{ColRegion, ColYear, ColPopulation, ColBusinesses, ColRatio, ColCluster, ColSynthetic}

// WriteMerged writes the annotated records as CSV. NaN values and missing
// cluster ids become empty cells.
func WriteMerged(path string, rows []analysis.AnnotatedRecord) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		cl := ""
		if r.Cluster != analysis.NoCluster {
			cl = strconv.Itoa(r.Cluster)
		}
		out[i] = []string{
			r.Region,
			strconv.Itoa(r.Year),
			formatFloat(r.Population),
			formatFloat(r.Businesses),
			formatFloat(r.Ratio),
			cl,
			strconv.FormatBool(r.Synthetic),
		}
	}
	if err := table.WriteCSV(path, table.New("merged", mergedHeader, out)); err != nil {
		return fmt.Errorf("write merged: %w", err)
	}
	return nil
}

// ReadMerged loads a file written by WriteMerged.
func ReadMerged(path string) ([]analysis.AnnotatedRecord, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	t, err := table.ReadFile(path, table.Options{Delimiter: ','})
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(mergedHeader))
	for _, c := range mergedHeader {
		i, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		idx[c] = i
	}

	out := make([]analysis.AnnotatedRecord, 0, len(t.Rows))
	for n, row := range t.Rows {
		year, ok := table.ParseYear(row[idx[ColYear]])
		if !ok {
			return nil, fmt.Errorf("%s row %d: invalid year %q", t.Name, n+1, row[idx[ColYear]])
		}
		cl := analysis.NoCluster
		if s := row[idx[ColCluster]]; s != "" {
			c, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: invalid cluster %q", t.Name, n+1, s)
			}
			cl = c
		}
		syn, _ := strconv.ParseBool(row[idx[ColSynthetic]])
		out = append(out, analysis.AnnotatedRecord{
			Record: analysis.Record{
				Region:     row[idx[ColRegion]],
				Year:       year,
				Population: parseFloat(row[idx[ColPopulation]]),
				Businesses: parseFloat(row[idx[ColBusinesses]]),
				Ratio:      parseFloat(row[idx[ColRatio]]),
				Synthetic:  syn,
			},
			Cluster: cl,
		})
	}
	return out, nil
}

// Records strips the cluster annotation.
func Records(rows []analysis.AnnotatedRecord) []analysis.Record {
	out := make([]analysis.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record
	}
	return out
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
