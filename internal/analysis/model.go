// Package analysis is the analytical core: it joins population and business
// observations into per-region ratios, extends the series over the recent
// years, clusters regions by their ratio series and flags saturated and
// opportunity regions. Every function returns new slices and leaves its
// inputs untouched.
package analysis

import (
	"math"
	"sort"
)

// Observation is one metric value for a region in a year.
type Observation struct {
	Region string
	Year   int
	Value  float64
}

// Record is a joined region-year row. Population and Businesses are NaN on
// synthetic (interpolated) rows.
type Record struct {
	Region     string
	Year       int
	Population float64
	Businesses float64
	Ratio      float64
	Synthetic  bool
}

// AnnotatedRecord carries the cluster id of the record's region, -1 if none.
type AnnotatedRecord struct {
	Record
	Cluster int
}

// NoCluster marks a region without an assignment.
const NoCluster = -1

type key struct {
	region string
	year   int
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// sortRecords orders by year then region, matching a group-by on (year, region).
func sortRecords(rs []Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Year != rs[j].Year {
			return rs[i].Year < rs[j].Year
		}
		return rs[i].Region < rs[j].Region
	})
}

// Regions returns the distinct regions in first-appearance order.
func Regions(rs []Record) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rs {
		if !seen[r.Region] {
			seen[r.Region] = true
			out = append(out, r.Region)
		}
	}
	return out
}

// Annotate attaches cluster ids to a copy of the records.
func Annotate(rs []Record, assignment map[string]int) []AnnotatedRecord {
	out := make([]AnnotatedRecord, len(rs))
	for i, r := range rs {
		c, ok := assignment[r.Region]
		if !ok {
			c = NoCluster
		}
		out[i] = AnnotatedRecord{Record: r, Cluster: c}
	}
	return out
}
