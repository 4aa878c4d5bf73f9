package analysis

import (
	"math"
	"sort"
)

// Classification splits regions by their mean recent ratio. Saturated regions
// lie strictly above the 75th percentile, opportunity regions strictly below
// the 25th; regions on a boundary belong to neither.
type Classification struct {
	Saturated   []string
	Opportunity []string
	Q25, Q75    float64
	Means       map[string]float64
}

// Classify averages the ratio per region over recentYears and flags regions
// beyond the quartiles. Regions without a finite ratio in the window are left
// out before the percentiles are taken. No data yields empty sets and NaN
// quartiles.
func Classify(records []Record, recentYears []int) Classification {
	want := make(map[int]bool, len(recentYears))
	for _, y := range recentYears {
		want[y] = true
	}
	sum := map[string]float64{}
	cnt := map[string]int{}
	for _, r := range records {
		if !want[r.Year] || !finite(r.Ratio) {
			continue
		}
		sum[r.Region] += r.Ratio
		cnt[r.Region]++
	}

	out := Classification{Q25: math.NaN(), Q75: math.NaN(), Means: make(map[string]float64, len(cnt))}
	regions := make([]string, 0, len(cnt))
	vals := make([]float64, 0, len(cnt))
	for region, n := range cnt {
		m := sum[region] / float64(n)
		out.Means[region] = m
		regions = append(regions, region)
		vals = append(vals, m)
	}
	if len(vals) == 0 {
		return out
	}
	sort.Strings(regions)
	sort.Float64s(vals)
	out.Q25 = Percentile(vals, 25)
	out.Q75 = Percentile(vals, 75)
	for _, region := range regions {
		m := out.Means[region]
		switch {
		case m > out.Q75:
			out.Saturated = append(out.Saturated, region)
		case m < out.Q25:
			out.Opportunity = append(out.Opportunity, region)
		}
	}
	return out
}

// Percentile returns the p-th percentile (0..100) of sorted values using
// linear interpolation between the closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	q := p / 100
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
