package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Method selects the linear model used to estimate target years.
type Method string

const (
	// Piecewise draws straight lines between neighbouring observed years and
	// extends the first or last segment outside the observed range.
	Piecewise Method = "piecewise"
	// Regression fits one least-squares line through every observed year.
	Regression Method = "regression"
)

// ParseMethod validates a method name; empty selects Piecewise.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", Piecewise:
		return Piecewise, nil
	case Regression:
		return Regression, nil
	}
	return "", fmt.Errorf("unknown interpolation method %q (use piecewise|regression)", s)
}

// Interpolate estimates the ratio at each target year for every region with at
// least two distinct observed years and appends those synthetic records after
// the originals. Estimates outside the observed range are extrapolated, not
// clamped. Regions with fewer points get no synthetic rows. When a (region,
// year) appears more than once the first occurrence wins, so observed data
// takes precedence over estimates.
func Interpolate(records []Record, targetYears []int, method Method) []Record {
	type point struct {
		year  float64
		ratio float64
	}
	series := map[string][]point{}
	seenYear := map[key]bool{}
	for _, r := range records {
		k := key{r.Region, r.Year}
		if seenYear[k] || !finite(r.Ratio) {
			continue
		}
		seenYear[k] = true
		series[r.Region] = append(series[r.Region], point{float64(r.Year), r.Ratio})
	}

	all := make([]Record, 0, len(records)+len(targetYears)*len(series))
	all = append(all, records...)
	for _, region := range Regions(records) {
		pts := series[region]
		if len(pts) < 2 {
			continue
		}
		sort.Slice(pts, func(i, j int) bool { return pts[i].year < pts[j].year })
		xs := make([]float64, len(pts))
		ys := make([]float64, len(pts))
		for i, p := range pts {
			xs[i], ys[i] = p.year, p.ratio
		}
		for _, y := range targetYears {
			var est float64
			if method == Regression {
				est = regressionAt(xs, ys, float64(y))
			} else {
				est = piecewiseAt(xs, ys, float64(y))
			}
			if !finite(est) {
				continue
			}
			all = append(all, Record{
				Region:     region,
				Year:       y,
				Population: math.NaN(),
				Businesses: math.NaN(),
				Ratio:      est,
				Synthetic:  true,
			})
		}
	}
	return dedupe(all)
}

// piecewiseAt evaluates the polyline through (xs, ys) at x. xs is sorted,
// distinct and has at least two entries.
func piecewiseAt(xs, ys []float64, x float64) float64 {
	n := len(xs)
	i := sort.SearchFloat64s(xs, x)
	switch {
	case i < n && xs[i] == x:
		return ys[i]
	case i == 0:
		i = 1
	case i >= n:
		i = n - 1
	}
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

func regressionAt(xs, ys []float64, x float64) float64 {
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return alpha + beta*x
}

func dedupe(rs []Record) []Record {
	seen := make(map[key]bool, len(rs))
	out := rs[:0:0]
	for _, r := range rs {
		k := key{r.Region, r.Year}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
