package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewRegions is returned when there are fewer regions than clusters.
var ErrTooFewRegions = errors.New("fewer regions than clusters")

// LeadingGap decides what happens to a region with no value before its first
// observed year once the feature matrix has been forward-filled.
type LeadingGap string

const (
	// Backfill copies the first observed value into the leading cells.
	Backfill LeadingGap = "backfill"
	// Drop removes the region from clustering.
	Drop LeadingGap = "drop"
)

// ClusterOptions configures Cluster.
type ClusterOptions struct {
	K          int
	Seed       uint64
	NInit      int
	MaxIter    int
	Tolerance  float64
	LeadingGap LeadingGap
}

// DefaultClusterOptions mirrors the usual k-means defaults: four clusters,
// ten k-means++ restarts, 300 iterations.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{K: 4, Seed: 42, NInit: 10, MaxIter: 300, Tolerance: 1e-4, LeadingGap: Backfill}
}

// Clustering is the result of one clustering run. Cluster ids are arbitrary
// labels in [0, K).
type Clustering struct {
	Assignment map[string]int
	Regions    []string // matrix rows, sorted
	Years      []int    // matrix columns, ascending
	Centroids  [][]float64
	Inertia    float64
	Dropped    []string // regions excluded by the Drop policy
}

// FeatureMatrix reshapes long-format records into a regions × years matrix of
// ratios, forward-fills each row along the years and resolves leading gaps per
// policy. The first record per (region, year) is used.
func FeatureMatrix(records []Record, gap LeadingGap) (*mat.Dense, []string, []int, []string) {
	cells := map[key]float64{}
	regionSet := map[string]bool{}
	yearSet := map[int]bool{}
	for _, r := range records {
		if !finite(r.Ratio) {
			continue
		}
		k := key{r.Region, r.Year}
		if _, dup := cells[k]; dup {
			continue
		}
		cells[k] = r.Ratio
		regionSet[r.Region] = true
		yearSet[r.Year] = true
	}
	regions := make([]string, 0, len(regionSet))
	for r := range regionSet {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	if len(regions) == 0 {
		return nil, nil, years, nil
	}

	var kept []string
	var dropped []string
	var data []float64
	for _, region := range regions {
		row := make([]float64, len(years))
		last := math.NaN()
		first := math.NaN()
		for j, y := range years {
			if v, ok := cells[key{region, y}]; ok {
				last = v
				if math.IsNaN(first) {
					first = v
				}
			}
			row[j] = last
		}
		if math.IsNaN(row[0]) {
			if gap == Drop {
				dropped = append(dropped, region)
				continue
			}
			for j := 0; j < len(row) && math.IsNaN(row[j]); j++ {
				row[j] = first
			}
		}
		kept = append(kept, region)
		data = append(data, row...)
	}
	if len(kept) == 0 {
		return nil, nil, years, dropped
	}
	return mat.NewDense(len(kept), len(years), data), kept, years, dropped
}

// Cluster partitions regions into opt.K groups by k-means over their ratio
// series. Runs are deterministic for a fixed seed: every restart draws from
// one seeded source and the lowest-inertia restart wins (the earliest on ties).
// Zero regions yield an empty Clustering.
func Cluster(records []Record, opt ClusterOptions) (*Clustering, error) {
	if opt.K <= 0 {
		return nil, fmt.Errorf("cluster count must be positive, got %d", opt.K)
	}
	if opt.NInit <= 0 {
		opt.NInit = 1
	}
	if opt.MaxIter <= 0 {
		opt.MaxIter = 300
	}
	x, regions, years, dropped := FeatureMatrix(records, opt.LeadingGap)
	res := &Clustering{Assignment: map[string]int{}, Regions: regions, Years: years, Dropped: dropped}
	if x == nil {
		return res, nil
	}
	n, _ := x.Dims()
	if n < opt.K {
		return nil, fmt.Errorf("%d regions for %d clusters: %w", n, opt.K, ErrTooFewRegions)
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}
	tol := scaledTolerance(x, opt.Tolerance)
	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed))

	best := math.Inf(1)
	var bestLabels []int
	var bestCenters [][]float64
	for run := 0; run < opt.NInit; run++ {
		centers := seedPlusPlus(rows, opt.K, rng)
		labels, inertia := lloyd(rows, centers, opt.MaxIter, tol)
		if inertia < best {
			best, bestLabels, bestCenters = inertia, labels, centers
		}
	}
	for i, region := range regions {
		res.Assignment[region] = bestLabels[i]
	}
	res.Centroids = bestCenters
	res.Inertia = best
	return res, nil
}

// scaledTolerance makes the convergence threshold relative to the data spread:
// tol times the mean per-column variance.
func scaledTolerance(x *mat.Dense, tol float64) float64 {
	_, c := x.Dims()
	if c == 0 {
		return tol
	}
	var sum float64
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, x)
		_, v := stat.PopMeanVariance(col, nil)
		sum += v
	}
	return tol * sum / float64(c)
}

// seedPlusPlus picks k initial centers with k-means++: the first uniformly,
// each next one with probability proportional to its squared distance from
// the nearest chosen center.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(rows[rng.IntN(n)]))
	d2 := make([]float64, n)
	for i, r := range rows {
		d2[i] = sqDist(r, centers[0])
	}
	for len(centers) < k {
		total := floats.Sum(d2)
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range d2 {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
				next = i
			}
		} else {
			next = rng.IntN(n)
		}
		c := clone(rows[next])
		centers = append(centers, c)
		for i, r := range rows {
			if d := sqDist(r, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

// lloyd iterates assignment and re-centering until labels stop changing, the
// total centroid shift falls to tol, or maxIter is reached. centers is updated
// in place.
func lloyd(rows, centers [][]float64, maxIter int, tol float64) ([]int, float64) {
	k := len(centers)
	dim := len(rows[0])
	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = -1
	}
	for iter := 0; iter < maxIter; iter++ {
		changed := assign(rows, centers, labels)

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, r := range rows {
			floats.Add(sums[labels[i]], r)
			counts[labels[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				continue
			}
			// Re-seed an empty cluster with the point farthest from its center,
			// taken out of its old cluster's accumulators first.
			far := farthest(rows, centers, labels, counts)
			if far < 0 {
				continue
			}
			old := labels[far]
			floats.Sub(sums[old], rows[far])
			counts[old]--
			sums[c] = clone(rows[far])
			labels[far] = c
			counts[c] = 1
			changed = true
		}
		shift := 0.0
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Only reachable with fewer rows than clusters; keep the center.
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			shift += sqDist(centers[c], sums[c])
			copy(centers[c], sums[c])
		}
		if !changed || shift <= tol {
			break
		}
	}
	assign(rows, centers, labels)
	inertia := 0.0
	for i, r := range rows {
		inertia += sqDist(r, centers[labels[i]])
	}
	return labels, inertia
}

// assign sets each label to the nearest center (lowest index on ties) and
// reports whether any label changed.
func assign(rows, centers [][]float64, labels []int) bool {
	changed := false
	for i, r := range rows {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centers {
			if d := floats.Distance(r, ctr, 2); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// farthest returns the point farthest from its center among clusters that
// keep at least one other member, or -1 when every cluster is a singleton.
func farthest(rows, centers [][]float64, labels, counts []int) int {
	far, farD := -1, -1.0
	for i, r := range rows {
		if counts[labels[i]] < 2 {
			continue
		}
		if d := sqDist(r, centers[labels[i]]); d > farD {
			far, farD = i, d
		}
	}
	return far
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
