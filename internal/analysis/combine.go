package analysis

import "math"

// SumByKey aggregates observations per (region, year) with a NaN-skipping sum.
// A key whose values are all missing keeps NaN. Output follows first appearance.
func SumByKey(obs []Observation) []Observation {
	idx := map[key]int{}
	var out []Observation
	for _, o := range obs {
		k := key{o.Region, o.Year}
		i, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, Observation{Region: o.Region, Year: o.Year, Value: math.NaN()})
			i = len(out) - 1
		}
		if math.IsNaN(o.Value) {
			continue
		}
		if math.IsNaN(out[i].Value) {
			out[i].Value = 0
		}
		out[i].Value += o.Value
	}
	return out
}

// Combine inner-joins population and business observations on (region, year)
// and derives the population-to-business ratio.
//
// Population is summed per key before the join. The ratio is computed per
// joined row and then averaged per key, while population and business counts
// are summed; the ratio is never recomputed from the sums. Keys present in
// only one source are dropped, as are rows whose ratio is not finite.
func Combine(population, businesses []Observation) []Record {
	pop := map[key]float64{}
	for _, o := range SumByKey(population) {
		pop[key{o.Region, o.Year}] = o.Value
	}

	type acc struct {
		pop, biz   float64
		ratioSum   float64
		ratioCount int
	}
	groups := map[key]*acc{}
	var order []key
	for _, b := range businesses {
		k := key{b.Region, b.Year}
		p, ok := pop[k]
		if !ok {
			continue
		}
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
			order = append(order, k)
		}
		if !math.IsNaN(p) {
			a.pop += p
		}
		if !math.IsNaN(b.Value) {
			a.biz += b.Value
		}
		if r := p / b.Value; finite(r) {
			a.ratioSum += r
			a.ratioCount++
		}
	}

	out := make([]Record, 0, len(order))
	for _, k := range order {
		a := groups[k]
		if a.ratioCount == 0 {
			continue
		}
		out = append(out, Record{
			Region:     k.region,
			Year:       k.year,
			Population: a.pop,
			Businesses: a.biz,
			Ratio:      a.ratioSum / float64(a.ratioCount),
		})
	}
	sortRecords(out)
	return out
}
