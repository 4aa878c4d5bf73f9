package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_EndToEnd(t *testing.T) {
	var pop, biz []Observation
	add := func(region string, people float64, firms ...float64) {
		for i, f := range firms {
			year := 2017 + i
			// two age bands per region-year
			pop = append(pop, obs(region, year, people/2), obs(region, year, people/2))
			biz = append(biz, obs(region, year, f))
		}
	}
	add("AC", 1000, 100, 105, 110, 115)
	add("AM", 1000, 98, 100, 104, 108)
	add("RJ", 1000, 10, 10, 10, 10)
	add("SP", 1000, 10, 10, 10, 10.5)
	add("PE", 1000, 20, 20, 20, 20)
	biz = append(biz, obs("XX", 2018, 4)) // no population: dropped by the join

	opt := Options{
		TargetYears: []int{2021, 2022},
		RecentYears: []int{2021, 2022},
		Method:      Piecewise,
		Cluster:     DefaultClusterOptions(),
	}
	opt.Cluster.K = 3

	res, err := Run(pop, biz, opt)
	require.NoError(t, err)
	assert.Len(t, res.Combined, 20)
	assert.Len(t, res.Records, 30, "five regions get two synthetic years each")
	assert.NotContains(t, Regions(res.Records), "XX")
	assert.Len(t, res.Clustering.Assignment, 5)

	a := res.Clustering.Assignment
	assert.Equal(t, a["RJ"], a["SP"])
	assert.Equal(t, a["AC"], a["AM"])
	assert.NotEqual(t, a["PE"], a["RJ"])
	assert.NotEqual(t, a["PE"], a["AC"])

	// recent means: AC≈8.10, AM≈8.73, PE=50, SP≈88.10, RJ=100
	cls := res.Classification
	assert.Equal(t, []string{"RJ"}, cls.Saturated)
	assert.Equal(t, []string{"AC"}, cls.Opportunity)
	assert.InDelta(t, 100.0, cls.Means["RJ"], 1e-9)
	assert.InDelta(t, 50.0, cls.Means["PE"], 1e-9)
	ann := res.Annotated()
	require.Len(t, ann, len(res.Records))
	for _, r := range ann {
		assert.Equal(t, a[r.Region], r.Cluster)
	}
}

func TestRun_EmptyJoinIsNotAnError(t *testing.T) {
	res, err := Run([]Observation{obs("A", 2020, 1)}, []Observation{obs("B", 2020, 1)}, Options{
		TargetYears: []int{2021},
		RecentYears: []int{2021},
		Cluster:     DefaultClusterOptions(),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Clustering.Assignment)
	assert.Empty(t, res.Classification.Saturated)
	assert.Empty(t, res.Annotated())
}
