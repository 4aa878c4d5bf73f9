package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_QuartileBoundaries(t *testing.T) {
	var in []Record
	for region, v := range map[string]float64{"R10": 10, "R20": 20, "R30": 30, "R40": 40, "R100": 100} {
		in = append(in, rec(region, 2022, v))
	}
	in = append(in, rec("OLD", 2015, 1000)) // outside the window

	got := Classify(in, []int{2021, 2022})
	assert.Equal(t, 20.0, got.Q25)
	assert.Equal(t, 40.0, got.Q75)
	assert.Equal(t, []string{"R100"}, got.Saturated)
	assert.Equal(t, []string{"R10"}, got.Opportunity)
	assert.NotContains(t, got.Saturated, "R40")
	assert.NotContains(t, got.Opportunity, "R20")
	_, ok := got.Means["OLD"]
	assert.False(t, ok)
}

func TestClassify_MeanOverRecentYears(t *testing.T) {
	in := []Record{
		rec("A", 2021, 10), rec("A", 2022, 20),
		rec("B", 2021, 1), {Region: "B", Year: 2022, Ratio: math.NaN()},
		rec("C", 2022, 5), rec("D", 2022, 7), rec("E", 2022, 6),
	}
	got := Classify(in, []int{2021, 2022})
	assert.Equal(t, 15.0, got.Means["A"])
	assert.Equal(t, 1.0, got.Means["B"])
	assert.Equal(t, []string{"A"}, got.Saturated)
	assert.Equal(t, []string{"B"}, got.Opportunity)
}

func TestClassify_NoData(t *testing.T) {
	got := Classify([]Record{rec("A", 2000, 1)}, []int{2021})
	assert.Empty(t, got.Saturated)
	assert.Empty(t, got.Opportunity)
	assert.True(t, math.IsNaN(got.Q25))
}

func TestPercentile(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, Percentile(v, 25))
	assert.Equal(t, 2.5, Percentile(v, 50))
	assert.Equal(t, 4.0, Percentile(v, 100))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 75))
	require.True(t, math.IsNaN(Percentile(nil, 50)))
}
