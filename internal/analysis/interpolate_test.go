package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(region string, year int, ratio float64) Record {
	return Record{Region: region, Year: year, Population: ratio * 10, Businesses: 10, Ratio: ratio}
}

func synthetic(rs []Record) []Record {
	var out []Record
	for _, r := range rs {
		if r.Synthetic {
			out = append(out, r)
		}
	}
	return out
}

func TestInterpolate_TwoPointExtrapolationLaw(t *testing.T) {
	y1, r1 := 2015, 10.0
	y2, r2 := 2018, 16.25
	in := []Record{rec("A", y1, r1), rec("A", y2, r2)}

	got := Interpolate(in, []int{2021, 2022}, Piecewise)
	syn := synthetic(got)
	require.Len(t, syn, 2)
	for _, s := range syn {
		y3 := float64(s.Year)
		want := r1 + (r2-r1)*(y3-float64(y1))/(float64(y2)-float64(y1))
		assert.Equal(t, want, s.Ratio, "year %d", s.Year)
		assert.True(t, math.IsNaN(s.Population))
		assert.True(t, math.IsNaN(s.Businesses))
	}
}

func TestInterpolate_BackwardExtrapolation(t *testing.T) {
	in := []Record{rec("A", 2010, 4), rec("A", 2012, 8)}
	syn := synthetic(Interpolate(in, []int{2008}, Piecewise))
	require.Len(t, syn, 1)
	assert.Equal(t, 0.0, syn[0].Ratio)
}

func TestInterpolate_SinglePointRegionSkipped(t *testing.T) {
	in := []Record{rec("A", 2015, 10), rec("A", 2016, 11), rec("B", 2016, 5)}
	got := Interpolate(in, []int{2021, 2022}, Piecewise)
	for _, s := range synthetic(got) {
		assert.NotEqual(t, "B", s.Region)
	}
	assert.Len(t, synthetic(got), 2)
}

func TestInterpolate_RealDataWins(t *testing.T) {
	in := []Record{rec("A", 2019, 10), rec("A", 2020, 12), rec("A", 2021, 99)}
	got := Interpolate(in, []int{2021, 2022}, Piecewise)
	require.Len(t, got, 4)
	assert.Equal(t, in, got[:3], "originals come first and unchanged")
	assert.Equal(t, 2022, got[3].Year)
	assert.True(t, got[3].Synthetic)
	// polyline through 2019..2021 extends the last segment (12 -> 99)
	assert.Equal(t, 186.0, got[3].Ratio)
}

func TestInterpolate_PiecewiseInsideRange(t *testing.T) {
	in := []Record{rec("A", 2012, 5), rec("A", 2010, 1), rec("A", 2020, 5)}
	syn := synthetic(Interpolate(in, []int{2011, 2016}, Piecewise))
	require.Len(t, syn, 2)
	assert.Equal(t, 3.0, syn[0].Ratio)
	assert.Equal(t, 5.0, syn[1].Ratio)
}

func TestInterpolate_Regression(t *testing.T) {
	in := []Record{rec("A", 2010, 1), rec("A", 2011, 2), rec("A", 2012, 4)}
	syn := synthetic(Interpolate(in, []int{2013}, Regression))
	require.Len(t, syn, 1)
	assert.InDelta(t, 7.0/3.0+1.5*2, syn[0].Ratio, 1e-6)

	two := []Record{rec("B", 2015, 10), rec("B", 2018, 16)}
	syn = synthetic(Interpolate(two, []int{2021}, Regression))
	require.Len(t, syn, 1)
	assert.InDelta(t, 22.0, syn[0].Ratio, 1e-6)
}

func TestInterpolate_EmptyAndImmutable(t *testing.T) {
	assert.Empty(t, Interpolate(nil, []int{2021}, Piecewise))

	in := []Record{rec("A", 2019, 1), rec("A", 2020, 2)}
	before := append([]Record(nil), in...)
	_ = Interpolate(in, []int{2021}, Piecewise)
	assert.Equal(t, before, in)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, Piecewise, m)
	m, err = ParseMethod("regression")
	require.NoError(t, err)
	assert.Equal(t, Regression, m)
	_, err = ParseMethod("spline")
	assert.Error(t, err)
}
