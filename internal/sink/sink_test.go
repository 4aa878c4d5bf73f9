package sink

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/bizratio-cli/internal/analysis"
)

func annotated() []analysis.AnnotatedRecord {
	nan := math.NaN()
	mk := func(region string, year int, pop, biz, ratio float64, syn bool, cl int) analysis.AnnotatedRecord {
		return analysis.AnnotatedRecord{
			Record:  analysis.Record{Region: region, Year: year, Population: pop, Businesses: biz, Ratio: ratio, Synthetic: syn},
			Cluster: cl,
		}
	}
	return []analysis.AnnotatedRecord{
		mk("Acre", 2020, 900000, 12000, 75, false, 1),
		mk("Brasil", 2020, 213000000, 4500000, 47.333333333333336, false, 0),
		mk("Pará", 2020, 8700000, 90000, 96.66666666666667, false, 1),
		mk("Roraima", 2020, 650000, 5000, 130, false, 2),
		mk("São Paulo", 2020, 46000000, 1600000, 28.75, false, 0),
		mk("Acre", 2021, nan, nan, 74.1, true, 1),
		mk("Pará", 2021, nan, nan, 95.2, true, 1),
		mk("Roraima", 2021, nan, nan, 131.5, true, 2),
		mk("São Paulo", 2021, nan, nan, 28.1, true, 0),
		mk("Tocantins", 2021, 1500000, 20000, 75, false, analysis.NoCluster),
	}
}

func TestMerged_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "merged_data.csv")
	rows := annotated()
	require.NoError(t, WriteMerged(path, rows))

	got, err := ReadMerged(path)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].Region, got[i].Region)
		assert.Equal(t, rows[i].Year, got[i].Year)
		assert.Equal(t, rows[i].Cluster, got[i].Cluster)
		assert.Equal(t, rows[i].Synthetic, got[i].Synthetic)
		assert.Equal(t, rows[i].Ratio, got[i].Ratio, "ratio survives bit-for-bit")
		if math.IsNaN(rows[i].Population) {
			assert.True(t, math.IsNaN(got[i].Population))
		} else {
			assert.Equal(t, rows[i].Population, got[i].Population)
		}
	}

	recent := []int{2020, 2021}
	want := analysis.Classify(Records(rows), recent)
	back := analysis.Classify(Records(got), recent)
	assert.Equal(t, want.Saturated, back.Saturated)
	assert.Equal(t, want.Opportunity, back.Opportunity)
}

func TestWriteMerged_EmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merged.csv")
	require.NoError(t, WriteMerged(path, annotated()[5:]))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.Contains(t, content, "region,year,population,business_count,ratio,cluster_id,synthetic\n")
	assert.Contains(t, content, "Acre,2021,,,74.1,1,true\n")
	assert.Contains(t, content, "Tocantins,2021,1500000,20000,75,,false\n")
}

func TestReadMerged_Missing(t *testing.T) {
	_, err := ReadMerged(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestGroupByCluster(t *testing.T) {
	groups := GroupByCluster(annotated(), []string{"Brasil"})
	assert.Equal(t, []Group{
		{ID: 0, Regions: []string{"São Paulo"}},
		{ID: 1, Regions: []string{"Acre", "Pará"}},
		{ID: 2, Regions: []string{"Roraima"}},
	}, groups)
}

func TestWriteClusterList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "res", ClusterFile)
	groups := []Group{{ID: 0, Regions: []string{"São Paulo"}}, {ID: 1, Regions: []string{"Acre", "Pará"}}}
	require.NoError(t, WriteClusterList(path, groups))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Cluster 0:\nSão Paulo\n\nCluster 1:\nAcre, Pará\n\n", string(b))
}

func TestSummary_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &Summary{
		RunID:       "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		StartedAt:   start,
		FinishedAt:  start.Add(time.Second),
		StudyStart:  2007,
		StudyEnd:    2022,
		TargetYears: []int{2021, 2022},
		K:           4,
		Q25:         math.NaN(),
		Q75:         12.5,
		Saturated:   []string{"Roraima"},
		Opportunity: []string{},
		Outputs:     map[string]string{"merged": "data/merged_data.csv"},
	}
	require.NoError(t, WriteSummary(path, s))

	got, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, s.RunID, got.RunID)
	assert.True(t, s.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, []int{2021, 2022}, got.TargetYears)
	assert.True(t, math.IsNaN(got.Q25))
	assert.Equal(t, 12.5, got.Q75)
	assert.Equal(t, []string{"Roraima"}, got.Saturated)
	assert.Equal(t, "data/merged_data.csv", got.Outputs["merged"])

	_, err = ReadSummary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestCharts_WritePNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "resultados")
	rows := Exclude(annotated(), []string{"Brasil"})
	paths, err := Charts(dir, rows, GroupByCluster(rows, nil))
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		require.Greater(t, len(b), 8)
		assert.Equal(t, "\x89PNG", string(b[:4]), p)
	}
}

func TestCharts_NoData(t *testing.T) {
	rows := []analysis.AnnotatedRecord{{Record: analysis.Record{Region: "Acre", Year: 2020, Ratio: math.NaN()}}}
	assert.ErrorIs(t, ScatterChart(filepath.Join(t.TempDir(), "s.png"), rows), ErrNoData)
	assert.ErrorIs(t, HeatmapChart(filepath.Join(t.TempDir(), "h.png"), rows), ErrNoData)
}

func TestWriteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "res", MetricsFile)
	start := time.Unix(1700000000, 0)
	s := &Summary{
		StartedAt:     start,
		FinishedAt:    start.Add(3 * time.Second),
		Rows:          24,
		SyntheticRows: 4,
		Regions:       6,
		Q25:           20,
		Q75:           68.75,
		Saturated:     []string{"Acre", "Amapá"},
	}
	require.NoError(t, WriteMetrics(path, s))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "bizratio_regions 6\n")
	assert.Contains(t, out, "bizratio_run_duration_seconds 3\n")
	assert.Contains(t, out, `bizratio_merged_rows{origin="interpolated"} 4`)
	assert.Contains(t, out, `bizratio_merged_rows{origin="observed"} 20`)
	assert.Contains(t, out, `bizratio_classified_regions{class="saturated"} 2`)
	assert.Contains(t, out, `bizratio_ratio_quantile{quantile="0.75"} 68.75`)
}
