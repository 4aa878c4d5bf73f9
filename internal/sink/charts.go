package sink

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/bizratio-cli/internal/analysis"
)

// Chart file names inside the results directory.
const (
	ScatterFile = "clusters_dispersao.png"
	TrendFile   = "tendencias_temporais.png"
	HeatmapFile = "heatmap_saturacao.png"
	ClusterFile = "clusters_estados.txt"
)

// ErrNoData indicates there is nothing to draw.
var ErrNoData = errors.New("no finite ratios to plot")

const ratioLabel = "Population / active businesses"

// ScatterChart plots ratio against year, one series per cluster.
func ScatterChart(path string, rows []analysis.AnnotatedRecord) error {
	byCluster := map[int]plotter.XYs{}
	for _, r := range rows {
		if math.IsNaN(r.Ratio) || math.IsInf(r.Ratio, 0) {
			continue
		}
		byCluster[r.Cluster] = append(byCluster[r.Cluster], plotter.XY{X: float64(r.Year), Y: r.Ratio})
	}
	if len(byCluster) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Region clusters by population per business"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = ratioLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, id := range sortedKeys(byCluster) {
		s, err := plotter.NewScatter(byCluster[id])
		if err != nil {
			return fmt.Errorf("scatter: %w", err)
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Radius = vg.Points(4)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(clusterLabel(id), s)
	}
	return save(p, 12*vg.Inch, 6*vg.Inch, path)
}

// TrendChart draws one dashed line per region, coloured by the region's
// cluster.
func TrendChart(path string, rows []analysis.AnnotatedRecord, groups []Group) error {
	series := map[string]plotter.XYs{}
	for _, r := range rows {
		if math.IsNaN(r.Ratio) || math.IsInf(r.Ratio, 0) {
			continue
		}
		series[r.Region] = append(series[r.Region], plotter.XY{X: float64(r.Year), Y: r.Ratio})
	}
	if len(series) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Ratio trends by cluster"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = ratioLabel
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(7)
	p.Add(plotter.NewGrid())

	for gi, g := range groups {
		for _, region := range g.Regions {
			xys, ok := series[region]
			if !ok {
				continue
			}
			sort.Slice(xys, func(i, j int) bool { return xys[i].X < xys[j].X })
			l, err := plotter.NewLine(xys)
			if err != nil {
				return fmt.Errorf("trend %s: %w", region, err)
			}
			l.Color = plotutil.Color(gi)
			l.Width = vg.Points(1.5)
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			p.Add(l)
			p.Legend.Add(fmt.Sprintf("%s (%s)", region, clusterLabel(g.ID)), l)
		}
	}
	return save(p, 14*vg.Inch, 7*vg.Inch, path)
}

// ratioGrid is a regions × years grid of ratios for the heatmap. Missing
// cells are NaN.
type ratioGrid struct {
	regions []string
	years   []int
	z       [][]float64 // [year][region]
}

func (g *ratioGrid) Dims() (c, r int)   { return len(g.years), len(g.regions) }
func (g *ratioGrid) Z(c, r int) float64 { return g.z[c][r] }
func (g *ratioGrid) X(c int) float64    { return float64(g.years[c]) }
func (g *ratioGrid) Y(r int) float64    { return float64(r) }

func (g *ratioGrid) cells() (n int) {
	for _, col := range g.z {
		for _, v := range col {
			if !math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

func newRatioGrid(rows []analysis.AnnotatedRecord) *ratioGrid {
	regionSet, yearSet := map[string]bool{}, map[int]bool{}
	for _, r := range rows {
		regionSet[r.Region] = true
		yearSet[r.Year] = true
	}
	g := &ratioGrid{}
	for r := range regionSet {
		g.regions = append(g.regions, r)
	}
	sort.Strings(g.regions)
	for y := range yearSet {
		g.years = append(g.years, y)
	}
	sort.Ints(g.years)

	ri := make(map[string]int, len(g.regions))
	for i, r := range g.regions {
		ri[r] = i
	}
	yi := make(map[int]int, len(g.years))
	for i, y := range g.years {
		yi[y] = i
	}
	g.z = make([][]float64, len(g.years))
	for c := range g.z {
		g.z[c] = make([]float64, len(g.regions))
		for r := range g.z[c] {
			g.z[c][r] = math.NaN()
		}
	}
	for _, r := range rows {
		c, row := yi[r.Year], ri[r.Region]
		if !math.IsNaN(g.z[c][row]) || math.IsInf(r.Ratio, 0) {
			continue
		}
		g.z[c][row] = r.Ratio
	}
	return g
}

// HeatmapChart renders ratio per region and year.
func HeatmapChart(path string, rows []analysis.AnnotatedRecord) error {
	g := newRatioGrid(rows)
	if g.cells() == 0 {
		return ErrNoData
	}
	h := plotter.NewHeatMap(g, palette.Heat(12, 1))
	h.NaN = color.Transparent
	if h.Min == h.Max {
		h.Max = h.Min + 1
	}

	p := plot.New()
	p.Title.Text = "Saturation heatmap by region"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Region"
	p.Add(h)
	p.NominalY(g.regions...)
	p.Y.Padding = 0
	p.X.Padding = 0

	height := vg.Length(math.Max(6, float64(len(g.regions))*0.3)) * vg.Inch
	return save(p, 12*vg.Inch, height, path)
}

// Charts renders the three charts into dir and returns their paths.
func Charts(dir string, rows []analysis.AnnotatedRecord, groups []Group) ([]string, error) {
	scatter := filepath.Join(dir, ScatterFile)
	trend := filepath.Join(dir, TrendFile)
	heat := filepath.Join(dir, HeatmapFile)
	if err := ScatterChart(scatter, rows); err != nil {
		return nil, err
	}
	if err := TrendChart(trend, rows, groups); err != nil {
		return nil, err
	}
	if err := HeatmapChart(heat, rows); err != nil {
		return nil, err
	}
	return []string{scatter, trend, heat}, nil
}

func clusterLabel(id int) string {
	if id == analysis.NoCluster {
		return "unclustered"
	}
	return fmt.Sprintf("Cluster %d", id)
}

func sortedKeys(m map[int]plotter.XYs) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// save renders p in the format named by the file extension and writes it
// atomically.
func save(p *plot.Plot, w, h vg.Length, path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "png"
	}
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, buf.Bytes())
}
