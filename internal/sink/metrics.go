package sink

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/bizratio-cli/internal/utils"
)

// MetricsFile is the textfile-collector output inside the results directory.
const MetricsFile = "bizratio.prom"

// WriteMetrics exports the run summary in the Prometheus text format, for
// node_exporter's textfile collector. The file is replaced atomically.
func WriteMetrics(path string, s *Summary) error {
	reg := prometheus.NewRegistry()
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "bizratio", Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}
	vec := func(name, help, label string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "bizratio", Name: name, Help: help}, []string{label})
		reg.MustRegister(g)
		return g
	}

	gauge("last_run_timestamp_seconds", "Unix time the last analysis finished.").
		Set(float64(s.FinishedAt.Unix()))
	gauge("run_duration_seconds", "Wall time of the last analysis.").
		Set(s.FinishedAt.Sub(s.StartedAt).Seconds())
	gauge("regions", "Regions in the clustering feature matrix.").Set(float64(s.Regions))
	gauge("kmeans_inertia", "Within-cluster sum of squares of the best k-means run.").Set(s.Inertia)

	rows := vec("merged_rows", "Rows in the merged table by origin.", "origin")
	rows.WithLabelValues("observed").Set(float64(s.Rows - s.SyntheticRows))
	rows.WithLabelValues("interpolated").Set(float64(s.SyntheticRows))

	q := vec("ratio_quantile", "Quartiles of the recent mean ratio.", "quantile")
	q.WithLabelValues("0.25").Set(s.Q25)
	q.WithLabelValues("0.75").Set(s.Q75)

	cls := vec("classified_regions", "Regions flagged by the quartile classification.", "class")
	cls.WithLabelValues("saturated").Set(float64(len(s.Saturated)))
	cls.WithLabelValues("opportunity").Set(float64(len(s.Opportunity)))

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
