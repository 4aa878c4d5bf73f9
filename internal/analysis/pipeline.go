package analysis

import (
	"fmt"

	"github.com/KaramelBytes/bizratio-cli/internal/log"
)

// Options configures a full analysis run.
type Options struct {
	TargetYears []int
	RecentYears []int
	Method      Method
	Cluster     ClusterOptions
}

// Result is the output of Run.
type Result struct {
	Combined       []Record
	Records        []Record // combined plus synthetic rows
	Clustering     *Clustering
	Classification Classification
}

// Annotated returns the records with their cluster ids.
func (r *Result) Annotated() []AnnotatedRecord {
	return Annotate(r.Records, r.Clustering.Assignment)
}

// Run chains Combine, Interpolate, Cluster and Classify.
func Run(population, businesses []Observation, opt Options) (*Result, error) {
	lg := log.With("stage", "analysis")

	combined := Combine(population, businesses)
	lg.Infow("combined", "population_obs", len(population), "business_obs", len(businesses),
		"rows", len(combined), "regions", len(Regions(combined)))
	if len(combined) == 0 {
		lg.Warnw("join produced no rows")
	}

	records := Interpolate(combined, opt.TargetYears, opt.Method)
	lg.Infow("interpolated", "target_years", opt.TargetYears, "synthetic", len(records)-len(combined))

	cl, err := Cluster(records, opt.Cluster)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	lg.Infow("clustered", "k", opt.Cluster.K, "regions", len(cl.Regions), "inertia", cl.Inertia)
	if len(cl.Dropped) > 0 {
		lg.Warnw("regions dropped from clustering: no leading value", "regions", cl.Dropped)
	}

	cls := Classify(records, opt.RecentYears)
	lg.Infow("classified", "q25", cls.Q25, "q75", cls.Q75,
		"saturated", len(cls.Saturated), "opportunity", len(cls.Opportunity))

	return &Result{Combined: combined, Records: records, Clustering: cl, Classification: cls}, nil
}
