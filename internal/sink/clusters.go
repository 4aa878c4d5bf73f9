package sink

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/bizratio-cli/internal/analysis"
)

// Group is one cluster and its member regions.
type Group struct {
	ID      int      `yaml:"id"`
	Regions []string `yaml:"regions"`
}

// Exclude drops rows whose region is listed, such as the national aggregate.
func Exclude(rows []analysis.AnnotatedRecord, regions []string) []analysis.AnnotatedRecord {
	if len(regions) == 0 {
		return rows
	}
	skip := make(map[string]bool, len(regions))
	for _, r := range regions {
		skip[strings.TrimSpace(r)] = true
	}
	out := make([]analysis.AnnotatedRecord, 0, len(rows))
	for _, r := range rows {
		if !skip[r.Region] {
			out = append(out, r)
		}
	}
	return out
}

// GroupByCluster lists the regions of each cluster, ordered by cluster id
// with regions sorted. Unassigned rows and excluded regions are skipped.
func GroupByCluster(rows []analysis.AnnotatedRecord, exclude []string) []Group {
	members := map[int]map[string]bool{}
	for _, r := range Exclude(rows, exclude) {
		if r.Cluster == analysis.NoCluster {
			continue
		}
		if members[r.Cluster] == nil {
			members[r.Cluster] = map[string]bool{}
		}
		members[r.Cluster][r.Region] = true
	}
	out := make([]Group, 0, len(members))
	for id, set := range members {
		g := Group{ID: id}
		for region := range set {
			g.Regions = append(g.Regions, region)
		}
		sort.Strings(g.Regions)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WriteClusterList writes "Cluster N:" followed by the comma-separated
// regions and a blank line, per group.
func WriteClusterList(path string, groups []Group) error {
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "Cluster %d:\n", g.ID)
		b.WriteString(strings.Join(g.Regions, ", "))
		b.WriteString("\n\n")
	}
	if err := writeFile(path, []byte(b.String())); err != nil {
		return fmt.Errorf("write cluster list: %w", err)
	}
	return nil
}
