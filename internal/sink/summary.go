package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/bizratio-cli/internal/analysis"
	"github.com/KaramelBytes/bizratio-cli/internal/utils"
)

// Summary describes one analysis run.
type Summary struct {
	RunID         string    `yaml:"run_id"`
	StartedAt     time.Time `yaml:"started_at"`
	FinishedAt    time.Time `yaml:"finished_at"`
	StudyStart    int       `yaml:"study_start"`
	StudyEnd      int       `yaml:"study_end"`
	TargetYears   []int     `yaml:"target_years"`
	Interpolation string    `yaml:"interpolation"`

	Rows          int      `yaml:"rows"`
	SyntheticRows int      `yaml:"synthetic_rows"`
	Regions       int      `yaml:"regions"`
	K             int      `yaml:"k"`
	Inertia       float64  `yaml:"inertia"`
	Dropped       []string `yaml:"dropped_regions,omitempty"`
	Clusters      []Group  `yaml:"clusters"`

	Q25         float64  `yaml:"q25"`
	Q75         float64  `yaml:"q75"`
	Saturated   []string `yaml:"saturated"`
	Opportunity []string `yaml:"opportunity"`

	Outputs map[string]string `yaml:"outputs,omitempty"`
}

// Summarize fills the result-derived fields of s.
func Summarize(s *Summary, res *analysis.Result, k int, exclude []string) {
	s.Rows = len(res.Records)
	s.SyntheticRows = len(res.Records) - len(res.Combined)
	s.K = k
	if cl := res.Clustering; cl != nil {
		s.Regions = len(cl.Regions)
		s.Inertia = cl.Inertia
		s.Dropped = cl.Dropped
	}
	s.Clusters = GroupByCluster(res.Annotated(), exclude)
	s.Q25 = res.Classification.Q25
	s.Q75 = res.Classification.Q75
	s.Saturated = nonNil(res.Classification.Saturated)
	s.Opportunity = nonNil(res.Classification.Opportunity)
}

// WriteSummary writes s as YAML.
func WriteSummary(path string, s *Summary) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := writeFile(path, b); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeFile(path string, data []byte) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, data)
}
