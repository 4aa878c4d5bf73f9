package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure. Every stage receives the values it needs from
// here; nothing in the pipeline reads paths or years from package state.
type Global struct {
	Study      Study      `mapstructure:"study" yaml:"study"`
	Paths      Paths      `mapstructure:"paths" yaml:"paths"`
	Columns    Columns    `mapstructure:"columns" yaml:"columns"`
	Clustering Clustering `mapstructure:"clustering" yaml:"clustering"`
	Fetch      Fetch      `mapstructure:"fetch" yaml:"fetch"`
	Report     Report     `mapstructure:"report" yaml:"report"`

	// Interpolation method: piecewise (line through neighbouring years) or
	// regression (least-squares line over every year).
	Interpolation string `mapstructure:"interpolation" yaml:"interpolation" validate:"oneof=piecewise regression"`
}

// Study is the year window observations are collected and interpolated over.
type Study struct {
	Start int `mapstructure:"start" yaml:"start" validate:"gte=1900"`
	End   int `mapstructure:"end" yaml:"end" validate:"gtfield=Start"`
	// RecentYears counts the trailing years used for interpolation targets
	// and for the saturation classification.
	RecentYears int `mapstructure:"recent_years" yaml:"recent_years" validate:"gte=1"`
}

// Paths enumerates every file the pipeline reads or writes.
type Paths struct {
	DataDir           string `mapstructure:"data_dir" yaml:"data_dir" validate:"required"`
	ResultsDir        string `mapstructure:"results_dir" yaml:"results_dir" validate:"required"`
	BusinessesHistory string `mapstructure:"businesses_history" yaml:"businesses_history,omitempty"`
	BusinessesRecent  string `mapstructure:"businesses_recent" yaml:"businesses_recent,omitempty"`
	Businesses        string `mapstructure:"businesses" yaml:"businesses,omitempty"`
	PopulationXLSX    string `mapstructure:"population_xlsx" yaml:"population_xlsx,omitempty"`
	Population        string `mapstructure:"population" yaml:"population,omitempty"`
	Merged            string `mapstructure:"merged" yaml:"merged,omitempty"`
	Summary           string `mapstructure:"summary" yaml:"summary,omitempty"`
}

// Columns names the source columns of the raw tables.
type Columns struct {
	Region           string `mapstructure:"region" yaml:"region" validate:"required"`
	Year             string `mapstructure:"year" yaml:"year" validate:"required"`
	Sex              string `mapstructure:"sex" yaml:"sex"`
	SexFilter        string `mapstructure:"sex_filter" yaml:"sex_filter"`
	BusinessRegion   string `mapstructure:"business_region" yaml:"business_region" validate:"required"`
	Variable         string `mapstructure:"variable" yaml:"variable" validate:"required"`
	Value            string `mapstructure:"value" yaml:"value" validate:"required"`
	BusinessMeasure  string `mapstructure:"business_measure" yaml:"business_measure" validate:"required"`
	BusinessesOutput string `mapstructure:"businesses_output" yaml:"businesses_output" validate:"required"`
}

// Clustering controls the k-means step.
type Clustering struct {
	K          int     `mapstructure:"k" yaml:"k" validate:"gte=2"`
	Seed       uint64  `mapstructure:"seed" yaml:"seed"`
	NInit      int     `mapstructure:"n_init" yaml:"n_init" validate:"gte=1"`
	MaxIter    int     `mapstructure:"max_iter" yaml:"max_iter" validate:"gte=1"`
	Tolerance  float64 `mapstructure:"tolerance" yaml:"tolerance" validate:"gte=0"`
	LeadingGap string  `mapstructure:"leading_gap" yaml:"leading_gap" validate:"oneof=backfill drop"`
}

// Fetch holds remote source locations and HTTP behaviour.
type Fetch struct {
	SidraURL         string `mapstructure:"sidra_url" yaml:"sidra_url" validate:"omitempty,url"`
	PopulationURL    string `mapstructure:"population_url" yaml:"population_url" validate:"omitempty,url"`
	HTTPTimeoutSec   int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=0"`
	RetryMaxAttempts int    `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=0"`
	RetryBaseDelayMs int    `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=0"`
	RetryMaxDelayMs  int    `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gte=0"`
}

// Report controls the output rendering stage.
type Report struct {
	ExcludeRegions []string `mapstructure:"exclude_regions" yaml:"exclude_regions"`
	Charts         bool     `mapstructure:"charts" yaml:"charts"`
}

// TargetYears returns the trailing RecentYears years of the study window.
func (s Study) TargetYears() []int {
	n := s.RecentYears
	if n <= 0 {
		n = 1
	}
	if span := s.End - s.Start + 1; n > span {
		n = span
	}
	if n < 1 {
		n = 1
	}
	out := make([]int, 0, n)
	for y := s.End - n + 1; y <= s.End; y++ {
		out = append(out, y)
	}
	return out
}

// HistoryEnd is the last year before the recent block.
func (s Study) HistoryEnd() int {
	return s.TargetYears()[0] - 1
}

// Validate checks struct constraints.
func (c *Global) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultPath returns ~/.bizratio/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".bizratio", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.bizratio/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	out := c.portable()
	b, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("study.start", 2007)
	v.SetDefault("study.end", 2022)
	v.SetDefault("study.recent_years", 2)
	v.SetDefault("interpolation", "piecewise")

	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.results_dir", "resultados")
	// Empty defaults register the keys so env overrides reach Unmarshal.
	for _, k := range []string{"businesses_history", "businesses_recent", "businesses", "population_xlsx", "population", "merged", "summary"} {
		v.SetDefault("paths."+k, "")
	}

	v.SetDefault("columns.region", "LOCAL")
	v.SetDefault("columns.year", "Ano")
	v.SetDefault("columns.sex", "SEXO")
	v.SetDefault("columns.sex_filter", "Ambos")
	v.SetDefault("columns.business_region", "Brasil e Unidade da Federação")
	v.SetDefault("columns.variable", "Variável")
	v.SetDefault("columns.value", "Valor")
	v.SetDefault("columns.business_measure", "Número de empresas ativas")
	v.SetDefault("columns.businesses_output", "Número de empresas ativas")

	v.SetDefault("clustering.k", 4)
	v.SetDefault("clustering.seed", 42)
	v.SetDefault("clustering.n_init", 10)
	v.SetDefault("clustering.max_iter", 300)
	v.SetDefault("clustering.tolerance", 1e-4)
	v.SetDefault("clustering.leading_gap", "backfill")

	v.SetDefault("fetch.sidra_url", "https://apisidra.ibge.gov.br/values/t/1757/p/2007-2022/n1/1/n3/all/v/allxp")
	v.SetDefault("fetch.population_url", "https://ftp.ibge.gov.br/Projecao_da_Populacao/Projecao_da_Populacao_2024/projecoes_2024_tab1_idade_simples.xlsx")
	v.SetDefault("fetch.http_timeout_sec", 60)
	v.SetDefault("fetch.retry_max_attempts", 3)
	v.SetDefault("fetch.retry_base_delay_ms", 500)
	v.SetDefault("fetch.retry_max_delay_ms", 4000)

	v.SetDefault("report.exclude_regions", []string{"Brasil"})
	v.SetDefault("report.charts", true)
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A missing config file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("BIZRATIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".bizratio"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.resolvePaths()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

type derivedPath struct {
	dst  *string
	path string
}

func (c *Global) derivedPaths() []derivedPath {
	p := &c.Paths
	hist := fmt.Sprintf("dados_%d_%d.csv", c.Study.Start, c.Study.HistoryEnd())
	recent := fmt.Sprintf("dados_%d_%d.csv", c.Study.HistoryEnd()+1, c.Study.End)
	return []derivedPath{
		{&p.BusinessesHistory, filepath.Join(p.DataDir, hist)},
		{&p.BusinessesRecent, filepath.Join(p.DataDir, recent)},
		{&p.Businesses, filepath.Join(p.DataDir, "dados_filtrados_numero_empresas_ativas.csv")},
		{&p.PopulationXLSX, filepath.Join(p.DataDir, "projecoes_populacao.xlsx")},
		{&p.Population, filepath.Join(p.DataDir, "populacao_filtrada.csv")},
		{&p.Merged, filepath.Join(p.DataDir, "merged_data.csv")},
		{&p.Summary, filepath.Join(p.ResultsDir, "summary.yaml")},
	}
}

// resolvePaths fills unset file paths from the data and results directories.
func (c *Global) resolvePaths() {
	for _, d := range c.derivedPaths() {
		if *d.dst == "" {
			*d.dst = d.path
		}
	}
}

// portable returns a copy with every path that merely follows from the
// directories cleared, so a saved file keeps tracking data_dir and results_dir.
func (c *Global) portable() Global {
	out := *c
	out.Report.ExcludeRegions = append([]string(nil), c.Report.ExcludeRegions...)
	for _, d := range out.derivedPaths() {
		if *d.dst == d.path {
			*d.dst = ""
		}
	}
	return out
}

// Reresolve recomputes derived paths after the directories or study window
// changed. Explicitly configured paths are kept.
func (c *Global) Reresolve(before Global) {
	prev := before.derivedPaths()
	for i, d := range c.derivedPaths() {
		if *d.dst == prev[i].path {
			*d.dst = ""
		}
	}
	c.resolvePaths()
}

// Default returns the built-in configuration without reading files or env.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	// Defaults always decode; the struct mirrors every key set above.
	_ = v.Unmarshal(&c)
	c.resolvePaths()
	return &c
}
