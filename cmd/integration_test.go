package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	cfgpkg "github.com/KaramelBytes/bizratio-cli/internal/config"
	"github.com/KaramelBytes/bizratio-cli/internal/sink"
)

// execCmd runs the root command with args after resetting sticky flag state.
func execCmd(args ...string) error {
	sticky := map[string][]string{
		"":        {"config", "http-timeout", "retry-max", "retry-base-ms", "retry-max-ms", "debug"},
		"init":    {"force"},
		"fetch":   {"skip-businesses", "skip-population"},
		"report":  {"no-charts"},
		"run":     {"skip-fetch", "no-charts"},
		"profile": {"output", "delimiter", "sheet-name", "sheet-index", "header-marker", "max-values"},
	}
	for name, flags := range sticky {
		c := rootCmd
		if name != "" {
			found, _, err := rootCmd.Find([]string{name})
			if err != nil {
				continue
			}
			c = found
		}
		for _, fn := range flags {
			fl := c.Flags().Lookup(fn)
			if fl == nil {
				fl = c.PersistentFlags().Lookup(fn)
			}
			if fl != nil {
				_ = fl.Value.Set(fl.DefValue)
				fl.Changed = false
			}
		}
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// mustRun is a helper to execute the root command with args.
func mustRun(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

// workspace isolates HOME and returns a config path plus workspace dir.
func workspace(t *testing.T) (string, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return filepath.Join(home, ".bizratio", "config.yaml"), filepath.Join(home, "ws")
}

type fixtureRegion struct {
	name string
	pop  int
	biz  int
}

var fixtureRegions = []fixtureRegion{
	{"Brasil", 10000, 500},
	{"Acre", 1000, 10},
	{"Amapá", 1000, 12},
	{"Bahia", 1000, 50},
	{"Ceará", 1000, 40},
	{"Distrito Federal", 1000, 100},
}

var fixtureYears = []int{2019, 2020, 2021, 2022}

// sidraJSON builds an API payload with two variables per region and year.
func sidraJSON(t *testing.T) []byte {
	t.Helper()
	rows := []map[string]string{{
		"NC": "Nível Territorial (Código)", "NN": "Nível Territorial", "V": "Valor",
		"D1N": "Ano", "D2N": "Brasil e Unidade da Federação", "D3N": "Variável",
	}}
	for _, r := range fixtureRegions {
		for _, y := range fixtureYears {
			rows = append(rows,
				map[string]string{"NC": "3", "NN": "UF", "V": strconv.Itoa(r.biz), "D1N": strconv.Itoa(y), "D2N": r.name, "D3N": "Número de empresas ativas"},
				map[string]string{"NC": "3", "NN": "UF", "V": "999999", "D1N": strconv.Itoa(y), "D2N": r.name, "D3N": "Pessoal ocupado total"},
			)
		}
	}
	b, err := json.Marshal(rows)
	require.NoError(t, err)
	return b
}

// populationXLSX builds a projection sheet with a title row, two age bands
// per region and a per-sex row that must be filtered out.
func populationXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	header := []any{"IDADE", "SEXO", "CÓD.", "SIGLA", "LOCAL"}
	for _, y := range fixtureYears {
		header = append(header, y)
	}
	write := func(row int, vals []any) {
		cell, err := excelize.CoordinatesToCellName(1, row)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &vals))
	}
	write(1, []any{"Projeções da população por idade simples"})
	write(2, header)
	row := 3
	for _, r := range fixtureRegions {
		for _, band := range []struct {
			age, sex string
			value    int
		}{{"0", "Ambos", r.pop / 2}, {"1", "Ambos", r.pop / 2}, {"0", "Homens", 7}} {
			vals := []any{band.age, band.sex, "0", "XX", r.name}
			for range fixtureYears {
				vals = append(vals, band.value)
			}
			write(row, vals)
			row++
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func sourceServer(t *testing.T) *httptest.Server {
	t.Helper()
	sidra, xlsx := sidraJSON(t), populationXLSX(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sidra":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(sidra)
		case "/pop.xlsx":
			_, _ = w.Write(xlsx)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCLI_InitWritesConfigAndDirs(t *testing.T) {
	cfgPath, ws := workspace(t)
	mustRun(t, "--config", cfgPath, "init", ws)

	assert.DirExists(t, filepath.Join(ws, "data"))
	assert.DirExists(t, filepath.Join(ws, "resultados"))
	c, err := cfgpkg.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "data"), c.Paths.DataDir)
	assert.Equal(t, filepath.Join(ws, "data", "merged_data.csv"), c.Paths.Merged)

	assert.Error(t, execCmd("--config", cfgPath, "init", ws), "refuses to overwrite")
	mustRun(t, "--config", cfgPath, "init", ws, "--force")
}

func TestCLI_ConfigSet(t *testing.T) {
	cfgPath, ws := workspace(t)
	mustRun(t, "--config", cfgPath, "init", ws)
	mustRun(t, "--config", cfgPath, "config", "set", "clustering.k", "3")
	mustRun(t, "--config", cfgPath, "config", "set", "report.exclude_regions", "Brasil, Norte")
	mustRun(t, "--config", cfgPath, "config", "set", "study.start", "2010")
	mustRun(t, "--config", cfgPath, "config", "show")

	c, err := cfgpkg.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Clustering.K)
	assert.Equal(t, []string{"Brasil", "Norte"}, c.Report.ExcludeRegions)
	assert.Equal(t, filepath.Join(ws, "data", "dados_2010_2020.csv"), c.Paths.BusinessesHistory)

	assert.Error(t, execCmd("--config", cfgPath, "config", "set", "clustering.k", "1"))
	assert.Error(t, execCmd("--config", cfgPath, "config", "set", "no.such.key", "x"))
	c, err = cfgpkg.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Clustering.K, "rejected values are not saved")
}

func TestCLI_RunEndToEnd(t *testing.T) {
	cfgPath, ws := workspace(t)
	srv := sourceServer(t)
	mustRun(t, "--config", cfgPath, "init", ws)
	for _, kv := range [][2]string{
		{"study.start", "2019"},
		{"clustering.k", "2"},
		{"fetch.sidra_url", srv.URL + "/sidra"},
		{"fetch.population_url", srv.URL + "/pop.xlsx"},
	} {
		mustRun(t, "--config", cfgPath, "config", "set", kv[0], kv[1])
	}
	mustRun(t, "--config", cfgPath, "run")

	data, res := filepath.Join(ws, "data"), filepath.Join(ws, "resultados")
	for _, f := range []string{"dados_2019_2020.csv", "dados_2021_2022.csv", "projecoes_populacao.xlsx",
		"dados_filtrados_numero_empresas_ativas.csv", "populacao_filtrada.csv", "merged_data.csv"} {
		assert.FileExists(t, filepath.Join(data, f))
	}
	for _, f := range []string{"summary.yaml", sink.MetricsFile, sink.ClusterFile, sink.ScatterFile, sink.TrendFile, sink.HeatmapFile} {
		assert.FileExists(t, filepath.Join(res, f))
	}

	rows, err := sink.ReadMerged(filepath.Join(data, "merged_data.csv"))
	require.NoError(t, err)
	assert.Len(t, rows, len(fixtureRegions)*len(fixtureYears))
	cluster := map[string]int{}
	for _, r := range rows {
		cluster[r.Region] = r.Cluster
		if r.Region == "Acre" {
			assert.InDelta(t, 100.0, r.Ratio, 1e-9)
		}
	}
	assert.Equal(t, cluster["Acre"], cluster["Amapá"])
	assert.NotEqual(t, cluster["Acre"], cluster["Distrito Federal"])

	s, err := sink.ReadSummary(filepath.Join(res, "summary.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 2, s.K)
	assert.Equal(t, []string{"Acre", "Amapá"}, s.Saturated)
	assert.Equal(t, []string{"Distrito Federal"}, s.Opportunity)
	assert.InDelta(t, 20.0, s.Q25, 1e-9)

	list, err := os.ReadFile(filepath.Join(res, sink.ClusterFile))
	require.NoError(t, err)
	assert.Contains(t, string(list), "Acre, Amapá")
	assert.NotContains(t, string(list), "Brasil")
	assert.Equal(t, 2, strings.Count(string(list), "Cluster "))
}

func TestCLI_ReportWithoutMerged(t *testing.T) {
	cfgPath, ws := workspace(t)
	mustRun(t, "--config", cfgPath, "init", ws)
	err := execCmd("--config", cfgPath, "report")
	require.Error(t, err)
	assert.ErrorIs(t, err, sink.ErrMissingInput)
}

func TestCLI_Profile(t *testing.T) {
	_, ws := workspace(t)
	require.NoError(t, os.MkdirAll(ws, 0o755))
	in := filepath.Join(ws, "pop.csv")
	require.NoError(t, os.WriteFile(in, []byte("LOCAL;SEXO\nAcre;Ambos\nAcre;Homens\n"), 0o644))
	out := filepath.Join(ws, "profile.md")
	mustRun(t, "profile", in, "-o", out)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "- LOCAL (unique=1)")
	assert.Contains(t, string(b), "  • Ambos (1)")
}
