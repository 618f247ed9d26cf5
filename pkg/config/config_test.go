package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/firstglance/pkg/centrality"
	"github.com/Sumatoshi-tech/firstglance/pkg/cochange"
	"github.com/Sumatoshi-tech/firstglance/pkg/config"
	"github.com/Sumatoshi-tech/firstglance/pkg/history"
	"github.com/Sumatoshi-tech/firstglance/pkg/report"
)

func validConfig() config.Config {
	return config.Config{
		Filter: config.FilterConfig{
			ExcludeSubstrings: []string{"test"},
		},
		History: config.HistoryConfig{
			Ref:           "HEAD",
			TreeCacheSize: 64,
		},
		Graph: config.GraphConfig{
			Baseline:  1,
			Increment: 1,
		},
		Centrality: config.CentralityConfig{
			Strategy: "dijkstra",
			Workers:  1,
		},
		Output: config.OutputConfig{
			Format: "text",
		},
		Logging: config.LoggingConfig{
			Level: "info",
		},
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "firstglance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestValidate_ValidConfig_NoError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_Invalid_ReturnsSentinel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"negative limit", func(c *config.Config) { c.History.Limit = -1 }, config.ErrInvalidLimit},
		{"negative cache", func(c *config.Config) { c.History.TreeCacheSize = -1 }, config.ErrInvalidTreeCacheSize},
		{"negative top", func(c *config.Config) { c.Output.Top = -3 }, config.ErrInvalidTop},
		{"bad regexp", func(c *config.Config) { c.Filter.IncludeRegexp = "(" }, history.ErrInvalidIncludePattern},
		{"zero baseline", func(c *config.Config) { c.Graph.Baseline = 0 }, cochange.ErrInvalidBaseline},
		{"negative increment", func(c *config.Config) { c.Graph.Increment = -1 }, cochange.ErrInvalidIncrement},
		{"negative commit cap", func(c *config.Config) { c.Graph.MaxCommitFiles = -1 }, cochange.ErrInvalidMaxCommitFiles},
		{"unknown strategy", func(c *config.Config) { c.Centrality.Strategy = "bfs" }, centrality.ErrUnknownStrategy},
		{"negative workers", func(c *config.Config) { c.Centrality.Workers = -2 }, centrality.ErrInvalidWorkers},
		{"unknown format", func(c *config.Config) { c.Output.Format = "xml" }, report.ErrUnknownFormat},
		{"unknown level", func(c *config.Config) { c.Logging.Level = "loud" }, config.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestCentralityOptions_ZeroWorkersUsesCPUs(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Centrality.Workers = 0
	cfg.Centrality.Strategy = "Floyd-Warshall"

	opts, err := cfg.CentralityOptions()
	require.NoError(t, err)
	assert.Equal(t, centrality.StrategyFloydWarshall, opts.Strategy)
	assert.Equal(t, runtime.GOMAXPROCS(0), opts.Workers)
}

func TestHistoryOptions_CarriesFilter(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.History.Limit = 50
	cfg.History.FirstParent = true
	cfg.Filter.ExcludePrefixes = []string{"docs/"}

	opts, err := cfg.HistoryOptions()
	require.NoError(t, err)
	assert.Equal(t, 50, opts.Limit)
	assert.True(t, opts.FirstParent)
	require.NotNil(t, opts.Filter)
	assert.False(t, opts.Filter.Match("docs/index.md"))
	assert.False(t, opts.Filter.Match("pkg/test_helpers.go"))
	assert.True(t, opts.Filter.Match("pkg/main.go"))
}

func TestLogLevel(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Logging.Level = "DEBUG"

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig_NoFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"test"}, cfg.Filter.ExcludeSubstrings)
	assert.Equal(t, config.DefaultHistoryRef, cfg.History.Ref)
	assert.Equal(t, history.DefaultTreeCacheSize, cfg.History.TreeCacheSize)
	assert.InDelta(t, cochange.DefaultBaseline, cfg.Graph.Baseline, 0)
	assert.InDelta(t, cochange.DefaultIncrement, cfg.Graph.Increment, 0)
	assert.Equal(t, "dijkstra", cfg.Centrality.Strategy)
	assert.Equal(t, 1, cfg.Centrality.Workers)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
filter:
  exclude_substrings: [mock, fixture]
  languages: [go]
history:
  ref: main
  limit: 200
graph:
  baseline: 2.5
  max_commit_files: 40
centrality:
  strategy: floyd-warshall
  workers: 4
output:
  format: json
  top: 10
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"mock", "fixture"}, cfg.Filter.ExcludeSubstrings)
	assert.Equal(t, []string{"go"}, cfg.Filter.Languages)
	assert.Equal(t, "main", cfg.History.Ref)
	assert.Equal(t, 200, cfg.History.Limit)
	assert.InDelta(t, 2.5, cfg.Graph.Baseline, 0)
	assert.Equal(t, 40, cfg.Graph.MaxCommitFiles)
	assert.Equal(t, "floyd-warshall", cfg.Centrality.Strategy)
	assert.Equal(t, 4, cfg.Centrality.Workers)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 10, cfg.Output.Top)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "centrality:\n  workers: 2\n")

	t.Setenv("FIRSTGLANCE_CENTRALITY_WORKERS", "8")
	t.Setenv("FIRSTGLANCE_OUTPUT_FORMAT", "table")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Centrality.Workers)
	assert.Equal(t, "table", cfg.Output.Format)
}

func TestLoadConfig_InvalidValue_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "graph:\n  baseline: -1\n"))
	require.ErrorIs(t, err, cochange.ErrInvalidBaseline)
}

func TestLoadConfig_MalformedFile_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "graph: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_MissingExplicitFile_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDefault_MatchesLoadedDefaults(t *testing.T) {
	t.Parallel()

	loaded, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	def := config.Default()
	require.NoError(t, def.Validate())

	assert.Equal(t, loaded.Filter.ExcludeSubstrings, def.Filter.ExcludeSubstrings)
	assert.Equal(t, loaded.History, def.History)
	assert.Equal(t, loaded.Graph, def.Graph)
	assert.Equal(t, loaded.Centrality, def.Centrality)
	assert.Equal(t, loaded.Output, def.Output)
	assert.Equal(t, loaded.Logging, def.Logging)
	assert.Equal(t, loaded.Metrics, def.Metrics)
}
