package config

import (
	"github.com/Sumatoshi-tech/firstglance/pkg/centrality"
	"github.com/Sumatoshi-tech/firstglance/pkg/cochange"
	"github.com/Sumatoshi-tech/firstglance/pkg/history"
	"github.com/Sumatoshi-tech/firstglance/pkg/report"
)

// Filter defaults.
const (
	DefaultFilterSkipVendor    = false
	DefaultFilterIncludeRegexp = ""
)

// DefaultFilterExcludeSubstrings returns the default substring blacklist.
func DefaultFilterExcludeSubstrings() []string {
	return append([]string(nil), history.DefaultExcludeSubstrings...)
}

// History defaults.
const (
	DefaultHistoryRef           = "HEAD"
	DefaultHistoryFirstParent   = false
	DefaultHistorySince         = ""
	DefaultHistoryLimit         = 0
	DefaultHistoryTreeCacheSize = history.DefaultTreeCacheSize
)

// Graph defaults.
const (
	DefaultGraphBaseline       = cochange.DefaultBaseline
	DefaultGraphIncrement      = cochange.DefaultIncrement
	DefaultGraphMaxCommitFiles = 0
)

// Centrality defaults.
const (
	DefaultCentralityStrategy = string(centrality.StrategyDijkstra)
	DefaultCentralityWorkers  = 1
)

// Output defaults.
const (
	DefaultOutputFormat = string(report.FormatText)
	DefaultOutputTop    = 0
	DefaultOutputFile   = ""
)

// Logging and metrics defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
	DefaultMetricsFile  = ""
)

// Default returns the configuration LoadConfig yields with no file and no
// environment overrides.
func Default() *Config {
	return &Config{
		Filter: FilterConfig{
			ExcludeSubstrings: DefaultFilterExcludeSubstrings(),
			SkipVendor:        DefaultFilterSkipVendor,
			IncludeRegexp:     DefaultFilterIncludeRegexp,
		},
		History: HistoryConfig{
			Ref:           DefaultHistoryRef,
			FirstParent:   DefaultHistoryFirstParent,
			Since:         DefaultHistorySince,
			Limit:         DefaultHistoryLimit,
			TreeCacheSize: DefaultHistoryTreeCacheSize,
		},
		Graph: GraphConfig{
			Baseline:       DefaultGraphBaseline,
			Increment:      DefaultGraphIncrement,
			MaxCommitFiles: DefaultGraphMaxCommitFiles,
		},
		Centrality: CentralityConfig{
			Strategy: DefaultCentralityStrategy,
			Workers:  DefaultCentralityWorkers,
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
			Top:    DefaultOutputTop,
			File:   DefaultOutputFile,
		},
		Logging: LoggingConfig{
			Level: DefaultLoggingLevel,
			JSON:  DefaultLoggingJSON,
		},
		Metrics: MetricsConfig{
			File: DefaultMetricsFile,
		},
	}
}
