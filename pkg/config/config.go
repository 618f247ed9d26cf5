// Package config loads firstglance settings from a YAML file, FIRSTGLANCE_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/Sumatoshi-tech/firstglance/pkg/centrality"
	"github.com/Sumatoshi-tech/firstglance/pkg/cochange"
	"github.com/Sumatoshi-tech/firstglance/pkg/history"
	"github.com/Sumatoshi-tech/firstglance/pkg/report"
)

// Sentinel validation errors.
var (
	ErrInvalidLimit         = errors.New("history limit must be >= 0")
	ErrInvalidTreeCacheSize = errors.New("tree cache size must be >= 0")
	ErrInvalidTop           = errors.New("output top must be >= 0")
	ErrInvalidLogLevel      = errors.New("invalid log level")
)

// Config holds all firstglance settings.
type Config struct {
	Filter     FilterConfig     `mapstructure:"filter"`
	History    HistoryConfig    `mapstructure:"history"`
	Graph      GraphConfig      `mapstructure:"graph"`
	Centrality CentralityConfig `mapstructure:"centrality"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// FilterConfig selects which files of the reference tree are ranked.
type FilterConfig struct {
	ExcludeSubstrings []string `mapstructure:"exclude_substrings"`
	ExcludePrefixes   []string `mapstructure:"exclude_prefixes"`
	IncludeRegexp     string   `mapstructure:"include_regexp"`
	Languages         []string `mapstructure:"languages"`
	SkipVendor        bool     `mapstructure:"skip_vendor"`
}

// HistoryConfig selects the commits that are read.
type HistoryConfig struct {
	Ref           string `mapstructure:"ref"`
	Since         string `mapstructure:"since"`
	Limit         int    `mapstructure:"limit"`
	TreeCacheSize int    `mapstructure:"tree_cache_size"`
	FirstParent   bool   `mapstructure:"first_parent"`
}

// GraphConfig controls edge weights.
type GraphConfig struct {
	Baseline       float64 `mapstructure:"baseline"`
	Increment      float64 `mapstructure:"increment"`
	MaxCommitFiles int     `mapstructure:"max_commit_files"`
}

// CentralityConfig controls the shortest-path evaluation.
type CentralityConfig struct {
	Strategy string `mapstructure:"strategy"`
	Workers  int    `mapstructure:"workers"`
}

// OutputConfig controls rendering of the ranked list.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
	Top    int    `mapstructure:"top"`
}

// LoggingConfig controls the diagnostic log on stderr.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// MetricsConfig controls the Prometheus textfile written after a run.
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.History.Limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, c.History.Limit)
	}

	if c.History.TreeCacheSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTreeCacheSize, c.History.TreeCacheSize)
	}

	if c.Output.Top < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTop, c.Output.Top)
	}

	if _, err := c.PathFilter(); err != nil {
		return err
	}

	if err := c.GraphOptions().Validate(); err != nil {
		return err
	}

	if _, err := c.CentralityOptions(); err != nil {
		return err
	}

	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return err
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	return nil
}

// PathFilter compiles the path filter.
func (c *Config) PathFilter() (*history.Filter, error) {
	return history.NewFilter(history.FilterConfig{
		ExcludeSubstrings: c.Filter.ExcludeSubstrings,
		ExcludePrefixes:   c.Filter.ExcludePrefixes,
		SkipVendor:        c.Filter.SkipVendor,
		IncludeRegexp:     c.Filter.IncludeRegexp,
		Languages:         c.Filter.Languages,
	})
}

// HistoryOptions returns the provider options, filter included.
func (c *Config) HistoryOptions() (history.Options, error) {
	filter, err := c.PathFilter()
	if err != nil {
		return history.Options{}, err
	}

	return history.Options{
		Ref:           c.History.Ref,
		FirstParent:   c.History.FirstParent,
		Since:         c.History.Since,
		Limit:         c.History.Limit,
		TreeCacheSize: c.History.TreeCacheSize,
		Filter:        filter,
	}, nil
}

// GraphOptions returns the builder options.
func (c *Config) GraphOptions() cochange.Options {
	return cochange.Options{
		Baseline:       c.Graph.Baseline,
		Increment:      c.Graph.Increment,
		MaxCommitFiles: c.Graph.MaxCommitFiles,
	}
}

// CentralityOptions returns the evaluator options. Zero workers means one per
// available CPU.
func (c *Config) CentralityOptions() (centrality.Options, error) {
	strategy, err := centrality.ParseStrategy(c.Centrality.Strategy)
	if err != nil {
		return centrality.Options{}, err
	}

	workers := c.Centrality.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	opts := centrality.Options{Strategy: strategy, Workers: workers}

	return opts, opts.Validate()
}

// OutputFormat returns the parsed output format.
func (c *Config) OutputFormat() (report.Format, error) {
	return report.ParseFormat(c.Output.Format)
}

// LogLevel parses the logging level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(c.Logging.Level)))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}
