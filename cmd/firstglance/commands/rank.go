package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Sumatoshi-tech/firstglance/pkg/config"
	"github.com/Sumatoshi-tech/firstglance/pkg/framework"
	"github.com/Sumatoshi-tech/firstglance/pkg/observability"
	"github.com/Sumatoshi-tech/firstglance/pkg/report"
	"github.com/Sumatoshi-tech/firstglance/pkg/version"
)

// runIDLength is the number of UUID characters kept in the run_id log field.
const runIDLength = 8

// ErrInputWithPath is returned when --input is combined with a repository path.
var ErrInputWithPath = errors.New("--input renders a saved report and takes no repository path")

// flagKeys maps rank flags to the config keys they override.
var flagKeys = map[string]string{
	"exclude":          "filter.exclude_substrings",
	"exclude-prefix":   "filter.exclude_prefixes",
	"skip-vendor":      "filter.skip_vendor",
	"include":          "filter.include_regexp",
	"language":         "filter.languages",
	"ref":              "history.ref",
	"first-parent":     "history.first_parent",
	"since":            "history.since",
	"limit":            "history.limit",
	"tree-cache-size":  "history.tree_cache_size",
	"baseline":         "graph.baseline",
	"increment":        "graph.increment",
	"max-commit-files": "graph.max_commit_files",
	"strategy":         "centrality.strategy",
	"workers":          "centrality.workers",
	"format":           "output.format",
	"top":              "output.top",
	"output":           "output.file",
	"log-level":        "logging.level",
	"log-json":         "logging.json",
	"metrics-file":     "metrics.file",
}

// RankCommand holds the flags that are not config keys.
type RankCommand struct {
	configPath string
	input      string
	quiet      bool
}

// NewRankCommand creates the rank command.
func NewRankCommand() *cobra.Command {
	rc := &RankCommand{}

	cmd := &cobra.Command{
		Use:   "rank [path]",
		Short: "Rank the files of a repository by co-change centrality",
		Long: `Rank every file of a Git repository by how often it lies on the shortest
path between two other files in the co-change graph.

Each commit strengthens the edge between every pair of files it changed.
Files that often change together end up close; files that connect otherwise
unrelated parts of the history score highest.

The ranked list goes to stdout (or --output) as "<path> -- <score>" lines by
default; a short summary goes to stderr.

Examples:
  firstglance rank
  firstglance rank ~/src/project --top 20
  firstglance rank --since 2160h --strategy floyd-warshall --workers 8
  firstglance rank --format json --output rank.json.lz4
  firstglance rank --input rank.json.lz4 --format table`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	flags := cmd.Flags()
	flags.StringVar(&rc.configPath, "config", "", "config file (default .firstglance.yaml in . or $HOME)")
	flags.StringVar(&rc.input, "input", "", "render a saved JSON report instead of reading a repository")
	flags.BoolVarP(&rc.quiet, "quiet", "q", false, "suppress the summary on stderr")

	flags.StringSlice("exclude", config.DefaultFilterExcludeSubstrings(), "skip files whose path contains any of these")
	flags.StringSlice("exclude-prefix", nil, "skip files under these path prefixes")
	flags.Bool("skip-vendor", config.DefaultFilterSkipVendor, "skip vendored and generated paths")
	flags.String("include", config.DefaultFilterIncludeRegexp, "only rank paths matching this regular expression")
	flags.StringSlice("language", nil, "only rank files of these languages (e.g. Go,Python)")
	flags.String("ref", config.DefaultHistoryRef, "revision whose tree and history are ranked")
	flags.Bool("first-parent", config.DefaultHistoryFirstParent, "follow only the first parent of merge commits")
	flags.String("since", config.DefaultHistorySince, "only read commits after this time (duration like 720h or a date)")
	flags.Int("limit", config.DefaultHistoryLimit, "maximum number of commits to read (0 = all)")
	flags.Int("tree-cache-size", config.DefaultHistoryTreeCacheSize, "number of commit trees kept in memory")
	flags.Float64("baseline", config.DefaultGraphBaseline, "initial co-change weight of every file pair")
	flags.Float64("increment", config.DefaultGraphIncrement, "weight added per commit touching both files")
	flags.Int("max-commit-files", config.DefaultGraphMaxCommitFiles, "ignore commits changing more files than this (0 = no cap)")
	flags.String("strategy", config.DefaultCentralityStrategy, "shortest-path algorithm: dijkstra or floyd-warshall")
	flags.Int("workers", config.DefaultCentralityWorkers, "goroutines for the evaluation (0 = one per CPU)")
	flags.StringP("format", "f", config.DefaultOutputFormat, "output format: text, json, yaml or table")
	flags.Int("top", config.DefaultOutputTop, "print only the first N files (0 = all)")
	flags.StringP("output", "o", config.DefaultOutputFile, "write the report to a file (.lz4 suffix compresses)")
	flags.String("log-level", config.DefaultLoggingLevel, "log level: debug, info, warn or error")
	flags.Bool("log-json", config.DefaultLoggingJSON, "log as JSON")
	flags.String("metrics-file", config.DefaultMetricsFile, "write run metrics in Prometheus text format to this file")

	return cmd
}

func (rc *RankCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := rc.loadConfig(cmd)
	if err != nil {
		return err
	}

	format, err := cfg.OutputFormat()
	if err != nil {
		return err
	}

	if rc.input != "" {
		if len(args) > 0 {
			return ErrInputWithPath
		}

		return rc.renderSaved(cmd, cfg, format)
	}

	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	return rc.rank(cmd, cfg, format, path)
}

// loadConfig layers explicitly set flags over the config file, the
// environment and the defaults.
func (rc *RankCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.NewViper(rc.configPath)
	if err != nil {
		return nil, err
	}

	err = bindFlags(v, cmd)
	if err != nil {
		return nil, err
	}

	return config.Decode(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}

		err := v.BindPFlag(key, flag)
		if err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}

func (rc *RankCommand) rank(cmd *cobra.Command, cfg *config.Config, format report.Format, path string) error {
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	obsCfg := observability.DefaultConfig().WithEnv()
	obsCfg.ServiceVersion = version.Get().Version
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogWriter = cmd.ErrOrStderr()
	obsCfg.MetricsFile = cfg.Metrics.File

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	logger := providers.Logger.With("run_id", uuid.NewString()[:runIDLength])

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	pipeline, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	histOpts, err := cfg.HistoryOptions()
	if err != nil {
		return err
	}

	centOpts, err := cfg.CentralityOptions()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	logger.InfoContext(ctx, "ranking repository", "path", path, "ref", histOpts.Ref,
		"strategy", string(centOpts.Strategy), "workers", centOpts.Workers)

	rep, res, err := framework.RankRepository(ctx, path, histOpts, framework.Config{
		Graph:      cfg.GraphOptions(),
		Centrality: centOpts,
		Logger:     logger,
		Tracer:     providers.Tracer,
		Metrics:    pipeline,
		Progress:   progressLogger(ctx, logger),
	}, cfg.Output.Top)
	if err != nil {
		return err
	}

	ctx, span := providers.Tracer.Start(ctx, "firstglance.report")
	span.SetAttributes(
		attribute.String("report.format", string(format)),
		attribute.Int("report.files", len(rep.Files)),
	)

	err = writeReport(cmd.OutOrStdout(), rep, format, cfg.Output.File)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()

		return err
	}

	span.End()

	logger.InfoContext(ctx, "report written", "files", len(rep.Files), "duration", time.Since(start))

	if !rc.quiet {
		printSummary(cmd.ErrOrStderr(), res, cfg.Output.File, time.Since(start))
	}

	return nil
}

func (rc *RankCommand) renderSaved(cmd *cobra.Command, cfg *config.Config, format report.Format) error {
	f, err := report.OpenFile(rc.input)
	if err != nil {
		return err
	}
	defer f.Close()

	rep, err := report.ReadJSON(f)
	if err != nil {
		return fmt.Errorf("%s: %w", rc.input, err)
	}

	rep.Files = report.Top(rep.Files, cfg.Output.Top)

	return writeReport(cmd.OutOrStdout(), rep, format, cfg.Output.File)
}

func writeReport(stdout io.Writer, rep *report.Report, format report.Format, file string) error {
	if file != "" {
		return report.WriteFile(file, rep, format)
	}

	return report.Render(stdout, rep, format)
}

// progressLogger logs history progress at debug level every tenth of the way.
func progressLogger(ctx context.Context, logger *slog.Logger) func(done, total int) {
	const steps = 10

	return func(done, total int) {
		every := max(total/steps, 1)
		if done%every == 0 || done == total {
			logger.DebugContext(ctx, "commits folded", "done", done, "total", total)
		}
	}
}

func printSummary(w io.Writer, res *framework.Result, file string, elapsed time.Duration) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	bold.Fprintf(w, "ranked %s files", humanize.Comma(int64(res.Graph.Order())))
	fmt.Fprintf(w, " from %s commits in %s\n",
		humanize.Comma(int64(res.Build.Commits+res.FailedCommits)),
		elapsed.Round(time.Millisecond))

	skipped := res.Build.OversizeCommits + res.Build.EmptyCommits
	if skipped > 0 {
		dim.Fprintf(w, "  %s commits contributed no pairs (%d oversize, %d empty)\n",
			humanize.Comma(int64(skipped)), res.Build.OversizeCommits, res.Build.EmptyCommits)
	}

	if res.FailedCommits > 0 {
		color.New(color.FgYellow).Fprintf(w, "  %s commits could not be read and were skipped\n",
			humanize.Comma(int64(res.FailedCommits)))
	}

	if unreachable := res.Scores.Stats().UnreachablePairs; unreachable > 0 {
		color.New(color.FgYellow).Fprintf(w, "  %s file pairs are not connected\n",
			humanize.Comma(int64(unreachable)))
	}

	if file != "" {
		color.New(color.FgGreen).Fprintf(w, "  report written to %s\n", file)
	}
}
