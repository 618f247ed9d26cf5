// Package framework provides the runner that turns a repository history into
// ranked centrality scores: load, build, evaluate.
package framework

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/firstglance/pkg/centrality"
	"github.com/Sumatoshi-tech/firstglance/pkg/cochange"
	"github.com/Sumatoshi-tech/firstglance/pkg/history"
	"github.com/Sumatoshi-tech/firstglance/pkg/observability"
)

const tracerName = "firstglance"

// Pipeline stages, used for span names and the stage duration metric.
const (
	StageLoad     = "load"
	StageBuild    = "build"
	StageEvaluate = "evaluate"
)

// Config holds the per-run settings of a Runner.
type Config struct {
	Graph      cochange.Options
	Centrality centrality.Options

	// Logger is the structured logger. When nil, a discard logger is used.
	Logger *slog.Logger

	// Tracer creates the stage spans. When nil, the global tracer is used.
	Tracer trace.Tracer

	// Metrics records the run statistics. Nil-safe.
	Metrics *observability.PipelineMetrics

	// Progress, when set, is called after each commit is folded in.
	Progress func(done, total int)
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (c Config) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}

	return otel.Tracer(tracerName)
}

// Result is the outcome of one run.
type Result struct {
	Graph    *cochange.Graph
	Scores   *centrality.Scores
	Strategy centrality.Strategy

	// Build holds the builder counters.
	Build cochange.Stats
	// FailedCommits counts commits whose changes could not be read. They
	// contribute nothing to the graph.
	FailedCommits int
	// Durations maps each stage to its wall time.
	Durations map[string]time.Duration
}

// cacheReporter is implemented by providers that cache commit trees.
type cacheReporter interface {
	CacheStats() history.CacheStats
}

// Runner drives a history provider through the builder and the evaluator.
type Runner struct {
	Provider history.Provider
	Config   Config
}

// NewRunner creates a Runner. The provider stays owned by the caller.
func NewRunner(provider history.Provider, cfg Config) *Runner {
	return &Runner{Provider: provider, Config: cfg}
}

// Run executes the pipeline. A commit whose changes cannot be read is logged
// and skipped; every other error aborts the run.
func (runner *Runner) Run(ctx context.Context) (*Result, error) {
	evaluator, err := centrality.NewEvaluator(runner.Config.Centrality)
	if err != nil {
		return nil, err
	}

	logger := runner.Config.logger()
	tr := runner.Config.tracer()
	res := &Result{
		Strategy:  evaluator.Options().Strategy,
		Durations: make(map[string]time.Duration, 3),
	}

	files, commits, err := runner.load(ctx, tr, res)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "history loaded", "files", len(files), "commits", len(commits))

	res.Graph, err = runner.build(ctx, tr, logger, files, commits, res)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "graph built",
		"vertices", res.Graph.Order(),
		"oversize_commits", res.Build.OversizeCommits,
		"empty_commits", res.Build.EmptyCommits,
		"failed_commits", res.FailedCommits)

	res.Scores, err = runner.evaluate(ctx, tr, evaluator, res)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "centrality evaluated",
		"strategy", string(evaluator.Options().Strategy),
		"pairs", res.Scores.Stats().PairsEvaluated,
		"unreachable_pairs", res.Scores.Stats().UnreachablePairs)

	runner.recordMetrics(ctx, res)

	return res, nil
}

func (runner *Runner) load(ctx context.Context, tr trace.Tracer, res *Result) ([]string, []history.Commit, error) {
	start := time.Now()

	ctx, span := tr.Start(ctx, "firstglance."+StageLoad)
	defer span.End()

	files, err := runner.Provider.Files(ctx)
	if err != nil {
		return nil, nil, spanError(span, fmt.Errorf("list files: %w", err))
	}

	commits, err := runner.Provider.Commits(ctx)
	if err != nil {
		return nil, nil, spanError(span, fmt.Errorf("list commits: %w", err))
	}

	span.SetAttributes(
		attribute.Int("pipeline.files", len(files)),
		attribute.Int("pipeline.commits", len(commits)),
	)

	res.Durations[StageLoad] = time.Since(start)

	return files, commits, nil
}

func (runner *Runner) build(
	ctx context.Context, tr trace.Tracer, logger *slog.Logger,
	files []string, commits []history.Commit, res *Result,
) (*cochange.Graph, error) {
	start := time.Now()

	ctx, span := tr.Start(ctx, "firstglance."+StageBuild)
	defer span.End()

	builder, err := cochange.NewBuilder(files, runner.Config.Graph)
	if err != nil {
		return nil, spanError(span, err)
	}

	for i, commit := range commits {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, spanError(span, ctxErr)
		}

		changed, changedErr := runner.Provider.ChangedFiles(ctx, commit)
		if changedErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, spanError(span, ctxErr)
			}

			logger.WarnContext(ctx, "skipping commit: changes unavailable",
				"commit", commit.Hash.String(), "error", changedErr)

			res.FailedCommits++
		} else {
			builder.AddCommit(changed)
		}

		if runner.Config.Progress != nil {
			runner.Config.Progress(i+1, len(commits))
		}
	}

	g := builder.Finish()
	res.Build = builder.Stats()

	span.SetAttributes(
		attribute.Int("graph.vertices", g.Order()),
		attribute.Int("graph.pairs_incremented", res.Build.PairsIncremented),
		attribute.Int("graph.oversize_commits", res.Build.OversizeCommits),
		attribute.Int("graph.failed_commits", res.FailedCommits),
	)

	res.Durations[StageBuild] = time.Since(start)

	return g, nil
}

func (runner *Runner) evaluate(
	ctx context.Context, tr trace.Tracer, evaluator *centrality.Evaluator, res *Result,
) (*centrality.Scores, error) {
	start := time.Now()

	ctx, span := tr.Start(ctx, "firstglance."+StageEvaluate,
		trace.WithAttributes(
			attribute.String("centrality.strategy", string(evaluator.Options().Strategy)),
			attribute.Int("centrality.workers", evaluator.Options().Workers),
		))
	defer span.End()

	scores, err := evaluator.Evaluate(ctx, res.Graph)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("evaluate: %w", err))
	}

	span.SetAttributes(attribute.Int("centrality.unreachable_pairs", scores.Stats().UnreachablePairs))

	res.Durations[StageEvaluate] = time.Since(start)

	return scores, nil
}

func (runner *Runner) recordMetrics(ctx context.Context, res *Result) {
	stats := observability.RunStats{
		Commits: int64(res.Build.Commits + res.FailedCommits),
		Skipped: map[string]int64{
			observability.SkipOversize: int64(res.Build.OversizeCommits),
			observability.SkipEmpty:    int64(res.Build.EmptyCommits),
			observability.SkipFailed:   int64(res.FailedCommits),
		},
		StageDurations:   res.Durations,
		Vertices:         int64(res.Graph.Order()),
		PairsIncremented: int64(res.Build.PairsIncremented),
		UnreachablePairs: int64(res.Scores.Stats().UnreachablePairs),
	}

	if cr, ok := runner.Provider.(cacheReporter); ok {
		cache := cr.CacheStats()
		stats.TreeCacheHits = cache.Hits
		stats.TreeCacheMisses = cache.Misses
	}

	runner.Config.Metrics.RecordRun(ctx, stats)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}
