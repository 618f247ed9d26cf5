package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommitsTotal       = "firstglance.pipeline.commits.total"
	metricCommitsSkipped     = "firstglance.pipeline.commits.skipped.total"
	metricStageDuration      = "firstglance.pipeline.stage.duration.seconds"
	metricGraphVertices      = "firstglance.graph.vertices"
	metricGraphPairs         = "firstglance.graph.pairs.incremented.total"
	metricUnreachablePairs   = "firstglance.centrality.unreachable.pairs.total"
	metricTreeCacheHitsTotal = "firstglance.history.tree_cache.hits.total"
	metricTreeCacheMissTotal = "firstglance.history.tree_cache.misses.total"

	attrReason = "reason"
	attrStage  = "stage"

	// SkipOversize marks commits above the changed-files cap.
	SkipOversize = "oversize"

	// SkipEmpty marks commits touching fewer than two ranked files.
	SkipEmpty = "empty"

	// SkipFailed marks commits whose changes could not be read.
	SkipFailed = "failed"
)

// PipelineMetrics holds the instruments recorded once per ranking run.
type PipelineMetrics struct {
	commitsTotal     metric.Int64Counter
	commitsSkipped   metric.Int64Counter
	stageDuration    metric.Float64Histogram
	vertices         metric.Int64Gauge
	pairs            metric.Int64Counter
	unreachablePairs metric.Int64Counter
	treeCacheHits    metric.Int64Counter
	treeCacheMisses  metric.Int64Counter
}

// RunStats summarises one ranking run, decoupled from the pipeline types.
type RunStats struct {
	Commits          int64
	Skipped          map[string]int64
	StageDurations   map[string]time.Duration
	Vertices         int64
	PairsIncremented int64
	UnreachablePairs int64
	TreeCacheHits    int64
	TreeCacheMisses  int64
}

// NewPipelineMetrics creates the pipeline instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	var (
		pm  PipelineMetrics
		err error
	)

	pm.commitsTotal, err = mt.Int64Counter(metricCommitsTotal,
		metric.WithDescription("Commits read from history"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsTotal, err)
	}

	pm.commitsSkipped, err = mt.Int64Counter(metricCommitsSkipped,
		metric.WithDescription("Commits that added no co-change, by reason"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsSkipped, err)
	}

	pm.stageDuration, err = mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	pm.vertices, err = mt.Int64Gauge(metricGraphVertices,
		metric.WithDescription("Files in the co-change graph"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricGraphVertices, err)
	}

	pm.pairs, err = mt.Int64Counter(metricGraphPairs,
		metric.WithDescription("Edge weight increments applied"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricGraphPairs, err)
	}

	pm.unreachablePairs, err = mt.Int64Counter(metricUnreachablePairs,
		metric.WithDescription("Vertex pairs without a finite path"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUnreachablePairs, err)
	}

	pm.treeCacheHits, err = mt.Int64Counter(metricTreeCacheHitsTotal,
		metric.WithDescription("Commit tree cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTreeCacheHitsTotal, err)
	}

	pm.treeCacheMisses, err = mt.Int64Counter(metricTreeCacheMissTotal,
		metric.WithDescription("Commit tree cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTreeCacheMissTotal, err)
	}

	return &pm, nil
}

// RecordRun records the statistics of a completed run.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if pm == nil {
		return
	}

	pm.commitsTotal.Add(ctx, stats.Commits)

	for reason, n := range stats.Skipped {
		pm.commitsSkipped.Add(ctx, n, metric.WithAttributes(attribute.String(attrReason, reason)))
	}

	for stage, d := range stats.StageDurations {
		pm.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrStage, stage)))
	}

	pm.vertices.Record(ctx, stats.Vertices)
	pm.pairs.Add(ctx, stats.PairsIncremented)
	pm.unreachablePairs.Add(ctx, stats.UnreachablePairs)
	pm.treeCacheHits.Add(ctx, stats.TreeCacheHits)
	pm.treeCacheMisses.Add(ctx, stats.TreeCacheMisses)
}
