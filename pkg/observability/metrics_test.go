package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/firstglance/pkg/observability"
)

func newTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumByAttr(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64

	for _, dp := range sum.DataPoints {
		if key == "" {
			total += dp.Value

			continue
		}

		if v, found := dp.Attributes.Value(attribute.Key(key)); found && v.AsString() == value {
			total += dp.Value
		}
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()

	red.RecordRequest(ctx, "firstglance_rank", observability.StatusOK, 100*time.Millisecond)
	red.RecordRequest(ctx, "firstglance_rank", observability.StatusError, time.Second)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumByAttr(t, findMetric(rm, "firstglance.requests.total"), "op", "firstglance_rank"))
	assert.Equal(t, int64(1), sumByAttr(t, findMetric(rm, "firstglance.errors.total"), "", ""))

	hist := findMetric(rm, "firstglance.request.duration.seconds")
	require.NotNil(t, hist)

	data, ok := hist.Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range data.DataPoints {
		count += dp.Count
	}

	assert.Equal(t, uint64(2), count)
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "firstglance_rank")

	assert.Equal(t, int64(1), sumByAttr(t, findMetric(collectMetrics(t, reader), "firstglance.inflight.requests"), "", ""))

	done()

	assert.Equal(t, int64(0), sumByAttr(t, findMetric(collectMetrics(t, reader), "firstglance.inflight.requests"), "", ""))
}

func TestREDMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var red *observability.REDMetrics

	assert.NotPanics(t, func() {
		red.RecordRequest(context.Background(), "op", observability.StatusOK, time.Second)
		red.TrackInflight(context.Background(), "op")()
	})
}

func TestPipelineMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	pm, err := observability.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	pm.RecordRun(context.Background(), observability.RunStats{
		Commits: 12,
		Skipped: map[string]int64{
			observability.SkipOversize: 2,
			observability.SkipEmpty:    3,
		},
		StageDurations: map[string]time.Duration{
			"build":    200 * time.Millisecond,
			"evaluate": time.Second,
		},
		Vertices:         5,
		PairsIncremented: 30,
		UnreachablePairs: 1,
		TreeCacheHits:    11,
		TreeCacheMisses:  12,
	})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(12), sumByAttr(t, findMetric(rm, "firstglance.pipeline.commits.total"), "", ""))
	assert.Equal(t, int64(2), sumByAttr(t, findMetric(rm, "firstglance.pipeline.commits.skipped.total"), "reason", "oversize"))
	assert.Equal(t, int64(3), sumByAttr(t, findMetric(rm, "firstglance.pipeline.commits.skipped.total"), "reason", "empty"))
	assert.Equal(t, int64(30), sumByAttr(t, findMetric(rm, "firstglance.graph.pairs.incremented.total"), "", ""))
	assert.Equal(t, int64(1), sumByAttr(t, findMetric(rm, "firstglance.centrality.unreachable.pairs.total"), "", ""))
	assert.Equal(t, int64(11), sumByAttr(t, findMetric(rm, "firstglance.history.tree_cache.hits.total"), "", ""))
	assert.Equal(t, int64(12), sumByAttr(t, findMetric(rm, "firstglance.history.tree_cache.misses.total"), "", ""))

	vertices := findMetric(rm, "firstglance.graph.vertices")
	require.NotNil(t, vertices)

	gauge, ok := vertices.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(5), gauge.DataPoints[0].Value)

	stages := findMetric(rm, "firstglance.pipeline.stage.duration.seconds")
	require.NotNil(t, stages)

	hist, ok := stages.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var pm *observability.PipelineMetrics

	assert.NotPanics(t, func() {
		pm.RecordRun(context.Background(), observability.RunStats{Commits: 1})
	})
}
