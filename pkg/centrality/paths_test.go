package centrality_test

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/Sumatoshi-tech/firstglance/pkg/centrality"
	"github.com/Sumatoshi-tech/firstglance/pkg/cochange"
)

func prepare(t *testing.T, strategy centrality.Strategy, dist []float64, n, workers int) centrality.ShortestPaths {
	t.Helper()

	sp, err := centrality.NewShortestPaths(strategy)
	require.NoError(t, err)
	require.NoError(t, sp.Prepare(context.Background(), dist, n, workers))

	return sp
}

func pathWeight(g *cochange.Graph, p []int) float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		total += g.WeightAt(p[i-1], p[i])
	}

	return total
}

func TestShortestPathsMatchGonum(t *testing.T) {
	t.Parallel()

	for seed := range uint64(6) {
		g := randomHistory(t, 40+seed, 15, 35)
		n := g.Order()

		reference := path.DijkstraAllPaths(g.Underlying())

		for _, strategy := range centrality.Strategies() {
			sp := prepare(t, strategy, g.Matrix(), n, 2)

			for s := range n {
				for d := range n {
					if s == d {
						continue
					}

					got := sp.Path(s, d)
					require.NotNil(t, got)
					assert.Equal(t, s, got[0])
					assert.Equal(t, d, got[len(got)-1])

					_, want, _ := reference.Between(int64(s), int64(d))
					assert.InDelta(t, want, pathWeight(g, got), 1e-9, "%s %d->%d", strategy, s, d)
				}
			}
		}
	}
}

func TestShortestPathsUniqueAgree(t *testing.T) {
	t.Parallel()

	// Every edge weighs a distinct power of two, so distinct edge sets, and
	// therefore distinct simple paths, never share a length.
	const n = 6

	dist := make([]float64, n*n)
	exponents := []int{9, 2, 14, 0, 7, 11, 4, 13, 1, 8, 12, 3, 10, 6, 5}
	e := 0

	for i := range n {
		for j := i + 1; j < n; j++ {
			w := math.Ldexp(1, exponents[e])
			dist[i*n+j], dist[j*n+i] = w, w
			e++
		}
	}

	dijkstra := prepare(t, centrality.StrategyDijkstra, dist, n, 1)
	floyd := prepare(t, centrality.StrategyFloydWarshall, dist, n, 3)

	for s := range n {
		for d := range n {
			forward := dijkstra.Path(s, d)
			assert.Equal(t, forward, floyd.Path(s, d), "%d->%d", s, d)

			backward := slices.Clone(dijkstra.Path(d, s))
			slices.Reverse(backward)
			assert.Equal(t, forward, backward, "path %d->%d is the reverse of %d->%d", s, d, d, s)
		}
	}
}

func TestShortestPathsUnreachable(t *testing.T) {
	t.Parallel()

	inf := math.Inf(1)
	// 0-1 connected, 2 isolated.
	dist := []float64{
		0, 1, inf,
		1, 0, inf,
		inf, inf, 0,
	}

	for _, strategy := range centrality.Strategies() {
		sp := prepare(t, strategy, dist, 3, 1)

		assert.Equal(t, []int{0, 1}, sp.Path(0, 1), strategy)
		assert.Nil(t, sp.Path(0, 2), strategy)
		assert.Nil(t, sp.Path(2, 1), strategy)
		assert.Equal(t, []int{2}, sp.Path(2, 2), strategy)
	}
}

func TestShortestPathsPrefersLowerIndexOnTie(t *testing.T) {
	t.Parallel()

	// 0->3 via 1 or via 2 costs 2 either way; the direct edge costs 5.
	dist := []float64{
		0, 1, 1, 5,
		1, 0, 9, 1,
		1, 9, 0, 1,
		5, 1, 1, 0,
	}

	sp := prepare(t, centrality.StrategyDijkstra, dist, 4, 1)
	assert.Equal(t, []int{0, 1, 3}, sp.Path(0, 3))
}

func TestShortestPathsPreferMoreHopsOnTie(t *testing.T) {
	t.Parallel()

	// 0->3 costs 3 directly, via 1 and via 1,2.
	dist := []float64{
		0, 1, 9, 3,
		1, 0, 1, 2,
		9, 1, 0, 1,
		3, 2, 1, 0,
	}

	for _, strategy := range centrality.Strategies() {
		for _, workers := range []int{1, 4} {
			sp := prepare(t, strategy, dist, 4, workers)
			assert.Equal(t, []int{0, 1, 2, 3}, sp.Path(0, 3), "%s/%d", strategy, workers)
			assert.Equal(t, []int{3, 2, 1, 0}, sp.Path(3, 0), "%s/%d", strategy, workers)
		}
	}
}

func TestShortestPathsBreakTieUnlikeGonum(t *testing.T) {
	t.Parallel()

	g := build(t, []string{"A", "B", "C"}, []string{"A", "B"}, []string{"B", "C"})

	reference, weight := path.DijkstraFrom(simple.Node(0), g.Underlying()).To(2)
	require.Len(t, reference, 2, "gonum keeps the direct edge on an exact tie")

	for _, strategy := range centrality.Strategies() {
		got := prepare(t, strategy, g.Matrix(), g.Order(), 1).Path(0, 2)
		assert.Equal(t, []int{0, 1, 2}, got, strategy)
		assert.InDelta(t, weight, pathWeight(g, got), 1e-12, strategy)
	}
}

func TestShortestPathsMatrixSizeMismatchPanics(t *testing.T) {
	t.Parallel()

	for _, strategy := range centrality.Strategies() {
		sp, err := centrality.NewShortestPaths(strategy)
		require.NoError(t, err)

		assert.Panics(t, func() {
			_ = sp.Prepare(context.Background(), []float64{0, 1}, 2, 1)
		})
	}
}
