// Package centrality scores the vertices of a co-change graph by how often
// they lie inside the shortest path between two other vertices.
//
// The evaluation is explicit all-pairs: every unordered pair of vertices is
// resolved to one shortest path and each interior vertex of that path gains
// PairWeight. Scores are therefore even and bounded by n(n-1).
package centrality

import (
	"context"

	"github.com/Sumatoshi-tech/firstglance/pkg/cochange"
)

// Evaluator computes centrality scores.
type Evaluator struct {
	opts Options
}

// NewEvaluator validates opts and returns an Evaluator.
func NewEvaluator(opts Options) (*Evaluator, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyDijkstra
	}

	if opts.Workers == 0 {
		opts.Workers = 1
	}

	err := opts.Validate()
	if err != nil {
		return nil, err
	}

	return &Evaluator{opts: opts}, nil
}

// Options returns the effective options.
func (e *Evaluator) Options() Options {
	return e.opts
}

// Evaluate scores every vertex of g. Context cancellation is observed once
// per source vertex.
func (e *Evaluator) Evaluate(ctx context.Context, g *cochange.Graph) (*Scores, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := g.Order()
	scores := NewScores(g.Paths())
	scores.stats.Vertices = n

	if n < 3 {
		// No pair has room for an interior vertex.
		scores.stats.PairsEvaluated = n * (n - 1) / 2

		return scores, nil
	}

	sp, err := NewShortestPaths(e.opts.Strategy)
	if err != nil {
		return nil, err
	}

	err = sp.Prepare(ctx, g.Matrix(), n, e.opts.Workers)
	if err != nil {
		return nil, err
	}

	return e.tally(ctx, sp, scores)
}

// tally walks every unordered pair. Each worker owns a partial table; the
// partials are summed once all workers finish, so the result does not depend
// on scheduling.
func (e *Evaluator) tally(ctx context.Context, sp ShortestPaths, scores *Scores) (*Scores, error) {
	n := scores.Len()
	workers := max(1, min(e.opts.Workers, n))
	partials := make([]*Scores, workers)

	err := forEachSource(ctx, n, workers, func(worker int) func(int) {
		partial := &Scores{values: make([]int, n)}
		partials[worker] = partial

		return func(source int) {
			for target := source + 1; target < n; target++ {
				partial.stats.PairsEvaluated++

				path := sp.Path(source, target)
				if path == nil {
					partial.stats.UnreachablePairs++

					continue
				}

				for _, v := range path[1 : len(path)-1] {
					partial.add(v, PairWeight)
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	for _, partial := range partials {
		if partial != nil {
			scores.merge(partial)
		}
	}

	return scores, nil
}
