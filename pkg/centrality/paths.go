package centrality

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// noVertex marks an unreachable vertex in predecessor and next-hop tables.
const noVertex = -1

// ShortestPaths answers shortest-path queries over a row-major distance
// matrix (see cochange.Graph.Matrix). Path is safe for concurrent use once
// Prepare has returned.
type ShortestPaths interface {
	// Prepare solves the matrix using up to workers goroutines.
	Prepare(ctx context.Context, dist []float64, n, workers int) error
	// Path returns the vertices from source to target inclusive, or nil when
	// target is unreachable.
	Path(source, target int) []int
}

// NewShortestPaths returns the implementation of a strategy.
func NewShortestPaths(s Strategy) (ShortestPaths, error) {
	switch s {
	case StrategyDijkstra, "":
		return &Dijkstra{}, nil
	case StrategyFloydWarshall:
		return &FloydWarshall{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Dijkstra runs one dense-array Dijkstra per source, O(V²) each, keeping a
// predecessor row per source. The unsettled vertex with the smallest
// distance is settled next; ties go to the smaller index. Relaxation follows
// preferred, so among equally short paths the one with more hops is kept.
type Dijkstra struct {
	n    int
	pred []int32
}

// Prepare implements ShortestPaths.
func (d *Dijkstra) Prepare(ctx context.Context, dist []float64, n, workers int) error {
	checkMatrix(dist, n)

	d.n = n
	d.pred = make([]int32, n*n)

	return forEachSource(ctx, n, workers, func(int) func(int) {
		best := make([]float64, n)
		hops := make([]int32, n)
		settled := make([]bool, n)

		return func(source int) {
			d.solve(dist, source, best, hops, settled)
		}
	})
}

func (d *Dijkstra) solve(dist []float64, source int, best []float64, hops []int32, settled []bool) {
	n := d.n
	pred := d.pred[source*n : (source+1)*n]

	for v := range n {
		best[v] = math.Inf(1)
		hops[v] = 0
		settled[v] = false
		pred[v] = noVertex
	}

	best[source] = 0

	for range n {
		u := noVertex

		for v := range n {
			if !settled[v] && (u == noVertex || best[v] < best[u]) {
				u = v
			}
		}

		if u == noVertex || math.IsInf(best[u], 1) {
			return
		}

		settled[u] = true
		row := dist[u*n : (u+1)*n]

		for v := range n {
			if settled[v] || math.IsInf(row[v], 1) {
				continue
			}

			candidate := best[u] + row[v]
			if preferred(candidate, hops[u]+1, best[v], hops[v]) {
				best[v] = candidate
				hops[v] = hops[u] + 1
				pred[v] = int32(u)
			}
		}
	}
}

// Path implements ShortestPaths.
func (d *Dijkstra) Path(source, target int) []int {
	if source == target {
		return []int{source}
	}

	pred := d.pred[source*d.n : (source+1)*d.n]
	if pred[target] == noVertex {
		return nil
	}

	var reversed []int

	for v := target; v != source; v = int(pred[v]) {
		reversed = append(reversed, v)
	}

	reversed = append(reversed, source)

	path := make([]int, len(reversed))
	for i, v := range reversed {
		path[len(reversed)-1-i] = v
	}

	return path
}

// FloydWarshall runs the O(V³) all-pairs recurrence and keeps a next-hop
// matrix. For each intermediate vertex the rows are independent, so they are
// split across workers.
type FloydWarshall struct {
	n    int
	next []int32
}

// Prepare implements ShortestPaths.
func (f *FloydWarshall) Prepare(ctx context.Context, dist []float64, n, workers int) error {
	checkMatrix(dist, n)

	f.n = n
	f.next = make([]int32, n*n)
	d := append([]float64(nil), dist...)
	hops := make([]int32, n*n)

	for i := range n {
		for j := range n {
			switch {
			case i == j:
				f.next[i*n+j] = int32(j)
				d[i*n+j] = 0
			case math.IsInf(d[i*n+j], 1):
				f.next[i*n+j] = noVertex
			default:
				f.next[i*n+j] = int32(j)
				hops[i*n+j] = 1
			}
		}
	}

	for k := range n {
		if err := ctx.Err(); err != nil {
			return err
		}

		rowK := d[k*n : (k+1)*n]
		hopsK := hops[k*n : (k+1)*n]

		relax := func(i int) {
			dik := d[i*n+k]
			if i == k || math.IsInf(dik, 1) {
				return
			}

			row := d[i*n : (i+1)*n]
			rowHops := hops[i*n : (i+1)*n]
			next := f.next[i*n : (i+1)*n]
			hik := rowHops[k]

			for j := range n {
				if j == i || j == k || math.IsInf(rowK[j], 1) {
					continue
				}

				candidate := dik + rowK[j]
				if preferred(candidate, hik+hopsK[j], row[j], rowHops[j]) {
					row[j] = candidate
					rowHops[j] = hik + hopsK[j]
					next[j] = next[k]
				}
			}
		}

		parallelRange(n, workers, relax)
	}

	return nil
}

// Path implements ShortestPaths.
func (f *FloydWarshall) Path(source, target int) []int {
	if f.next[source*f.n+target] == noVertex {
		return nil
	}

	path := []int{source}

	for u := source; u != target; {
		u = int(f.next[u*f.n+target])
		path = append(path, u)
	}

	return path
}

// preferred reports whether a candidate path of the given length and hop
// count should replace the current one. Lengths within DistanceEpsilon of
// each other, relative to the larger, are equal; among equal lengths the
// path with more hops wins, so a detour through a shared neighbour beats an
// equally long direct edge.
func preferred(candidate float64, candidateHops int32, current float64, currentHops int32) bool {
	if math.IsInf(current, 1) {
		return !math.IsInf(candidate, 1)
	}

	tolerance := DistanceEpsilon * math.Max(candidate, current)

	switch {
	case candidate < current-tolerance:
		return true
	case candidate > current+tolerance:
		return false
	default:
		return candidateHops > currentHops
	}
}

func checkMatrix(dist []float64, n int) {
	if len(dist) != n*n {
		panic(fmt.Sprintf("centrality: distance matrix has %d cells, want %d", len(dist), n*n))
	}
}

// forEachSource calls a per-worker function for every source, sources
// strided across workers so that the short tail rows are shared evenly.
// newWorker runs once per goroutine to allocate its scratch space.
func forEachSource(ctx context.Context, n, workers int, newWorker func(worker int) func(source int)) error {
	workers = max(1, min(workers, n))

	errs := make([]error, workers)

	var wg sync.WaitGroup

	for w := range workers {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			run := newWorker(w)

			for source := w; source < n; source += workers {
				if err := ctx.Err(); err != nil {
					errs[w] = err

					return
				}

				run(source)
			}
		}(w)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// parallelRange calls fn for 0..n-1 split into contiguous chunks.
func parallelRange(n, workers int, fn func(i int)) {
	if workers <= 1 || n < 2 {
		for i := range n {
			fn(i)
		}

		return
	}

	workers = min(workers, n)
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup

	for w := range workers {
		start := w * chunkSize
		end := min(start+chunkSize, n)

		if start >= end {
			continue
		}

		wg.Add(1)

		go func(start, end int) {
			defer wg.Done()

			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}

	wg.Wait()
}
