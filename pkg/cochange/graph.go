// Package cochange builds the co-change graph: a complete weighted graph over
// the files of a reference tree in which the distance between two files
// shrinks every time a commit changes both of them.
package cochange

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is a finished co-change graph. Vertex i is Paths()[i]; paths are
// sorted, so vertex order is deterministic for a given file set.
type Graph struct {
	paths []string
	index map[string]int
	g     *simple.UndirectedMatrix
	opts  Options
}

func newMatrix(n int, baseline float64) *simple.UndirectedMatrix {
	if n == 0 {
		return nil
	}

	// Every pair starts connected at the baseline; +Inf marks an absent edge.
	return simple.NewUndirectedMatrix(n, baseline, 0, math.Inf(1))
}

// Order returns the number of vertices.
func (g *Graph) Order() int {
	return len(g.paths)
}

// Size returns the number of edges: n(n-1)/2 for a complete graph.
func (g *Graph) Size() int {
	n := len(g.paths)

	return n * (n - 1) / 2
}

// Paths returns a copy of the vertex paths in vertex order.
func (g *Graph) Paths() []string {
	return append([]string(nil), g.paths...)
}

// Index returns the vertex of path.
func (g *Graph) Index(path string) (int, bool) {
	i, ok := g.index[path]

	return i, ok
}

// Path returns the path of vertex i.
func (g *Graph) Path(i int) string {
	return g.paths[i]
}

// Weight returns the distance between two paths. ok is false when either
// path is not a vertex or both are the same path.
func (g *Graph) Weight(a, b string) (float64, bool) {
	i, okA := g.index[a]
	j, okB := g.index[b]

	if !okA || !okB || i == j {
		return 0, false
	}

	return g.WeightAt(i, j), true
}

// WeightAt returns the distance between vertices i and j; 0 when i == j.
// It panics on an out-of-range vertex or a missing edge.
func (g *Graph) WeightAt(i, j int) float64 {
	if i == j {
		return 0
	}

	w, ok := g.g.Weight(int64(i), int64(j))
	if !ok {
		panic(fmt.Sprintf("cochange: no edge between vertex %d and %d", i, j))
	}

	return w
}

// Options returns the options the graph was built with.
func (g *Graph) Options() Options {
	return g.opts
}

// CoChanges recovers how many commits changed both paths.
func (g *Graph) CoChanges(a, b string) float64 {
	w, ok := g.Weight(a, b)
	if !ok || g.opts.Increment == 0 {
		return 0
	}

	return math.Round((1/w-g.opts.Baseline)/g.opts.Increment*1e9) / 1e9
}

// Matrix returns a row-major n*n copy of the distances with zeros on the
// diagonal, the layout shortest-path code iterates over.
func (g *Graph) Matrix() []float64 {
	n := len(g.paths)
	out := make([]float64, n*n)

	for i := range n {
		for j := i + 1; j < n; j++ {
			w := g.WeightAt(i, j)
			out[i*n+j] = w
			out[j*n+i] = w
		}
	}

	return out
}

// Underlying returns the gonum view of the graph. Node IDs are vertex indices.
func (g *Graph) Underlying() graph.WeightedUndirected {
	if g.g == nil {
		return simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	}

	return g.g
}

// Equal reports whether two graphs have the same vertices and weights.
func (g *Graph) Equal(other *Graph) bool {
	if g.Order() != other.Order() {
		return false
	}

	for i, p := range g.paths {
		if other.paths[i] != p {
			return false
		}
	}

	n := g.Order()

	for i := range n {
		for j := i + 1; j < n; j++ {
			if g.WeightAt(i, j) != other.WeightAt(i, j) {
				return false
			}
		}
	}

	return true
}
