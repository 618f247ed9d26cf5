package cochange

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

// Stats summarises what a Builder consumed.
type Stats struct {
	Commits          int // AddCommit calls.
	OversizeCommits  int // Commits skipped by MaxCommitFiles.
	EmptyCommits     int // Commits that touched fewer than two vertices.
	PairsIncremented int // Edge increments applied.
}

// Builder accumulates co-change counts commit by commit.
type Builder struct {
	paths    []string
	index    map[string]int
	g        *simple.UndirectedMatrix
	opts     Options
	stats    Stats
	finished bool
}

// NewBuilder creates a builder over the distinct entries of files with every
// pair at the baseline weight.
func NewBuilder(files []string, opts Options) (*Builder, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}

	paths := uniqueSorted(files)
	index := make(map[string]int, len(paths))

	for i, p := range paths {
		index[p] = i
	}

	return &Builder{
		paths: paths,
		index: index,
		g:     newMatrix(len(paths), opts.Baseline),
		opts:  opts,
	}, nil
}

// AddCommit counts one commit's changed paths. Paths that are not vertices
// are ignored. It panics after Finish.
func (b *Builder) AddCommit(changed []string) {
	if b.finished {
		panic("cochange: AddCommit after Finish")
	}

	b.stats.Commits++

	distinct := uniqueSorted(changed)
	if b.opts.MaxCommitFiles > 0 && len(distinct) > b.opts.MaxCommitFiles {
		b.stats.OversizeCommits++

		return
	}

	vertices := make([]int, 0, len(distinct))

	for _, p := range distinct {
		if i, ok := b.index[p]; ok {
			vertices = append(vertices, i)
		}
	}

	if len(vertices) < 2 {
		b.stats.EmptyCommits++

		return
	}

	for x := range vertices {
		for y := x + 1; y < len(vertices); y++ {
			b.add(vertices[x], vertices[y], b.opts.Increment)
		}
	}
}

func (b *Builder) add(i, j int, delta float64) {
	w, _ := b.g.Weight(int64(i), int64(j))
	b.g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: w + delta})
	b.stats.PairsIncremented++
}

// Stats returns the accumulated statistics.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Finish inverts every count into a distance and returns the graph. The
// builder cannot be used afterwards.
func (b *Builder) Finish() *Graph {
	if b.finished {
		panic("cochange: Finish called twice")
	}

	b.finished = true
	n := len(b.paths)

	for i := range n {
		for j := i + 1; j < n; j++ {
			w, _ := b.g.Weight(int64(i), int64(j))
			if !(w > 0) || math.IsInf(w, 0) {
				panic(fmt.Sprintf("cochange: weight %v between %q and %q", w, b.paths[i], b.paths[j]))
			}

			b.g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: 1 / w})
		}
	}

	return &Graph{paths: b.paths, index: b.index, g: b.g, opts: b.opts}
}

// Build is the one-shot form of NewBuilder, AddCommit and Finish.
func Build(files []string, changeSets [][]string, opts Options) (*Graph, error) {
	b, err := NewBuilder(files, opts)
	if err != nil {
		return nil, err
	}

	for _, changed := range changeSets {
		b.AddCommit(changed)
	}

	return b.Finish(), nil
}

func uniqueSorted(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)

	w := 0

	for i, v := range out {
		if i > 0 && v == out[w-1] {
			continue
		}

		out[w] = v
		w++
	}

	return out[:w]
}
