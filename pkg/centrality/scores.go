package centrality

import "fmt"

// Stats describes one evaluation run.
type Stats struct {
	Vertices         int
	PairsEvaluated   int
	UnreachablePairs int
}

// Scores is the per-vertex centrality tally of one evaluation. Vertex i is
// Paths()[i].
type Scores struct {
	paths  []string
	values []int
	stats  Stats
}

// NewScores returns a zeroed table over paths.
func NewScores(paths []string) *Scores {
	return &Scores{
		paths:  append([]string(nil), paths...),
		values: make([]int, len(paths)),
	}
}

// Len returns the number of vertices.
func (s *Scores) Len() int {
	return len(s.paths)
}

// Paths returns a copy of the vertex paths.
func (s *Scores) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Path returns the path of vertex i.
func (s *Scores) Path(i int) string {
	return s.paths[i]
}

// At returns the score of vertex i.
func (s *Scores) At(i int) int {
	return s.values[i]
}

// Get returns the score of path.
func (s *Scores) Get(path string) (int, bool) {
	for i, p := range s.paths {
		if p == path {
			return s.values[i], true
		}
	}

	return 0, false
}

// Stats returns the run statistics.
func (s *Scores) Stats() Stats {
	return s.stats
}

// Snapshot returns the scores keyed by path. The map is a copy.
func (s *Scores) Snapshot() map[string]int {
	out := make(map[string]int, len(s.paths))

	for i, p := range s.paths {
		out[p] = s.values[i]
	}

	return out
}

func (s *Scores) add(i, delta int) {
	s.values[i] += delta
}

// merge sums another partial table over the same vertices into s.
func (s *Scores) merge(other *Scores) {
	if len(other.values) != len(s.values) {
		panic(fmt.Sprintf("centrality: merging %d scores into %d", len(other.values), len(s.values)))
	}

	for i, v := range other.values {
		s.values[i] += v
	}

	s.stats.PairsEvaluated += other.stats.PairsEvaluated
	s.stats.UnreachablePairs += other.stats.UnreachablePairs
}
