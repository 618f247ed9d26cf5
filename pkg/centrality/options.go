package centrality

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DistanceEpsilon is the relative tolerance under which two path lengths
	// count as equal. Equal-length paths are ranked by hop count, longest
	// first, so a vertex that bridges two files as cheaply as their direct
	// edge still lies on their shortest path.
	DistanceEpsilon = 1e-9
	// PairWeight is the score an interior vertex receives per unordered pair:
	// one for each direction of the same undirected path.
	PairWeight = 2
)

// Strategy names an all-pairs shortest-path algorithm.
type Strategy string

// Available strategies.
const (
	StrategyDijkstra      Strategy = "dijkstra"
	StrategyFloydWarshall Strategy = "floyd-warshall"
)

// Strategies lists the accepted strategy names.
func Strategies() []Strategy {
	return []Strategy{StrategyDijkstra, StrategyFloydWarshall}
}

// Sentinel errors for option validation.
var (
	ErrUnknownStrategy = errors.New("unknown shortest-path strategy")
	ErrInvalidWorkers  = errors.New("workers must be >= 1")
)

// Options configures an Evaluator.
type Options struct {
	Strategy Strategy
	Workers  int
}

// DefaultOptions runs Dijkstra on a single goroutine.
func DefaultOptions() Options {
	return Options{Strategy: StrategyDijkstra, Workers: 1}
}

// Validate checks the strategy name and worker count.
func (o Options) Validate() error {
	if _, err := NewShortestPaths(o.Strategy); err != nil {
		return err
	}

	if o.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, o.Workers)
	}

	return nil
}

// ParseStrategy accepts a strategy name case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))

	for _, known := range Strategies() {
		if s == known {
			return s, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
