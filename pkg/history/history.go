// Package history reads a repository's co-change history: the set of files at
// a reference commit and, for every commit reachable from it, the paths that
// commit changed.
package history

import (
	"context"
	"time"

	"github.com/Sumatoshi-tech/firstglance/pkg/gitlib"
)

// Commit identifies one commit of the history in traversal order.
type Commit struct {
	Hash     gitlib.Hash
	Position int // 0 is the oldest commit of the selected range.
	When     time.Time
}

// Provider supplies the inputs of the co-change graph.
type Provider interface {
	// Files returns the sorted paths present at the reference commit after
	// the path filter.
	Files(ctx context.Context) ([]string, error)
	// Commits returns the commits reachable from the reference, oldest first.
	Commits(ctx context.Context) ([]Commit, error)
	// ChangedFiles returns the distinct paths a commit changed relative to its
	// first parent, or every path of its tree for a root commit.
	ChangedFiles(ctx context.Context, commit Commit) ([]string, error)
	// Close releases the underlying repository.
	Close()
}

// Options configures the git-backed provider.
type Options struct {
	Ref           string // Revision to analyse; empty means HEAD.
	FirstParent   bool
	Since         string
	Limit         int
	TreeCacheSize int
	Filter        *Filter
}
