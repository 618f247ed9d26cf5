package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sumatoshi-tech/firstglance/pkg/gitlib"
)

const (
	// DefaultTreeCacheSize is the number of commit trees kept alive between
	// ChangedFiles calls. Walking oldest first, a commit's parent tree is
	// almost always the previous commit's tree.
	DefaultTreeCacheSize = 64
	// minTreeCacheSize keeps both sides of one diff resident.
	minTreeCacheSize = 2
)

// ErrProviderClosed is returned when a closed provider is used.
var ErrProviderClosed = errors.New("history provider is closed")

// GitProvider is the libgit2-backed Provider.
type GitProvider struct {
	mu    sync.Mutex
	repo  *gitlib.Repository
	ref   gitlib.Hash
	opts  Options
	trees *lru.Cache[gitlib.Hash, *gitlib.Tree]

	hits, misses int64
}

// CacheStats reports tree cache lookups since the provider was opened.
type CacheStats struct {
	Hits   int64
	Misses int64
}

var _ Provider = (*GitProvider)(nil)

// OpenGit opens the repository at path and resolves the reference commit.
func OpenGit(path string, opts Options) (*GitProvider, error) {
	repo, err := gitlib.LoadRepository(path)
	if err != nil {
		return nil, err
	}

	ref, err := repo.ResolveCommit(opts.Ref)
	if err != nil {
		repo.Free()

		return nil, fmt.Errorf("resolve reference: %w", err)
	}

	size := opts.TreeCacheSize
	if size <= 0 {
		size = DefaultTreeCacheSize
	}

	size = max(size, minTreeCacheSize)

	trees, err := lru.NewWithEvict(size, func(_ gitlib.Hash, tree *gitlib.Tree) {
		tree.Free()
	})
	if err != nil {
		repo.Free()

		return nil, fmt.Errorf("create tree cache: %w", err)
	}

	return &GitProvider{repo: repo, ref: ref, opts: opts, trees: trees}, nil
}

// Reference returns the resolved reference commit.
func (p *GitProvider) Reference() gitlib.Hash {
	return p.ref
}

// Files implements Provider.
func (p *GitProvider) Files(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.repo == nil {
		return nil, ErrProviderClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := p.commitTree(ctx, p.ref)
	if err != nil {
		return nil, err
	}

	paths, err := tree.Paths()
	if err != nil {
		return nil, fmt.Errorf("list files at %s: %w", p.ref.Short(), err)
	}

	return p.opts.Filter.Apply(paths), nil
}

// Commits implements Provider.
func (p *GitProvider) Commits(ctx context.Context) ([]Commit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.repo == nil {
		return nil, ErrProviderClosed
	}

	loaded, err := gitlib.LoadCommits(ctx, p.repo, gitlib.CommitLoadOptions{
		From:        p.ref.String(),
		Limit:       p.opts.Limit,
		FirstParent: p.opts.FirstParent,
		Since:       p.opts.Since,
	})
	if err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(loaded))

	for i, c := range loaded {
		commits = append(commits, Commit{Hash: c.Hash(), Position: i, When: c.When()})
		c.Free()
	}

	return commits, nil
}

// ChangedFiles implements Provider. Renames are detected; a renamed, copied,
// added or modified entry contributes its new path and a deleted entry its
// old path.
func (p *GitProvider) ChangedFiles(ctx context.Context, commit Commit) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.repo == nil {
		return nil, ErrProviderClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := p.repo.LookupCommit(ctx, commit.Hash)
	if err != nil {
		return nil, err
	}
	defer c.Free()

	var changes gitlib.Changes

	if c.NumParents() == 0 {
		tree, treeErr := p.commitTree(ctx, commit.Hash)
		if treeErr != nil {
			return nil, treeErr
		}

		changes, err = gitlib.InitialTreeChanges(p.repo, tree)
	} else {
		changes, err = p.diffFirstParent(ctx, c)
	}

	if err != nil {
		return nil, fmt.Errorf("changes of %s: %w", commit.Hash.Short(), err)
	}

	return changedPaths(changes), nil
}

func (p *GitProvider) diffFirstParent(ctx context.Context, c *gitlib.Commit) (gitlib.Changes, error) {
	parent, err := c.Parent(0)
	if err != nil {
		return nil, err
	}

	parentHash := parent.Hash()
	parent.Free()

	// Parent first: it becomes the most recently used entry and survives the
	// insertion of the child tree.
	oldTree, err := p.commitTree(ctx, parentHash)
	if err != nil {
		return nil, err
	}

	newTree, err := p.commitTree(ctx, c.Hash())
	if err != nil {
		return nil, err
	}

	return gitlib.TreeDiff(p.repo, oldTree, newTree, true)
}

// commitTree returns the cached tree of a commit. The cache owns the tree.
func (p *GitProvider) commitTree(ctx context.Context, hash gitlib.Hash) (*gitlib.Tree, error) {
	if tree, ok := p.trees.Get(hash); ok {
		p.hits++

		return tree, nil
	}

	p.misses++

	c, err := p.repo.LookupCommit(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer c.Free()

	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	p.trees.Add(hash, tree)

	return tree, nil
}

// CacheStats returns the tree cache hit and miss counts.
func (p *GitProvider) CacheStats() CacheStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return CacheStats{Hits: p.hits, Misses: p.misses}
}

// Close implements Provider. Safe to call more than once.
func (p *GitProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.repo == nil {
		return
	}

	p.trees.Purge()
	p.repo.Free()
	p.repo = nil
}

func changedPaths(changes gitlib.Changes) []string {
	seen := make(map[string]struct{}, len(changes))
	paths := make([]string, 0, len(changes))

	for _, change := range changes {
		name := change.Path()
		if name == "" {
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}
		paths = append(paths, name)
	}

	sort.Strings(paths)

	return paths
}
