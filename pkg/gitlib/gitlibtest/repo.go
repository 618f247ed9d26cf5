// Package gitlibtest builds throwaway git repositories for tests.
package gitlibtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/firstglance/pkg/gitlib"
)

// Repo is a scratch repository in a temporary directory. Commits are spaced
// one hour apart starting from a fixed date so histories are reproducible.
type Repo struct {
	t      testing.TB
	Path   string
	Native *git2go.Repository
	clock  time.Time
}

// New initialises an empty repository that is freed when the test ends.
func New(t testing.TB) *Repo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &Repo{
		t:      t,
		Path:   dir,
		Native: repo,
		clock:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Write creates or overwrites a file in the working directory.
func (r *Repo) Write(name, content string) {
	r.t.Helper()

	path := filepath.Join(r.Path, name)

	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

// Delete removes a file from the working directory.
func (r *Repo) Delete(name string) {
	r.t.Helper()

	require.NoError(r.t, os.Remove(filepath.Join(r.Path, name)))
}

// Rename moves a file in the working directory.
func (r *Repo) Rename(from, to string) {
	r.t.Helper()

	target := filepath.Join(r.Path, to)

	require.NoError(r.t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(r.t, os.Rename(filepath.Join(r.Path, from), target))
}

// Symlink replaces name with a symbolic link pointing at target.
func (r *Repo) Symlink(target, name string) {
	r.t.Helper()

	path := filepath.Join(r.Path, name)

	require.NoError(r.t, os.RemoveAll(path))
	require.NoError(r.t, os.Symlink(target, path))
}

// Touch rewrites each named file with content unique to the next commit, so
// every one of them shows up as changed.
func (r *Repo) Touch(names ...string) {
	r.t.Helper()

	stamp := r.clock.Add(time.Hour).Format(time.RFC3339)

	for _, name := range names {
		r.Write(name, name+" @ "+stamp+"\n")
	}
}

// Commit stages the whole working directory, removals included, and commits
// it on HEAD.
func (r *Repo) Commit(message string) gitlib.Hash {
	r.t.Helper()

	index, err := r.Native.Index()
	require.NoError(r.t, err)

	defer index.Free()

	require.NoError(r.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(r.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(r.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(r.t, err)

	tree, err := r.Native.LookupTree(treeID)
	require.NoError(r.t, err)

	defer tree.Free()

	r.clock = r.clock.Add(time.Hour)
	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: r.clock}

	var parents []*git2go.Commit

	head, err := r.Native.Head()
	if err == nil {
		headCommit, lookupErr := r.Native.LookupCommit(head.Target())
		require.NoError(r.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := r.Native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(r.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

// Clock returns the author time of the most recent commit.
func (r *Repo) Clock() time.Time {
	return r.clock
}

// Open opens the repository through gitlib; it is freed when the test ends.
func (r *Repo) Open() *gitlib.Repository {
	r.t.Helper()

	repo, err := gitlib.OpenRepository(r.Path)
	require.NoError(r.t, err)

	r.t.Cleanup(repo.Free)

	return repo
}
