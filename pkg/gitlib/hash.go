// Package gitlib is a thin libgit2 wrapper exposing the commit graph, trees and
// tree-to-tree changes needed to read a repository's co-change history.
package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// shortHashSize is the abbreviated hash length used in log output and errors.
const shortHashSize = 8

// Hash is a git object id. It shares libgit2's layout, so it converts to and
// from an Oid without copying through strings, and it is usable as a map key.
type Hash git2go.Oid

// HashFromOid converts a libgit2 Oid to Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	return Hash(*oid)
}

// ToOid converts Hash back to libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := git2go.Oid(h)

	return &oid
}

// String returns the full hex form.
func (h Hash) String() string {
	return h.ToOid().String()
}

// IsZero reports whether h is the all-zero id, used for "no commit".
func (h Hash) IsZero() bool {
	return h.ToOid().IsZero()
}

// Short returns the abbreviated hex form.
func (h Hash) Short() string {
	return h.String()[:shortHashSize]
}
