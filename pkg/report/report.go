// Package report ranks centrality scores and renders the ranked list.
package report

import (
	"sort"
	"time"

	"github.com/Sumatoshi-tech/firstglance/pkg/centrality"
)

// Entry is one ranked file.
type Entry struct {
	Path  string `json:"path"  yaml:"path"`
	Score int    `json:"score" yaml:"score"`
}

// Report is the ranked list together with the run that produced it.
type Report struct {
	Repository  string    `json:"repository,omitempty"  yaml:"repository,omitempty"`
	Reference   string    `json:"reference,omitempty"   yaml:"reference,omitempty"`
	Strategy    string    `json:"strategy,omitempty"    yaml:"strategy,omitempty"`
	GeneratedAt time.Time `json:"generated_at"          yaml:"generated_at"`
	Files       []Entry   `json:"files"                 yaml:"files"`
}

// Rank orders every vertex by descending score. Equal scores keep the
// table's path order.
func Rank(scores *centrality.Scores) []Entry {
	entries := make([]Entry, scores.Len())

	for i := range entries {
		entries[i] = Entry{Path: scores.Path(i), Score: scores.At(i)}
	}

	sortEntries(entries)

	return entries
}

// Top keeps the first n entries; n <= 0 keeps all of them.
func Top(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}

	return entries[:n]
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}
