package history

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/src-d/enry/v2"
)

// ErrInvalidIncludePattern is returned when the include expression does not compile.
var ErrInvalidIncludePattern = errors.New("invalid include pattern")

// DefaultExcludeSubstrings drops test code from the vertex set.
var DefaultExcludeSubstrings = []string{"test"}

// FilterConfig is the declarative form of a Filter.
type FilterConfig struct {
	ExcludeSubstrings []string
	ExcludePrefixes   []string
	SkipVendor        bool
	IncludeRegexp     string
	Languages         []string
}

// Filter decides which paths of the reference tree become graph vertices.
type Filter struct {
	excludeSubstrings []string
	excludePrefixes   []string
	skipVendor        bool
	include           *regexp.Regexp
	languages         map[string]bool
}

// NewFilter compiles a FilterConfig.
func NewFilter(cfg FilterConfig) (*Filter, error) {
	f := &Filter{
		excludeSubstrings: nonEmpty(cfg.ExcludeSubstrings),
		excludePrefixes:   nonEmpty(cfg.ExcludePrefixes),
		skipVendor:        cfg.SkipVendor,
	}

	if cfg.IncludeRegexp != "" {
		re, err := regexp.Compile(cfg.IncludeRegexp)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidIncludePattern, err)
		}

		f.include = re
	}

	if len(cfg.Languages) > 0 {
		f.languages = make(map[string]bool, len(cfg.Languages))

		for _, lang := range cfg.Languages {
			lang = strings.ToLower(strings.TrimSpace(lang))
			if lang != "" {
				f.languages[lang] = true
			}
		}
	}

	return f, nil
}

// Match reports whether path passes every configured rule.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}

	for _, sub := range f.excludeSubstrings {
		if strings.Contains(name, sub) {
			return false
		}
	}

	for _, prefix := range f.excludePrefixes {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}

	if f.skipVendor && enry.IsVendor(name) {
		return false
	}

	if f.include != nil && !f.include.MatchString(name) {
		return false
	}

	if len(f.languages) > 0 {
		// Detection by file name only: the vertex set is computed from the tree
		// without reading blobs.
		lang := enry.GetLanguage(path.Base(name), nil)
		if lang == "" || !f.languages[strings.ToLower(lang)] {
			return false
		}
	}

	return true
}

// Apply returns the sorted, de-duplicated subset of paths that match.
func (f *Filter) Apply(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))

	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}

		seen[p] = struct{}{}

		if f.Match(p) {
			out = append(out, p)
		}
	}

	sort.Strings(out)

	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}
