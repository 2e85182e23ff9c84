// Package order sorts directory entries for display.
package order

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/justyntemme/multipane/internal/model"
)

// Column is the attribute entries are sorted by.
type Column int

const (
	ByName Column = iota
	BySize
	ByType
	ByModified
)

func (c Column) String() string {
	switch c {
	case BySize:
		return "size"
	case ByType:
		return "type"
	case ByModified:
		return "modified"
	default:
		return "name"
	}
}

// ParseColumn maps a config or flag value to a Column. Unknown values sort by name.
func ParseColumn(s string) Column {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "size":
		return BySize
	case "type", "kind":
		return ByType
	case "modified", "date", "mtime":
		return ByModified
	default:
		return ByName
	}
}

// Policy compares entries. Name comparison is case-insensitive and, when a
// collator could be built for the locale, locale-aware.
// A Policy is safe for concurrent use.
type Policy struct {
	mu       sync.Mutex
	collator *collate.Collator
	fold     cases.Caser
}

// NewPolicy builds a Policy for a BCP 47 locale ("" or "und" for the root
// collation). An unparsable locale falls back to plain case folding.
func NewPolicy(locale string) *Policy {
	p := &Policy{fold: cases.Fold()}
	if locale == "" {
		locale = "und"
	}
	if tag, err := language.Parse(locale); err == nil {
		p.collator = collate.New(tag, collate.IgnoreCase)
	}
	return p
}

var defaultPolicy = NewPolicy("")

// Default returns the root-locale policy.
func Default() *Policy { return defaultPolicy }

// Compare orders a before b (<0), after (>0) or equal (0) for display.
// Directories come first whether the column is ascending or descending;
// within a group the column decides, reversed for desc, ties broken by name.
func (p *Policy) Compare(a, b model.Entry, col Column, desc bool) int {
	if a.IsDir != b.IsDir {
		if a.IsDir {
			return -1
		}
		return 1
	}

	var c int
	switch col {
	case BySize:
		c = cmp.Compare(a.SizeBytes(), b.SizeBytes())
	case ByModified:
		c = a.ModifiedAt().Compare(b.ModifiedAt())
	case ByType:
		c = p.compareText(a.TypeLabel, b.TypeLabel)
	}
	if c == 0 {
		c = p.compareNames(a.Name, b.Name)
	}
	if desc {
		return -c
	}
	return c
}

// Less reports whether a sorts before b.
func (p *Policy) Less(a, b model.Entry, col Column, desc bool) bool {
	return p.Compare(a, b, col, desc) < 0
}

// Sort orders entries in place. The sort is stable.
func (p *Policy) Sort(entries []model.Entry, col Column, desc bool) {
	slices.SortStableFunc(entries, func(a, b model.Entry) int {
		return p.Compare(a, b, col, desc)
	})
}

// SortResults orders search results in place, grouping by nothing but the column.
func (p *Policy) SortResults(results []model.SearchResult, col Column, desc bool) {
	slices.SortStableFunc(results, func(a, b model.SearchResult) int {
		return p.Compare(a.Entry, b.Entry, col, desc)
	})
}

func (p *Policy) compareNames(a, b string) int {
	if c := p.compareText(a, b); c != 0 {
		return c
	}
	// Collation equal (e.g. only case differs): keep a deterministic order.
	return strings.Compare(a, b)
}

func (p *Policy) compareText(a, b string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.collator != nil {
		return p.collator.CompareString(a, b)
	}
	return strings.Compare(p.fold.String(a), p.fold.String(b))
}
