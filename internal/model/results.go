package model

// SearchResult is a match plus the folder that holds it, relative to the
// search root ("" when the match sits directly in the root).
type SearchResult struct {
	Entry
	RelFolder string
}

// SearchResultSet accumulates the results of one search. It lives next to
// the EntryModel and is thrown away when search mode ends.
type SearchResultSet struct {
	root      string
	pattern   string
	items     []SearchResult
	index     map[string]int
	truncated bool
	done      bool
}

func NewSearchResultSet() *SearchResultSet {
	return &SearchResultSet{index: make(map[string]int)}
}

// Reset starts a new result set for a search under root.
func (s *SearchResultSet) Reset(root, pattern string) {
	s.root = root
	s.pattern = pattern
	s.items = nil
	s.index = make(map[string]int)
	s.truncated = false
	s.done = false
}

func (s *SearchResultSet) Root() string    { return s.root }
func (s *SearchResultSet) Pattern() string { return s.pattern }
func (s *SearchResultSet) Len() int        { return len(s.items) }

// Append adds a batch and returns the index of its first result.
func (s *SearchResultSet) Append(batch []SearchResult) int {
	first := len(s.items)
	for _, r := range batch {
		s.index[r.Path] = len(s.items)
		s.items = append(s.items, r)
	}
	return first
}

// IndexOf returns the position of the result for path.
func (s *SearchResultSet) IndexOf(path string) (int, bool) {
	i, ok := s.index[path]
	return i, ok
}

// UnresolvedIn returns paths of results in [first, last] missing from cache.
// Bounds are clamped.
func (s *SearchResultSet) UnresolvedIn(first, last int, cache *ResolverCache) []string {
	first = max(first, 0)
	last = min(last, len(s.items)-1)
	var paths []string
	for i := first; i <= last; i++ {
		if p := s.items[i].Path; !cache.Has(p) {
			paths = append(paths, p)
		}
	}
	return paths
}

// Items returns a copy of the results, with attributes from cache applied
// when cache is non-nil.
func (s *SearchResultSet) Items(cache *ResolverCache) []SearchResult {
	out := make([]SearchResult, len(s.items))
	for i, r := range s.items {
		if cache != nil {
			if a, ok := cache.Get(r.Path); ok {
				r.Entry = r.Entry.WithAttr(a)
			}
		}
		out[i] = r
	}
	return out
}

func (s *SearchResultSet) MarkTruncated() { s.truncated = true }
func (s *SearchResultSet) Truncated() bool { return s.truncated }
func (s *SearchResultSet) MarkDone()      { s.done = true }
func (s *SearchResultSet) Done() bool     { return s.done }
