package model

// EntryModel is the ordered listing of one directory. Rows are only appended
// while a listing runs; Reset starts over for a new root.
//
// EntryModel is not safe for concurrent use. The owning pane serializes
// access; only the attached ResolverCache is shared with the resolver.
type EntryModel struct {
	root  string
	rows  []Entry
	index map[string]int
	cache *ResolverCache
	done  bool
}

func NewEntryModel() *EntryModel {
	return &EntryModel{
		index: make(map[string]int),
		cache: NewResolverCache(),
	}
}

// Reset binds the model to root and discards all rows and cached attributes.
func (m *EntryModel) Reset(root string) {
	m.root = root
	m.rows = nil
	m.index = make(map[string]int)
	m.cache.Clear()
	m.done = false
}

func (m *EntryModel) Root() string { return m.root }

func (m *EntryModel) Cache() *ResolverCache { return m.cache }

// Append adds a batch and returns the row index of its first entry.
func (m *EntryModel) Append(batch []Entry) int {
	first := len(m.rows)
	for _, e := range batch {
		if _, dup := m.index[e.Path]; dup {
			continue
		}
		m.index[e.Path] = len(m.rows)
		m.rows = append(m.rows, e)
	}
	return first
}

// MarkComplete records that the listing pass finished.
func (m *EntryModel) MarkComplete() { m.done = true }

// Complete reports whether the listing pass for Root finished.
func (m *EntryModel) Complete() bool { return m.done }

func (m *EntryModel) Len() int { return len(m.rows) }

// Row returns the entry at i with any resolved attributes applied.
func (m *EntryModel) Row(i int) (Entry, bool) {
	if i < 0 || i >= len(m.rows) {
		return Entry{}, false
	}
	return m.withCache(m.rows[i]), true
}

// RowOf returns the row index of path.
func (m *EntryModel) RowOf(path string) (int, bool) {
	i, ok := m.index[path]
	return i, ok
}

// UnresolvedIn returns paths of rows in [first, last] that have no cached
// attributes yet. Bounds are clamped.
func (m *EntryModel) UnresolvedIn(first, last int) []string {
	if first < 0 {
		first = 0
	}
	if last >= len(m.rows) {
		last = len(m.rows) - 1
	}
	var paths []string
	for i := first; i <= last; i++ {
		p := m.rows[i].Path
		if !m.cache.Has(p) {
			paths = append(paths, p)
		}
	}
	return paths
}

// Entries returns a copy of all rows with resolved attributes applied.
func (m *EntryModel) Entries() []Entry {
	out := make([]Entry, len(m.rows))
	for i, e := range m.rows {
		out[i] = m.withCache(e)
	}
	return out
}

func (m *EntryModel) withCache(e Entry) Entry {
	if a, ok := m.cache.Get(e.Path); ok {
		return e.WithAttr(a)
	}
	return e
}
