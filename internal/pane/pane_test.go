package pane

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/multipane/internal/errs"
	"github.com/justyntemme/multipane/internal/search"
	"github.com/justyntemme/multipane/internal/transfer"
)

const eventTimeout = 5 * time.Second

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// collectUntil reads events until one matches stop, failing after eventTimeout.
func collectUntil(t *testing.T, p *Pane, stop func(Event) bool) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev, ok := <-p.Events():
			require.True(t, ok, "events closed early")
			got = append(got, ev)
			if stop(ev) {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out; saw %d events", len(got))
		}
	}
}

func kindIs(kind EventKind, gen int64) func(Event) bool {
	return func(ev Event) bool { return ev.Kind == kind && (gen == 0 || ev.Gen == gen) }
}

func names(t *testing.T, p *Pane) []string {
	t.Helper()
	var out []string
	for _, e := range p.Snapshot().Entries {
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}

func newPane(t *testing.T, opts Options) *Pane {
	t.Helper()
	p := New(opts)
	t.Cleanup(p.Close)
	return p
}

func TestListingDeliversAllChildren(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 25; i++ {
		touch(t, filepath.Join(dir, "f"+string(rune('a'+i))+".txt"), "x")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	p := newPane(t, Options{ListBatch: 4})
	h := p.BeginListing(dir)
	assert.Equal(t, ListingHandle, h.Kind)

	events := collectUntil(t, p, kindIs(ListingDone, h.Gen))
	appended := 0
	for _, ev := range events {
		if ev.Kind == EntriesAppended {
			assert.Equal(t, h.Gen, ev.Gen)
			assert.LessOrEqual(t, len(ev.Entries), 4)
			assert.Equal(t, appended, ev.First)
			appended += len(ev.Entries)
		}
	}
	assert.Equal(t, 26, appended)

	snap := p.Snapshot()
	assert.Equal(t, dir, snap.Root)
	assert.True(t, snap.Complete)
	assert.Len(t, snap.Entries, 26)
	for _, e := range snap.Entries {
		assert.Nil(t, e.Size, "attributes stay unresolved until requested")
	}
}

func TestListingErrorIsFatal(t *testing.T) {
	p := newPane(t, Options{})
	h := p.BeginListing(filepath.Join(t.TempDir(), "missing"))

	events := collectUntil(t, p, kindIs(ListingError, h.Gen))
	last := events[len(events)-1]
	assert.Equal(t, errs.Fatal, last.Class)
	assert.Error(t, last.Err)
}

func TestNewListingDropsStaleResults(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	for i := 0; i < 50; i++ {
		touch(t, filepath.Join(first, "old"+string(rune('A'+i%26))+string(rune('a'+i/26))), "")
	}
	touch(t, filepath.Join(second, "new.txt"), "")

	p := newPane(t, Options{ListBatch: 1})
	p.BeginListing(first)
	h := p.BeginListing(second)

	collectUntil(t, p, kindIs(ListingDone, h.Gen))
	assert.Equal(t, []string{"new.txt"}, names(t, p))
	assert.Equal(t, h.Gen, p.Snapshot().Gen)
}

func TestRequestVisibleResolvesAttributes(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.bin"), "12345")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d"), 0o755))

	p := newPane(t, Options{})
	h := p.BeginListing(dir)
	collectUntil(t, p, kindIs(ListingDone, h.Gen))

	require.Equal(t, 2, p.RequestVisible(0, 0))
	resolved := map[string]bool{}
	collectUntil(t, p, func(ev Event) bool {
		if ev.Kind == AttributeResolved {
			assert.Equal(t, h.Gen, ev.Gen)
			resolved[ev.Path] = true
		}
		return len(resolved) == 2
	})

	// Already cached: nothing queued.
	assert.Equal(t, 0, p.RequestVisible(0, 1))

	for _, e := range p.Snapshot().Entries {
		require.NotNil(t, e.ModTime, e.Name)
		if e.IsDir {
			assert.Equal(t, uint64(0), e.SizeBytes())
		} else {
			assert.Equal(t, uint64(5), e.SizeBytes())
		}
	}
}

func TestSearchModeAndClear(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "top.go"), "")
	touch(t, filepath.Join(dir, "pkg", "inner.go"), "")
	touch(t, filepath.Join(dir, "pkg", "readme.md"), "")

	p := newPane(t, Options{})
	lh := p.BeginListing(dir)
	collectUntil(t, p, kindIs(ListingDone, lh.Gen))

	sh := p.BeginSearch("*.go")
	assert.Equal(t, SearchHandle, sh.Kind)
	collectUntil(t, p, kindIs(SearchDone, sh.Gen))

	snap := p.Snapshot()
	require.True(t, snap.Searching)
	assert.Equal(t, "*.go", snap.Search.Pattern)
	assert.True(t, snap.Search.Done)
	assert.False(t, snap.Search.Truncated)
	var found []string
	for _, r := range snap.Search.Results {
		found = append(found, filepath.Join(r.RelFolder, r.Name))
	}
	sort.Strings(found)
	assert.Equal(t, []string{filepath.Join("pkg", "inner.go"), "top.go"}, found)

	assert.Equal(t, 2, p.RequestVisible(0, 1))

	p.ClearSearch()
	snap = p.Snapshot()
	assert.False(t, snap.Searching)
	assert.Len(t, snap.Entries, 2)
}

func TestSearchTruncation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		touch(t, filepath.Join(dir, string(rune('a'+i))+".log"), "")
	}

	p := newPane(t, Options{Search: search.NewEngine(1, 3)})
	lh := p.BeginListing(dir)
	collectUntil(t, p, kindIs(ListingDone, lh.Gen))

	sh := p.BeginSearch("*.log")
	events := collectUntil(t, p, kindIs(SearchDone, sh.Gen))

	var truncated *Event
	for i := range events {
		if events[i].Kind == SearchTruncated {
			truncated = &events[i]
		}
	}
	require.NotNil(t, truncated)
	assert.Equal(t, 3, truncated.Count)
	snap := p.Snapshot()
	assert.True(t, snap.Search.Truncated)
	assert.Len(t, snap.Search.Results, 3)
}

func TestSearchWithoutRoot(t *testing.T) {
	p := newPane(t, Options{})
	h := p.BeginSearch("*")
	events := collectUntil(t, p, kindIs(SearchDone, h.Gen))
	require.Len(t, events, 2)
	assert.Equal(t, SearchError, events[0].Kind)
}

func TestCancelHandles(t *testing.T) {
	p := newPane(t, Options{})
	h := p.BeginListing(t.TempDir())
	collectUntil(t, p, kindIs(ListingDone, h.Gen))

	assert.True(t, p.Cancel(h))
	assert.False(t, p.Cancel(Handle{Kind: ListingHandle, Gen: h.Gen + 100}))
	assert.False(t, p.Cancel(Handle{Kind: TransferHandle, TransferID: "nope"}))
}

func TestTransferInvalidatesCurrentDirectory(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	touch(t, filepath.Join(src, "payload.txt"), "abc")

	manager := transfer.NewManager(transfer.NewEngine(transfer.Options{}), nil)
	t.Cleanup(manager.Shutdown)

	p := newPane(t, Options{Name: "left", Transfers: manager})
	lh := p.BeginListing(dst)
	collectUntil(t, p, kindIs(ListingDone, lh.Gen))

	h, err := p.SubmitTransfer(transfer.Request{
		Op:      transfer.Copy,
		Sources: []string{filepath.Join(src, "payload.txt")},
		DestDir: dst,
	})
	require.NoError(t, err)
	assert.Equal(t, TransferHandle, h.Kind)

	events := collectUntil(t, p, kindIs(DirectoryChanged, 0))
	var outcome *Event
	for i := range events {
		if events[i].Kind == TransferOutcome {
			outcome = &events[i]
		}
	}
	require.NotNil(t, outcome, "outcome precedes DirectoryChanged")
	assert.Equal(t, h.TransferID, outcome.TransferID)
	require.NotNil(t, outcome.Outcome)
	assert.Equal(t, transfer.Done, outcome.Outcome.Phase)
	assert.FileExists(t, filepath.Join(dst, "payload.txt"))
}

func TestSubmitWithoutManager(t *testing.T) {
	p := newPane(t, Options{})
	_, err := p.SubmitTransfer(transfer.Request{Op: transfer.Copy, DestDir: "/tmp"})
	assert.ErrorIs(t, err, ErrNoTransfers)
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	p := newPane(t, Options{Watch: true, WatchDebounce: 20 * time.Millisecond})
	if p.watcher == nil {
		t.Skip("fsnotify unavailable")
	}
	h := p.BeginListing(dir)
	collectUntil(t, p, kindIs(ListingDone, h.Gen))

	touch(t, filepath.Join(dir, "late.txt"), "")
	ev := collectUntil(t, p, kindIs(DirectoryChanged, 0))
	assert.Equal(t, dir, ev[len(ev)-1].Path)
}

func TestCloseClosesEvents(t *testing.T) {
	p := New(Options{})
	p.BeginListing(t.TempDir())
	p.Close()
	p.Close()
	for range p.Events() {
	}
}

func TestTouches(t *testing.T) {
	req := transfer.Request{Sources: []string{"/a/b/file"}, DestDir: "/c"}
	assert.True(t, touches(req, "/c"))
	assert.True(t, touches(req, "/a/b"))
	assert.False(t, touches(req, "/a"))
	assert.False(t, touches(req, ""))
}
