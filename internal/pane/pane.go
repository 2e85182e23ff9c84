// Package pane owns the browsing state of one file manager pane and runs its
// listing, attribute, search and transfer workers. Worker results reach the
// model only through the pane's dispatcher goroutine, which drops anything
// tagged with a superseded generation and republishes the rest on Events.
package pane

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/errs"
	"github.com/justyntemme/multipane/internal/fs"
	"github.com/justyntemme/multipane/internal/logging"
	"github.com/justyntemme/multipane/internal/model"
	"github.com/justyntemme/multipane/internal/resolver"
	"github.com/justyntemme/multipane/internal/search"
	"github.com/justyntemme/multipane/internal/transfer"
)

const DefaultEventBuffer = 256

// ErrNoTransfers is returned by SubmitTransfer when the pane was built
// without a transfer manager.
var ErrNoTransfers = errors.New("pane has no transfer manager")

// Options configures a Pane. Zero values take the package defaults.
type Options struct {
	Name           string
	ListBatch      int
	Resolver       resolver.Options
	ViewportMargin int
	Search         *search.Engine
	Transfers      *transfer.Manager
	Watch          bool
	WatchDebounce  time.Duration
	// StopWait bounds how long a new request waits for superseded workers.
	StopWait    time.Duration
	EventBuffer int
}

// Snapshot is an immutable copy of what the pane currently shows.
type Snapshot struct {
	Root      string
	Gen       int64
	Entries   []model.Entry
	Complete  bool
	Searching bool
	Search    SearchSnapshot
}

type SearchSnapshot struct {
	Root      string
	Pattern   string
	Results   []model.SearchResult
	Truncated bool
	Done      bool
}

type worker struct {
	gen    int64
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the worker and waits up to wait for it to exit.
func (w *worker) stop(wait time.Duration) {
	if w.cancel == nil {
		return
	}
	w.cancel()
	select {
	case <-w.done:
	case <-time.After(wait):
		debug.Log(debug.APP, "pane: worker gen %d still running after %v", w.gen, wait)
	}
	*w = worker{}
}

type Pane struct {
	name      string
	margin    int
	stopWait  time.Duration
	lister    *fs.Lister
	searcher  *search.Engine
	transfers *transfer.Manager
	resolver  *resolver.Resolver
	watcher   *DirectoryWatcher

	seq        atomic.Int64
	listGen    atomic.Int64
	searchGen  atomic.Int64
	resolveGen atomic.Int64

	inbox      chan Event
	resolved   chan resolver.Result
	events     chan Event
	closed     chan struct{}
	dispatched chan struct{}
	closeOnce  sync.Once

	// mu guards the model state below. Only the dispatcher and the
	// Begin*/Clear* calls write it.
	mu        sync.RWMutex
	model     *model.EntryModel
	results   *model.SearchResultSet
	searching bool
	running   map[string]transfer.Request

	// workMu serializes starting and stopping workers.
	workMu  sync.Mutex
	listing worker
	search  worker
}

func New(opts Options) *Pane {
	if opts.Name == "" {
		opts.Name = "pane"
	}
	if opts.ViewportMargin <= 0 {
		opts.ViewportMargin = resolver.DefaultViewportMargin
	}
	if opts.StopWait <= 0 {
		opts.StopWait = resolver.DefaultStopWait
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Search == nil {
		opts.Search = search.NewEngine(0, 0)
	}
	if opts.Resolver.StopWait <= 0 {
		opts.Resolver.StopWait = opts.StopWait
	}

	p := &Pane{
		name:       opts.Name,
		margin:     opts.ViewportMargin,
		stopWait:   opts.StopWait,
		lister:     fs.NewLister(opts.ListBatch),
		searcher:   opts.Search,
		transfers:  opts.Transfers,
		inbox:      make(chan Event, 64),
		resolved:   make(chan resolver.Result, 64),
		events:     make(chan Event, opts.EventBuffer),
		closed:     make(chan struct{}),
		dispatched: make(chan struct{}),
		model:      model.NewEntryModel(),
		results:    model.NewSearchResultSet(),
		running:    make(map[string]transfer.Request),
	}
	p.resolver = resolver.New(p.model.Cache(), p.resolved, opts.Resolver)

	if opts.Watch {
		w, err := NewDirectoryWatcher(opts.WatchDebounce)
		if err != nil {
			logging.Warn("pane: directory watcher unavailable", logging.String("pane", p.name), logging.Err(err))
		} else {
			p.watcher = w
		}
	}

	go p.dispatch()
	return p
}

// Name returns the pane name used to key transfers.
func (p *Pane) Name() string { return p.name }

// Events returns the ordered event stream. It must be drained; the
// dispatcher blocks when the buffer is full. It is closed by Close.
func (p *Pane) Events() <-chan Event { return p.events }

// BeginListing switches the pane to path. Any listing, search or attribute
// work for the previous root is cancelled first, and its late results are
// discarded.
func (p *Pane) BeginListing(path string) Handle {
	root := filepath.Clean(path)
	gen := p.seq.Add(1)

	p.workMu.Lock()
	defer p.workMu.Unlock()

	p.listGen.Store(gen)
	p.searchGen.Store(0)
	p.listing.stop(p.stopWait)
	p.search.stop(p.stopWait)
	p.resolveGen.Store(gen)
	p.resolver.Reset(gen)

	p.mu.Lock()
	p.model.Reset(root)
	p.results.Reset("", "")
	p.searching = false
	p.mu.Unlock()

	if p.watcher != nil {
		p.watcher.UnwatchAll()
		if err := p.watcher.Watch(root); err != nil {
			debug.Log(debug.APP, "pane %s: cannot watch %q: %v", p.name, root, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.listing = worker{gen: gen, cancel: cancel, done: done}
	debug.Log(debug.APP, "pane %s: listing %q gen=%d", p.name, root, gen)
	go p.runListing(ctx, gen, root, done)

	return Handle{Kind: ListingHandle, Gen: gen}
}

func (p *Pane) runListing(ctx context.Context, gen int64, root string, done chan struct{}) {
	defer close(done)

	batches := make(chan fs.Batch, 4)
	errc := make(chan error, 1)
	go func() {
		defer close(batches)
		errc <- p.lister.List(ctx, root, batches)
	}()

	for b := range batches {
		ev := Event{Kind: EntriesAppended, Gen: gen, Path: root, Entries: b.Entries}
		if b.Done {
			ev = Event{Kind: ListingDone, Gen: gen, Path: root}
		}
		if !p.post(ctx, ev) {
			return
		}
	}
	if err := <-errc; err != nil && !errs.IsCancelled(err) {
		p.post(ctx, Event{Kind: ListingError, Gen: gen, Path: root, Err: err, Class: errs.ClassOf(err)})
	}
}

// RequestAttributes queues paths for attribute resolution. Results arrive
// as AttributeResolved events.
func (p *Pane) RequestAttributes(paths []string) int {
	return p.resolver.Request(paths)
}

// RequestVisible queues the unresolved rows in [first, last] plus the
// viewport margin. Rows index the search results while a search is shown
// and the listing otherwise.
func (p *Pane) RequestVisible(first, last int) int {
	p.mu.RLock()
	rows := p.model.Len()
	if p.searching {
		rows = p.results.Len()
	}
	lo, hi, ok := resolver.Viewport(first, last, p.margin, rows)
	var paths []string
	if ok {
		if p.searching {
			paths = p.results.UnresolvedIn(lo, hi, p.model.Cache())
		} else {
			paths = p.model.UnresolvedIn(lo, hi)
		}
	}
	p.mu.RUnlock()

	if len(paths) == 0 {
		return 0
	}
	return p.resolver.Request(paths)
}

// BeginSearch searches below the current root and switches the pane into
// search mode. A running search is cancelled first.
func (p *Pane) BeginSearch(patternText string) Handle {
	gen := p.seq.Add(1)

	p.workMu.Lock()
	defer p.workMu.Unlock()

	p.searchGen.Store(gen)
	p.search.stop(p.stopWait)
	p.resolveGen.Store(gen)
	p.resolver.Reset(gen)

	p.mu.Lock()
	root := p.model.Root()
	p.results.Reset(root, patternText)
	p.searching = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.search = worker{gen: gen, cancel: cancel, done: done}
	debug.Log(debug.APP, "pane %s: search %q under %q gen=%d", p.name, patternText, root, gen)
	go p.runSearch(ctx, gen, root, patternText, done)

	return Handle{Kind: SearchHandle, Gen: gen}
}

func (p *Pane) runSearch(ctx context.Context, gen int64, root, patternText string, done chan struct{}) {
	defer close(done)

	if root == "" {
		err := errs.New(errs.Fatal, "search", "", "no directory is open", nil)
		if p.post(ctx, Event{Kind: SearchError, Gen: gen, Err: err, Class: errs.Fatal}) {
			p.post(ctx, Event{Kind: SearchDone, Gen: gen})
		}
		return
	}

	msgs := make(chan search.Message, 4)
	go func() {
		defer close(msgs)
		p.searcher.Run(ctx, root, patternText, msgs)
	}()

	for m := range msgs {
		ev := Event{Gen: gen, Path: m.Root}
		switch m.Kind {
		case search.MsgBatch:
			ev.Kind, ev.Results = SearchBatch, m.Results
		case search.MsgTruncated:
			ev.Kind, ev.Count = SearchTruncated, m.Count
		case search.MsgError:
			ev.Kind, ev.Err, ev.Class = SearchError, m.Err, errs.ClassOf(m.Err)
		case search.MsgDone:
			ev.Kind = SearchDone
		}
		if !p.post(ctx, ev) {
			return
		}
	}
}

// ClearSearch leaves search mode and returns to the listing.
func (p *Pane) ClearSearch() {
	p.workMu.Lock()
	defer p.workMu.Unlock()

	p.searchGen.Store(0)
	p.search.stop(p.stopWait)
	gen := p.listGen.Load()
	p.resolveGen.Store(gen)
	p.resolver.Reset(gen)

	p.mu.Lock()
	p.results.Reset("", "")
	p.searching = false
	p.mu.Unlock()
}

// SubmitTransfer starts req on the shared transfer manager. Progress and
// the outcome arrive as TransferProgress and TransferOutcome events; when
// the transfer touched the current directory, cached attributes are dropped
// and DirectoryChanged follows the outcome.
func (p *Pane) SubmitTransfer(req transfer.Request) (Handle, error) {
	if p.transfers == nil {
		return Handle{}, ErrNoTransfers
	}
	t, err := p.transfers.Submit(p.name, req)
	if err != nil {
		return Handle{}, err
	}

	p.mu.Lock()
	p.running[t.ID] = t.Request
	p.mu.Unlock()

	go p.forwardTransfer(t)
	return Handle{Kind: TransferHandle, TransferID: t.ID}, nil
}

func (p *Pane) forwardTransfer(t *transfer.Transfer) {
	ctx := context.Background()
	for prog := range t.Updates() {
		if !p.post(ctx, Event{Kind: TransferProgress, TransferID: t.ID, Progress: prog}) {
			return
		}
	}
	out := t.Wait()
	p.post(ctx, Event{Kind: TransferOutcome, TransferID: t.ID, Progress: t.Last(), Outcome: &out})
}

// Cancel stops the operation h refers to. It reports false when h is no
// longer the pane's current operation of its kind.
func (p *Pane) Cancel(h Handle) bool {
	switch h.Kind {
	case TransferHandle:
		if p.transfers == nil {
			return false
		}
		return p.transfers.Cancel(h.TransferID)
	case ListingHandle, SearchHandle:
		p.workMu.Lock()
		defer p.workMu.Unlock()
		w := &p.listing
		if h.Kind == SearchHandle {
			w = &p.search
		}
		if w.cancel == nil || w.gen != h.Gen {
			return false
		}
		debug.Log(debug.APP, "pane %s: cancel gen=%d", p.name, h.Gen)
		w.cancel()
		return true
	}
	return false
}

// Snapshot copies the current view.
func (p *Pane) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Snapshot{
		Root:      p.model.Root(),
		Gen:       p.listGen.Load(),
		Entries:   p.model.Entries(),
		Complete:  p.model.Complete(),
		Searching: p.searching,
	}
	if p.searching {
		s.Search = SearchSnapshot{
			Root:      p.results.Root(),
			Pattern:   p.results.Pattern(),
			Results:   p.results.Items(p.model.Cache()),
			Truncated: p.results.Truncated(),
			Done:      p.results.Done(),
		}
	}
	return s
}

// Close stops every browsing worker and the watcher, then closes Events.
// Transfers keep running on their manager.
func (p *Pane) Close() {
	p.closeOnce.Do(func() {
		p.workMu.Lock()
		p.listing.stop(p.stopWait)
		p.search.stop(p.stopWait)
		p.workMu.Unlock()
		p.resolver.Close()
		if p.watcher != nil {
			p.watcher.Close()
		}
		close(p.closed)
		<-p.dispatched
		close(p.events)
	})
}

// post hands a worker result to the dispatcher.
func (p *Pane) post(ctx context.Context, ev Event) bool {
	select {
	case p.inbox <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-p.closed:
		return false
	}
}

func (p *Pane) emit(ev Event) bool {
	select {
	case p.events <- ev:
		return true
	case <-p.closed:
		return false
	}
}

func (p *Pane) dispatch() {
	defer close(p.dispatched)

	var notify <-chan string
	if p.watcher != nil {
		notify = p.watcher.Notify()
	}

	for {
		select {
		case <-p.closed:
			return

		case ev := <-p.inbox:
			if ev.Kind == TransferOutcome {
				p.transferFinished(ev)
				continue
			}
			if p.apply(&ev) {
				p.emit(ev)
			}

		case res := <-p.resolved:
			if res.Gen != p.resolveGen.Load() {
				continue
			}
			p.emit(Event{Kind: AttributeResolved, Gen: res.Gen, Path: res.Path, Attr: res.Attr})

		case dir := <-notify:
			p.mu.RLock()
			root := p.model.Root()
			p.mu.RUnlock()
			if root == "" || fs.Key(dir) != fs.Key(root) {
				continue
			}
			p.resolver.Invalidate()
			p.emit(Event{Kind: DirectoryChanged, Gen: p.listGen.Load(), Path: root})
		}
	}
}

// apply folds a worker event into the model. It returns false for events
// from a superseded generation.
func (p *Pane) apply(ev *Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case EntriesAppended, ListingDone, ListingError:
		if ev.Gen != p.listGen.Load() {
			debug.Log(debug.APP, "pane %s: drop %s gen=%d", p.name, ev.Kind, ev.Gen)
			return false
		}
		switch ev.Kind {
		case EntriesAppended:
			ev.First = p.model.Append(ev.Entries)
		case ListingDone:
			p.model.MarkComplete()
		}

	case SearchBatch, SearchTruncated, SearchDone, SearchError:
		if !p.searching || ev.Gen != p.searchGen.Load() {
			debug.Log(debug.APP, "pane %s: drop %s gen=%d", p.name, ev.Kind, ev.Gen)
			return false
		}
		switch ev.Kind {
		case SearchBatch:
			ev.First = p.results.Append(ev.Results)
		case SearchTruncated:
			p.results.MarkTruncated()
		case SearchDone:
			p.results.MarkDone()
		}
	}
	return true
}

func (p *Pane) transferFinished(ev Event) {
	p.mu.Lock()
	req := p.running[ev.TransferID]
	delete(p.running, ev.TransferID)
	root := p.model.Root()
	p.mu.Unlock()

	p.emit(ev)
	if !touches(req, root) {
		return
	}
	debug.Log(debug.APP, "pane %s: transfer %s touched %q, invalidating", p.name, ev.TransferID, root)
	p.resolver.Invalidate()
	p.emit(Event{Kind: DirectoryChanged, Gen: p.listGen.Load(), Path: root})
}

// touches reports whether req wrote to or removed from dir.
func touches(req transfer.Request, dir string) bool {
	if dir == "" {
		return false
	}
	key := fs.Key(dir)
	if req.DestDir != "" && fs.Key(req.DestDir) == key {
		return true
	}
	for _, src := range req.Sources {
		if fs.Key(filepath.Dir(src)) == key {
			return true
		}
	}
	return false
}
