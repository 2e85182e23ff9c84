// Package resolver fills in size and modification time for the entries a
// user can actually see, one batch at a time, off the caller's goroutine.
package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/fs"
	"github.com/justyntemme/multipane/internal/model"
)

const (
	DefaultBatchSize      = 256
	DefaultViewportMargin = 40
	DefaultStopWait       = 100 * time.Millisecond
)

// Result reports the attributes of one path. Gen is the session the
// request belonged to; consumers drop results from older sessions.
type Result struct {
	Gen  int64
	Path string
	Attr model.Attr
}

// Options tunes a Resolver. Zero values take the defaults.
type Options struct {
	BatchSize int
	StopWait  time.Duration
}

// Resolver owns a FIFO of paths waiting for attributes and at most one
// worker draining it. Resolved attributes are written to the shared
// ResolverCache before the Result is sent on out.
type Resolver struct {
	cache     *model.ResolverCache
	out       chan<- Result
	batchSize int
	stopWait  time.Duration

	mu      sync.Mutex
	gen     int64
	epoch   uint64
	queue   []string
	pending map[string]bool
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cache *model.ResolverCache, out chan<- Result, opts Options) *Resolver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.StopWait <= 0 {
		opts.StopWait = DefaultStopWait
	}
	return &Resolver{
		cache:     cache,
		out:       out,
		batchSize: opts.BatchSize,
		stopWait:  opts.StopWait,
		pending:   make(map[string]bool),
	}
}

// Request queues paths that are neither cached nor already pending and
// starts a worker if none is running. It returns how many paths were queued.
func (r *Resolver) Request(paths []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	queued := 0
	for _, p := range paths {
		if p == "" || r.pending[p] || r.cache.Has(p) {
			continue
		}
		r.pending[p] = true
		r.queue = append(r.queue, p)
		queued++
	}
	if queued > 0 {
		debug.Log(debug.RESOLVE, "request: queued=%d backlog=%d gen=%d", queued, len(r.queue), r.gen)
	}
	r.startNextLocked()
	return queued
}

// Reset starts a new session tagged gen: like Invalidate, and every later
// Result carries gen.
func (r *Resolver) Reset(gen int64) {
	r.stop(func() { r.gen = gen })
}

// Invalidate clears the cache, the pending set and the queue, and stops the
// running worker, waiting a bounded time for it to exit.
func (r *Resolver) Invalidate() {
	r.stop(nil)
}

// Close stops the worker without waiting for anything else.
func (r *Resolver) Close() {
	r.stop(nil)
}

func (r *Resolver) stop(update func()) {
	r.mu.Lock()
	r.epoch++
	if update != nil {
		update()
	}
	r.queue = nil
	r.pending = make(map[string]bool)
	r.cache.Clear()
	cancel, done := r.cancel, r.done
	r.running = false
	r.cancel, r.done = nil, nil
	gen := r.gen
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(r.stopWait):
		debug.Log(debug.RESOLVE, "stop: worker did not exit within %v (gen %d)", r.stopWait, gen)
	}
}

// Pending returns the number of paths queued or in flight.
func (r *Resolver) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Busy reports whether a worker is running.
func (r *Resolver) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Resolver) startNextLocked() {
	if r.running || len(r.queue) == 0 {
		return
	}
	n := min(r.batchSize, len(r.queue))
	batch := make([]string, n)
	copy(batch, r.queue[:n])
	r.queue = r.queue[n:]

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.running = true
	r.cancel = cancel
	r.done = done
	go r.run(ctx, r.epoch, r.gen, batch, done)
}

func (r *Resolver) run(ctx context.Context, epoch uint64, gen int64, batch []string, done chan struct{}) {
	defer close(done)
	debug.Log(debug.RESOLVE, "worker: batch=%d gen=%d", len(batch), gen)

	for _, p := range batch {
		if ctx.Err() != nil {
			return
		}
		attr := fs.StatAttr(p)

		r.mu.Lock()
		if r.epoch != epoch {
			r.mu.Unlock()
			return
		}
		r.cache.Put(p, attr)
		delete(r.pending, p)
		r.mu.Unlock()

		select {
		case r.out <- Result{Gen: gen, Path: p, Attr: attr}:
		case <-ctx.Done():
			return
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch {
		return
	}
	r.cancel()
	r.running = false
	r.cancel, r.done = nil, nil
	r.startNextLocked()
}

// Viewport turns the visible row range into the row range to resolve:
// margin rows of slack on either side, clamped to [0, rows).
// ok is false when there is nothing to resolve.
func Viewport(first, last, margin, rows int) (lo, hi int, ok bool) {
	if rows <= 0 {
		return 0, 0, false
	}
	if margin < 0 {
		margin = 0
	}
	if last < first {
		first, last = last, first
	}
	lo = max(0, first-margin)
	hi = min(rows-1, last+margin)
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}
