package search

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/errs"
	"github.com/justyntemme/multipane/internal/model"
)

const (
	DefaultBatchSize   = 600
	DefaultResultLimit = 50000
)

// MsgKind identifies a search message.
type MsgKind int

const (
	MsgBatch MsgKind = iota
	MsgTruncated
	MsgError
	MsgDone
)

// Message is what a running search sends. A search ends with exactly one
// MsgDone unless it was cancelled.
type Message struct {
	Kind    MsgKind
	Root    string
	Results []model.SearchResult
	Count   int   // MsgTruncated: number of results delivered
	Scanned int   // MsgDone: entries examined by the walk
	Err     error // MsgError
}

// Engine runs recursive name searches.
type Engine struct {
	batchSize int
	limit     int
}

func NewEngine(batchSize, limit int) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	return &Engine{batchSize: batchSize, limit: limit}
}

var errLimitReached = errors.New("search result limit reached")

// Run walks root and streams matches for patternText to out. Symlinked
// directories are reported when they match but never entered. Unreadable
// subdirectories are skipped silently; an unreadable root is a Fatal
// MsgError. When more than the result limit match, traversal stops and a
// MsgTruncated carrying the delivered count precedes MsgDone.
func (e *Engine) Run(ctx context.Context, root, patternText string, out chan<- Message) {
	root = filepath.Clean(root)
	matcher := Compile(patternText)
	debug.Log(debug.SEARCH, "search: root=%q patterns=%v limit=%d", root, matcher.Patterns(), e.limit)

	send := func(m Message) bool {
		m.Root = root
		select {
		case out <- m:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if err := checkRoot(root); err != nil {
		debug.Log(debug.SEARCH, "search: root %q unusable: %v", root, err)
		if send(Message{Kind: MsgError, Err: err}) {
			send(Message{Kind: MsgDone})
		}
		return
	}

	var (
		mu        sync.Mutex
		batch     []model.SearchResult
		matches   int
		scanned   int
		truncated bool
	)

	// Never follow symlinks: a link back to an ancestor would loop.
	conf := &fastwalk.Config{
		Follow: false,
	}

	err := fastwalk.Walk(conf, root, func(fullPath string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// fastwalk reports a callback error back to the callback of the
		// enclosing directory, so the cap has to be checked before err.
		mu.Lock()
		stop := truncated
		if !stop && err == nil {
			scanned++
		}
		mu.Unlock()
		if stop {
			return errLimitReached
		}
		if err != nil {
			debug.Log(debug.FS_WALK, "search: error at %q: %v", fullPath, err)
			return nil
		}
		if fullPath == root || !matcher.Match(d.Name()) {
			return nil
		}

		isSymlink := d.Type()&fs.ModeSymlink != 0
		result := model.SearchResult{
			Entry:     model.NewEntry(filepath.Dir(fullPath), d.Name(), d.IsDir(), isSymlink),
			RelFolder: relFolder(root, fullPath),
		}

		mu.Lock()
		if matches >= e.limit {
			truncated = true
			mu.Unlock()
			return errLimitReached
		}
		matches++
		batch = append(batch, result)
		var full []model.SearchResult
		if len(batch) >= e.batchSize {
			full, batch = batch, nil
		}
		mu.Unlock()

		if full != nil && !send(Message{Kind: MsgBatch, Results: full}) {
			return ctx.Err()
		}
		return nil
	})

	if ctx.Err() != nil {
		debug.Log(debug.SEARCH, "search: cancelled under %q after %d matches", root, matches)
		return
	}
	if err != nil && !errors.Is(err, errLimitReached) {
		debug.Log(debug.SEARCH, "search: walk error under %q: %v", root, err)
	}

	if len(batch) > 0 && !send(Message{Kind: MsgBatch, Results: batch}) {
		return
	}
	if truncated {
		debug.Log(debug.SEARCH, "search: truncated at %d results", matches)
		if !send(Message{Kind: MsgTruncated, Count: matches}) {
			return
		}
	}
	debug.Log(debug.SEARCH, "search: complete under %q, %d matches, %d entries scanned", root, matches, scanned)
	send(Message{Kind: MsgDone, Scanned: scanned})
}

// Collect runs a search to completion and returns everything it produced.
// Intended for headless callers that do not stream.
func (e *Engine) Collect(ctx context.Context, root, patternText string) (results []model.SearchResult, truncated bool, err error) {
	out := make(chan Message, 16)
	go func() {
		e.Run(ctx, root, patternText, out)
		close(out)
	}()
	for m := range out {
		switch m.Kind {
		case MsgBatch:
			results = append(results, m.Results...)
		case MsgTruncated:
			truncated = true
		case MsgError:
			err = m.Err
		}
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return results, truncated, err
}

func checkRoot(root string) error {
	f, err := os.Open(root)
	if err != nil {
		return errs.New(errs.Fatal, "search", root, "cannot open search root", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return errs.New(errs.Fatal, "search", root, "cannot stat search root", err)
	}
	if !info.IsDir() {
		return errs.New(errs.Fatal, "search", root, "search root is not a directory", nil)
	}
	return nil
}

// relFolder is the directory holding fullPath relative to root, "" for root.
func relFolder(root, fullPath string) string {
	rel, err := filepath.Rel(root, filepath.Dir(fullPath))
	if err != nil || rel == "." {
		return ""
	}
	return rel
}
