package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/errs"
	"github.com/justyntemme/multipane/internal/fs"
	"github.com/justyntemme/multipane/internal/logging"
)

const (
	DefaultScanFileLimit    = 6000
	DefaultScanTimeLimit    = 1200 * time.Millisecond
	DefaultProgressInterval = 50 * time.Millisecond
	DefaultBufferSize       = 1 << 20
)

// CancelledMessage is the outcome message of a cancelled transfer.
const CancelledMessage = "Operation cancelled."

// Options tunes an Engine. Zero values take the defaults.
type Options struct {
	ScanFileLimit    int
	ScanTimeLimit    time.Duration
	ProgressInterval time.Duration
	BufferSize       int
}

func (o Options) withDefaults() Options {
	if o.ScanFileLimit <= 0 {
		o.ScanFileLimit = DefaultScanFileLimit
	}
	if o.ScanTimeLimit <= 0 {
		o.ScanTimeLimit = DefaultScanTimeLimit
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	return o
}

// Engine executes transfers. It holds no per-transfer state and may run
// several transfers at once.
type Engine struct {
	opts Options
	now  func() time.Time
}

func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults(), now: time.Now}
}

// job is the state of one running transfer.
type job struct {
	req      Request
	ctx      context.Context
	tracker  *tracker
	copier   *copier
	summary  Summary
	onReport func(Progress)
	phase    Phase
}

// Run executes req on the calling goroutine, reporting through onProgress,
// and returns the terminal outcome. Sources are processed in order; a
// failing source aborts the rest.
func (e *Engine) Run(ctx context.Context, req Request, onProgress func(Progress)) Outcome {
	req = req.Clone()
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	if err := req.Validate(); err != nil {
		return Outcome{Phase: Failed, Message: err.Error(), Err: err}
	}

	j := &job{req: req, ctx: ctx, onReport: onProgress, phase: Preparing}
	onProgress(Progress{Phase: Preparing})

	est := estimateSizes(ctx, req.Sources, e.opts.ScanFileLimit, e.opts.ScanTimeLimit, e.now)
	j.tracker = newTracker(est, e.opts.ProgressInterval, e.now, func(pct int) {
		onProgress(Progress{Percent: pct, Phase: j.phase, CountBased: est.countBased})
	})
	j.copier = &copier{ctx: ctx, buf: make([]byte, e.opts.BufferSize), tracker: j.tracker}

	debug.Log(debug.XFER, "run: op=%s sources=%d dest=%q countBased=%v total=%d",
		req.Op, len(req.Sources), req.DestDir, est.countBased, est.total)
	if est.countBased {
		j.status(fmt.Sprintf("Preparing %s (quick estimate) ...", req.Op))
	} else {
		j.status(fmt.Sprintf("Preparing %s ...", req.Op))
	}

	j.phase = Running
	for _, src := range req.Sources {
		if ctx.Err() != nil {
			break
		}
		status, err := j.process(src)
		if errs.IsCancelled(err) || status == ItemCancelled {
			break
		}
		j.summary.add(status, err)
		if status == ItemFailed {
			j.summary.Bytes = j.copier.bytes
			j.phase = Failed
			msg := err.Error()
			logging.Warn("transfer failed", logging.String("op", req.Op.String()), logging.String("source", src), logging.Err(err))
			onProgress(Progress{Percent: j.tracker.current(), Phase: Failed, Message: msg})
			return Outcome{Phase: Failed, Message: msg, Err: err, Summary: j.summary}
		}
		j.tracker.sourceDone()
	}
	j.summary.Bytes = j.copier.bytes

	if ctx.Err() != nil {
		j.phase = Cancelled
		debug.Log(debug.XFER, "run: cancelled after %d items", j.summary.Succeeded+j.summary.Skipped+j.summary.Blocked)
		onProgress(Progress{Percent: j.tracker.current(), Phase: Cancelled, Message: CancelledMessage})
		return Outcome{Phase: Cancelled, Message: CancelledMessage, Err: ctx.Err(), Summary: j.summary}
	}

	j.tracker.finish()
	j.phase = Done
	onProgress(Progress{Percent: 100, Phase: Done, Message: j.summary.String()})
	return Outcome{Phase: Done, Message: j.summary.String(), Summary: j.summary}
}

// status emits a soft status line at the current percent.
func (j *job) status(msg string) {
	j.summary.Messages = append(j.summary.Messages, msg)
	j.onReport(Progress{Percent: j.tracker.current(), Phase: j.phase, Message: msg})
}

// process handles one source and reports how it ended.
func (j *job) process(src string) (ItemStatus, error) {
	info, err := os.Lstat(src)
	if err != nil {
		// Vanished since it was selected: nothing to do.
		debug.Log(debug.XFER, "process: %q gone: %v", src, err)
		return ItemSkipped, nil
	}

	key := fs.Key(src)
	base := filepath.Base(strings.TrimRight(src, `\/`))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = filepath.Base(src)
	}
	destDir := j.req.DestDir
	dst := filepath.Join(destDir, base)
	isDir := info.IsDir()

	if fs.SamePath(src, dst) {
		if j.req.Op == Copy {
			dst = UniqueDestPath(destDir, base)
		} else {
			j.status("Skipped same path: " + base)
			j.tracker.skipSource(key, src)
			return ItemSkipped, nil
		}
	}

	if isDir && fs.IsSubpath(dst, src) {
		j.status("Skipped nested destination: " + base)
		j.tracker.skipSource(key, src)
		return ItemBlocked, errs.NewBlocked(j.req.Op.String(), src, "destination is inside the source")
	}

	action := Merge
	destExists := fs.Exists(dst)
	if destExists {
		action = j.req.Conflicts[src]
		switch action {
		case Skip:
			j.tracker.skipSource(key, src)
			return ItemSkipped, nil
		case KeepBoth:
			dst = UniqueDestPath(destDir, base)
			destExists = false
		case Overwrite:
			if err := removeAny(dst); err != nil {
				debug.Log(debug.XFER, "process: overwrite remove %q: %v", dst, err)
			}
			destExists = fs.Exists(dst)
		}
	}

	debug.Log(debug.XFER, "process: %s %q -> %q action=%s", j.req.Op, src, dst, action)

	if j.req.Op == Copy {
		err = j.transfer(src, dst, info)
	} else {
		err = j.move(key, src, dst, info, destExists)
	}
	if err != nil {
		if errs.IsCancelled(err) {
			return ItemCancelled, err
		}
		return ItemFailed, err
	}
	return ItemDone, nil
}

// transfer copies src to dst by kind.
func (j *job) transfer(src, dst string, info os.FileInfo) error {
	switch {
	case info.IsDir():
		return j.copier.copyTree(filepath.Clean(src), dst)
	case info.Mode()&os.ModeSymlink != 0:
		return j.copier.copyLink(src, dst)
	default:
		return j.copier.copyFile(src, dst)
	}
}

// move renames when possible and otherwise copies and then deletes the
// source, unless the copy was cancelled. A destination that still exists
// (merge) cannot take a rename, so it goes straight to the copy path.
func (j *job) move(key, src, dst string, info os.FileInfo, destExists bool) error {
	if !destExists {
		err := os.Rename(src, dst)
		if err == nil {
			size, ok := j.tracker.sourceSize(key)
			if !ok {
				size = sizeOf(dst)
			}
			j.tracker.tickBytes(size)
			j.copier.bytes += size
			return nil
		}
		debug.Log(debug.XFER, "move: rename %q: %v, falling back to copy", src, err)
	}

	if err := j.transfer(src, dst, info); err != nil {
		return err
	}
	if j.ctx.Err() != nil {
		return j.ctx.Err()
	}
	if err := removeAny(src); err != nil {
		logging.Warn("move: source not removed after copy", logging.String("source", src), logging.Err(err))
	}
	return nil
}

// String renders the summary as a one-line status.
func (s Summary) String() string {
	parts := []string{fmt.Sprintf("%d done", s.Succeeded)}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.Skipped))
	}
	if s.Blocked > 0 {
		parts = append(parts, fmt.Sprintf("%d blocked", s.Blocked))
	}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	return strings.Join(parts, ", ")
}
