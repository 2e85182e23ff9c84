package transfer

import (
	"io"
	"time"
)

// tracker turns byte or unit ticks into throttled percent reports. It is
// owned by the goroutine running the transfer.
type tracker struct {
	countBased bool
	total      uint64
	done       uint64
	sizes      map[string]uint64 // by fs.Key of the source

	interval time.Duration
	now      func() time.Time
	lastPct  int
	lastEmit time.Time
	emit     func(pct int)
}

func newTracker(est estimate, interval time.Duration, now func() time.Time, emit func(int)) *tracker {
	return &tracker{
		countBased: est.countBased,
		total:      max(1, est.total),
		sizes:      est.sizes,
		interval:   interval,
		now:        now,
		lastPct:    -1,
		emit:       emit,
	}
}

func (t *tracker) percent() int {
	return int(min(100, t.done*100/t.total))
}

// report emits on the first call, on reaching 100, or when the
// percentage grew and either moved a full point or the interval passed.
func (t *tracker) report() {
	pct := t.percent()
	now := t.now()
	grew := pct > t.lastPct
	emit := t.lastPct < 0 ||
		(pct >= 100 && t.lastPct < 100) ||
		(grew && (pct-t.lastPct >= 1 || now.Sub(t.lastEmit) >= t.interval))
	if !emit || pct < t.lastPct {
		return
	}
	t.lastPct = pct
	t.lastEmit = now
	t.emit(pct)
}

// tickBytes records copied bytes in size mode.
func (t *tracker) tickBytes(n uint64) {
	if t.countBased {
		return
	}
	t.done += n
	t.report()
}

// tickUnit records one copied file in count mode.
func (t *tracker) tickUnit() {
	if !t.countBased {
		return
	}
	t.done++
	t.report()
}

// sourceDone marks the end of one source item.
func (t *tracker) sourceDone() {
	if t.countBased {
		t.done++
	}
	t.report()
}

// skipSource advances past a source that will not be transferred, using the
// size measured during estimation or, failing that, a fresh measurement.
func (t *tracker) skipSource(key, path string) {
	if t.countBased {
		return
	}
	size, ok := t.sizes[key]
	if !ok {
		size = sizeOf(path)
	}
	t.tickBytes(size)
}

// sourceSize is the estimated size of a source, if known.
func (t *tracker) sourceSize(key string) (uint64, bool) {
	size, ok := t.sizes[key]
	return size, ok
}

// finish completes the bar after every source was processed.
func (t *tracker) finish() {
	t.done = max(t.done, t.total)
	t.report()
}

// current is the last emitted percent, 0 before the first report.
func (t *tracker) current() int {
	return max(0, t.lastPct)
}

// progressWriter wraps an io.Writer and calls onWrite after each write
type progressWriter struct {
	w       io.Writer
	onWrite func(int64)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	if n > 0 && pw.onWrite != nil {
		pw.onWrite(int64(n))
	}
	return n, err
}
