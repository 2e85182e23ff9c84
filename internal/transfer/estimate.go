package transfer

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/fs"
)

// estimate is the pre-flight size scan result. When the scan ran over its
// file or time budget, countBased is set and total is a unit count.
type estimate struct {
	countBased bool
	total      uint64
	scanned    int
	sizes      map[string]uint64
}

var errScanBudget = errors.New("size scan budget exceeded")

// estimateSizes measures every source until fileLimit files were seen or
// timeLimit passed, whichever comes first. The decision is made once for the
// whole transfer.
func estimateSizes(ctx context.Context, sources []string, fileLimit int, timeLimit time.Duration, now func() time.Time) estimate {
	est := estimate{sizes: make(map[string]uint64)}
	deadline := now().Add(timeLimit)

	var scanned atomic.Int64
	overBudget := func() bool {
		return int(scanned.Load()) >= fileLimit || !now().Before(deadline)
	}
	fallback := func() estimate {
		est.countBased = true
		est.scanned = int(scanned.Load())
		est.total = uint64(max(1, est.scanned, len(sources)))
		debug.Log(debug.XFER, "estimate: budget exceeded after %d files, counting units (total %d)", est.scanned, est.total)
		return est
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		key := fs.Key(src)
		info, err := os.Lstat(src)
		if err != nil {
			est.sizes[key] = 0
			continue
		}

		if !info.IsDir() {
			size := fileSize(info)
			est.sizes[key] = size
			est.total += size
			scanned.Add(1)
			if overBudget() {
				return fallback()
			}
			continue
		}

		var srcTotal atomic.Uint64
		err = walkFiles(ctx, src, func(size uint64) error {
			srcTotal.Add(size)
			scanned.Add(1)
			if overBudget() {
				return errScanBudget
			}
			return nil
		})
		est.sizes[key] = srcTotal.Load()
		if errors.Is(err, errScanBudget) {
			return fallback()
		}
		est.total += srcTotal.Load()
	}

	est.scanned = int(scanned.Load())
	debug.Log(debug.XFER, "estimate: %d files, %d bytes", est.scanned, est.total)
	return est
}

// walkFiles calls fn with the size of every non-directory under root.
// Symlinks count as 0 bytes since they are recreated, not copied.
// Unreadable subdirectories are skipped. fn may be called concurrently;
// the first error it returns ends the walk and is returned.
func walkFiles(ctx context.Context, root string, fn func(size uint64) error) error {
	var (
		mu      sync.Mutex
		stopErr error
	)
	stopped := func() error {
		mu.Lock()
		defer mu.Unlock()
		return stopErr
	}

	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, root, func(path string, d iofs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// An error returned below comes back here as err for the parent
		// directory; it must not be mistaken for a read error.
		if serr := stopped(); serr != nil {
			return serr
		}
		if err != nil {
			debug.Log(debug.FS_WALK, "estimate: error at %q: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		var size uint64
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size = fileSize(info)
			}
		}
		if ferr := fn(size); ferr != nil {
			mu.Lock()
			if stopErr == nil {
				stopErr = ferr
			}
			mu.Unlock()
			return ferr
		}
		return nil
	})
	if serr := stopped(); serr != nil {
		return serr
	}
	return err
}

// sizeOf measures path without any budget. Unreadable paths count as 0.
func sizeOf(path string) uint64 {
	info, err := os.Lstat(path)
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		return fileSize(info)
	}
	var total atomic.Uint64
	_ = walkFiles(context.Background(), path, func(size uint64) error {
		total.Add(size)
		return nil
	})
	return total.Load()
}

func fileSize(info os.FileInfo) uint64 {
	if !info.Mode().IsRegular() || info.Size() < 0 {
		return 0
	}
	return uint64(info.Size())
}
