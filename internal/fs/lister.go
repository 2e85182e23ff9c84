// Package fs reads the local filesystem for the browsing engine: batched
// directory listings, single-path attribute lookups and path comparisons.
package fs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/errs"
	"github.com/justyntemme/multipane/internal/model"
)

// DefaultListBatch is how many entries a listing batch carries.
const DefaultListBatch = 400

// Batch is one chunk of a listing. The last message of a successful pass
// has Done set and carries no entries.
type Batch struct {
	Path    string
	Entries []model.Entry
	Done    bool
}

// Lister enumerates the direct children of a directory in batches.
type Lister struct {
	batchSize int
}

func NewLister(batchSize int) *Lister {
	if batchSize <= 0 {
		batchSize = DefaultListBatch
	}
	return &Lister{batchSize: batchSize}
}

// List streams the children of dir to out. Entries arrive in the order the
// directory read yields them, with attributes unresolved. It returns nil after
// sending the Done batch, ctx.Err() when cancelled (nothing more is sent),
// and a Fatal errs.Error when dir cannot be opened or read.
func (l *Lister) List(ctx context.Context, dir string, out chan<- Batch) error {
	debug.Log(debug.FS, "list: reading %q batch=%d", dir, l.batchSize)

	f, err := os.Open(dir)
	if err != nil {
		debug.Log(debug.FS, "list: open %q: %v", dir, err)
		return errs.New(errs.Fatal, "list", dir, "cannot open directory", err)
	}
	defer f.Close()

	send := func(b Batch) error {
		select {
		case out <- b:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		dirents, readErr := f.ReadDir(l.batchSize)
		batch := make([]model.Entry, 0, len(dirents))
		for _, d := range dirents {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch = append(batch, l.entryFor(dir, d))
		}
		if len(batch) > 0 {
			total += len(batch)
			if err := send(Batch{Path: dir, Entries: batch}); err != nil {
				return err
			}
		}

		if errors.Is(readErr, io.EOF) || (readErr == nil && len(dirents) == 0) {
			break
		}
		if readErr != nil {
			debug.Log(debug.FS, "list: read %q: %v", dir, readErr)
			return errs.New(errs.Fatal, "list", dir, "cannot read directory", readErr)
		}
	}

	debug.Log(debug.FS, "list: %q complete, %d entries", dir, total)
	return send(Batch{Path: dir, Done: true})
}

// entryFor classifies a child without following symlinks. ReadDir already
// knows the type on most platforms; unknown types fall back to Lstat and a
// failed probe degrades to a plain file.
func (l *Lister) entryFor(dir string, d fs.DirEntry) model.Entry {
	typ := d.Type()
	if typ == fs.ModeIrregular {
		if info, err := d.Info(); err == nil {
			typ = info.Mode().Type()
		} else {
			debug.Log(debug.FS_ENTRY, "list: probe %q: %v", d.Name(), err)
			typ = 0
		}
	}
	isSymlink := typ&fs.ModeSymlink != 0
	isDir := !isSymlink && typ.IsDir()
	debug.Log(debug.FS_ENTRY, "list: %q dir=%v link=%v", d.Name(), isDir, isSymlink)
	return model.NewEntry(dir, d.Name(), isDir, isSymlink)
}
