package transfer

import (
	"context"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/errs"
	"github.com/justyntemme/multipane/internal/fs"
)

// Common file permission modes
const (
	DirPermission  = 0o755 // Standard directory permissions
	FilePermission = 0o644 // Standard file permissions
)

// copier performs the byte-level work of one transfer.
type copier struct {
	ctx     context.Context
	buf     []byte
	tracker *tracker
	bytes   uint64
}

// ctxReader fails reads once ctx is cancelled, so a copy stops at the next chunk.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// copyFile streams src to dst in buffer-sized chunks, ticking progress per
// chunk. A cancelled copy leaves the partial destination behind. Mode and
// timestamps are copied best-effort afterwards.
func (c *copier) copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), DirPermission); err != nil {
		return errs.New(errs.Fatal, "copy", dst, "cannot create parent directory", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return errs.New(errs.Fatal, "copy", src, "cannot open source", err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return errs.New(errs.Fatal, "copy", src, "cannot stat source", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FilePermission)
	if err != nil {
		return errs.New(errs.Fatal, "copy", dst, "cannot create destination", err)
	}

	w := &progressWriter{
		w: dstFile,
		onWrite: func(n int64) {
			c.bytes += uint64(n)
			c.tracker.tickBytes(uint64(n))
		},
	}
	_, copyErr := io.CopyBuffer(w, &ctxReader{ctx: c.ctx, r: srcFile}, c.buf)
	closeErr := dstFile.Close()
	if copyErr != nil {
		if c.ctx.Err() != nil {
			return c.ctx.Err()
		}
		return errs.New(errs.Fatal, "copy", src, "copy failed", copyErr)
	}
	if closeErr != nil {
		return errs.New(errs.Fatal, "copy", dst, "cannot finish destination", closeErr)
	}

	c.tracker.tickUnit()
	copyMetadata(dst, info)
	return nil
}

func copyMetadata(dst string, info os.FileInfo) {
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		debug.Log(debug.XFER, "copy: chmod %q: %v", dst, err)
	}
	mt := info.ModTime()
	if err := os.Chtimes(dst, mt, mt); err != nil {
		debug.Log(debug.XFER, "copy: chtimes %q: %v", dst, err)
	}
}

// copyLink recreates the symlink src at dst.
func (c *copier) copyLink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return errs.New(errs.Fatal, "copy", src, "cannot read link", err)
	}
	if fs.Exists(dst) {
		_ = os.Remove(dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), DirPermission); err != nil {
		return errs.New(errs.Fatal, "copy", dst, "cannot create parent directory", err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return errs.New(errs.Fatal, "copy", dst, "cannot create link", err)
	}
	c.tracker.tickUnit()
	return nil
}

type copyItem struct {
	srcPath string
	dstPath string
	mode    iofs.FileMode
}

// copyTree mirrors the directory src into dst, merging with whatever dst
// already holds. Directories are created first (parents before children),
// then files and links are copied. Devices, sockets and pipes are skipped,
// as are subdirectories that cannot be read.
func (c *copier) copyTree(src, dst string) error {
	var (
		dirs, files []copyItem
		mu          sync.Mutex
	)

	srcLen := len(src)
	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, src, func(fullPath string, d iofs.DirEntry, walkErr error) error {
		if c.ctx.Err() != nil {
			return c.ctx.Err()
		}
		if walkErr != nil {
			debug.Log(debug.FS_WALK, "copy: walk error at %q: %v", fullPath, walkErr)
			return nil
		}

		relPath := fullPath[srcLen:]
		if len(relPath) > 0 && (relPath[0] == '/' || relPath[0] == '\\') {
			relPath = relPath[1:]
		}
		if relPath == "" {
			return nil
		}

		item := copyItem{srcPath: fullPath, dstPath: filepath.Join(dst, relPath), mode: d.Type()}
		switch {
		case d.IsDir():
			if info, err := d.Info(); err == nil {
				item.mode = info.Mode()
			}
			mu.Lock()
			dirs = append(dirs, item)
			mu.Unlock()
		case d.Type().IsRegular(), d.Type()&iofs.ModeSymlink != 0:
			mu.Lock()
			files = append(files, item)
			mu.Unlock()
		default:
			debug.Log(debug.XFER, "copy: skipping special file %q", fullPath)
		}
		return nil
	})
	if err != nil {
		if c.ctx.Err() != nil {
			return c.ctx.Err()
		}
		return errs.New(errs.Fatal, "copy", src, "cannot read source tree", err)
	}

	if err := os.MkdirAll(dst, DirPermission); err != nil {
		return errs.New(errs.Fatal, "copy", dst, "cannot create directory", err)
	}

	// Shorter paths first so parents exist before children.
	sort.Slice(dirs, func(i, j int) bool {
		return len(dirs[i].dstPath) < len(dirs[j].dstPath)
	})
	for _, item := range dirs {
		if c.ctx.Err() != nil {
			return c.ctx.Err()
		}
		if err := os.MkdirAll(item.dstPath, item.mode.Perm()|0o700); err != nil {
			return errs.New(errs.Fatal, "copy", item.dstPath, "cannot create directory", err)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].srcPath < files[j].srcPath
	})
	for _, item := range files {
		if c.ctx.Err() != nil {
			return c.ctx.Err()
		}
		var err error
		if item.mode&iofs.ModeSymlink != 0 {
			err = c.copyLink(item.srcPath, item.dstPath)
		} else {
			err = c.copyFile(item.srcPath, item.dstPath)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// removeAny deletes path whether it is a file, link or directory tree.
func removeAny(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}
