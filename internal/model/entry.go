// Package model holds the per-pane data the engine fills in: directory
// entries, their lazily resolved attributes and search results.
package model

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Entry is one row of a directory listing or search result.
// Size and ModTime stay nil until the attribute resolver reports them.
type Entry struct {
	Name      string
	Path      string
	IsDir     bool
	IsSymlink bool
	Size      *uint64
	ModTime   *time.Time
	TypeLabel string
}

// NewEntry builds an unresolved entry for name inside dir.
func NewEntry(dir, name string, isDir, isSymlink bool) Entry {
	return Entry{
		Name:      name,
		Path:      filepath.Join(dir, name),
		IsDir:     isDir,
		IsSymlink: isSymlink,
		TypeLabel: TypeLabel(name, isDir),
	}
}

// TypeLabel returns "Folder" for directories, "<EXT> file" for files with an
// extension and "File" otherwise.
func TypeLabel(name string, isDir bool) string {
	if isDir {
		return "Folder"
	}
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return "File"
	}
	return strings.ToUpper(ext[1:]) + " file"
}

// Resolved reports whether the resolver has filled in this entry.
func (e Entry) Resolved() bool {
	return e.Size != nil || e.ModTime != nil
}

// SizeBytes is the size used for display and ordering.
// Directories and unresolved entries are 0.
func (e Entry) SizeBytes() uint64 {
	if e.IsDir || e.Size == nil {
		return 0
	}
	return *e.Size
}

// ModifiedAt returns the modification time, or the zero time when unresolved.
func (e Entry) ModifiedAt() time.Time {
	if e.ModTime == nil {
		return time.Time{}
	}
	return *e.ModTime
}

// DisplaySize renders the size for a listing column. Directories and
// unresolved entries render empty.
func (e Entry) DisplaySize() string {
	if e.IsDir || e.Size == nil {
		return ""
	}
	return humanize.IBytes(*e.Size)
}

// WithAttr returns a copy of e carrying the resolved attributes.
// Directories never take a size.
func (e Entry) WithAttr(a Attr) Entry {
	var size uint64
	if !e.IsDir {
		size = a.Size
	}
	e.Size = &size
	if a.ModTime != nil {
		mt := *a.ModTime
		e.ModTime = &mt
	} else {
		e.ModTime = nil
	}
	return e
}
