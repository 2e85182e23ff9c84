package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/multipane/internal/errs"
)

// makeTree creates files (paths relative to root, "/" separated) with empty content.
// Paths ending in "/" are directories.
func makeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if p[len(p)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o644))
	}
}

func TestRun_FindsFilesAndDirectories(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root,
		"a.txt",
		"sub/b.TXT",
		"sub/deeper/c.txt",
		"sub/deeper/skip.go",
		"notes.txt/",
	)

	results, truncated, err := NewEngine(0, 0).Collect(context.Background(), root, "*.txt")
	require.NoError(t, err)
	assert.False(t, truncated)

	got := make(map[string]string)
	var paths []string
	for _, r := range results {
		got[r.Name] = r.RelFolder
		paths = append(paths, r.Name)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"a.txt", "b.TXT", "c.txt", "notes.txt"}, paths)
	assert.Equal(t, "", got["a.txt"])
	assert.Equal(t, "sub", got["b.TXT"])
	assert.Equal(t, filepath.Join("sub", "deeper"), got["c.txt"])

	for _, r := range results {
		if r.Name == "notes.txt" {
			assert.True(t, r.IsDir)
			assert.Equal(t, "Folder", r.TypeLabel)
		}
	}
}

func TestRun_DoesNotEnterSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	makeTree(t, outside, "hidden.txt")
	makeTree(t, root, "real/visible.txt")
	if err := os.Symlink(outside, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("cannot create symlinks: %v", err)
	}
	// A loop back to the root must not hang the walk.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "real", "loop")))

	results, _, err := NewEngine(0, 0).Collect(context.Background(), root, "*")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range results {
		seen[r.Name] = true
		if r.Name == "link.txt" {
			assert.True(t, r.IsSymlink)
			assert.False(t, r.IsDir)
		}
	}
	assert.True(t, seen["link.txt"], "matching symlink is reported")
	assert.True(t, seen["visible.txt"])
	assert.True(t, seen["loop"])
	assert.False(t, seen["hidden.txt"], "symlinked directory must not be entered")
}

func TestRun_Truncates(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 8; i++ {
		makeTree(t, root, fmt.Sprintf("d%d/f%d.log", i%3, i))
	}

	out := make(chan Message, 64)
	NewEngine(2, 5).Run(context.Background(), root, "*.log", out)
	close(out)

	var (
		total     int
		kinds     []MsgKind
		truncated int
	)
	for m := range out {
		kinds = append(kinds, m.Kind)
		switch m.Kind {
		case MsgBatch:
			assert.LessOrEqual(t, len(m.Results), 2)
			total += len(m.Results)
		case MsgTruncated:
			truncated = m.Count
		}
	}
	assert.Equal(t, 5, total)
	assert.Equal(t, 5, truncated)
	require.GreaterOrEqual(t, len(kinds), 2)
	assert.Equal(t, MsgTruncated, kinds[len(kinds)-2])
	assert.Equal(t, MsgDone, kinds[len(kinds)-1])
}

func TestRun_ExactlyAtLimitIsNotTruncated(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a.log", "b.log", "c.log")

	results, truncated, err := NewEngine(0, 3).Collect(context.Background(), root, "*.log")
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.False(t, truncated)
}

// scannedBy runs a search to the end and returns how many entries the walk examined.
func scannedBy(t *testing.T, e *Engine, root, pattern string) (results int, scanned int) {
	t.Helper()
	out := make(chan Message, 64)
	go func() {
		e.Run(context.Background(), root, pattern, out)
		close(out)
	}()
	done := false
	for m := range out {
		switch m.Kind {
		case MsgBatch:
			results += len(m.Results)
		case MsgDone:
			done = true
			scanned = m.Scanned
		}
	}
	require.True(t, done)
	return results, scanned
}

func TestRun_StopsWalkingAtLimit(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 400; i++ {
		makeTree(t, root, fmt.Sprintf("dir%03d/x.log", i))
	}

	results, full := scannedBy(t, NewEngine(0, 0), root, "*.log")
	assert.Equal(t, 400, results)
	// root, 400 directories, 400 files
	assert.Equal(t, 801, full)

	results, limited := scannedBy(t, NewEngine(0, 1), root, "*.log")
	assert.Equal(t, 1, results)
	assert.Less(t, limited, full/2)
}

func TestRun_SearchesSystemDirectories(t *testing.T) {
	if runtime.GOOS != "linux" || testing.Short() {
		t.Skip("needs a Linux root filesystem")
	}
	if _, err := os.Stat("/proc"); err != nil {
		t.Skipf("no /proc: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	out := make(chan Message, 64)
	go func() {
		NewEngine(0, 0).Run(ctx, "/", "proc", out)
		close(out)
	}()

	found := false
	for m := range out {
		for _, r := range m.Results {
			if r.Path == "/proc" {
				found = true
				cancel()
			}
		}
	}
	assert.True(t, found, "/proc was not reported")
}

func TestRun_UnreadableRoot(t *testing.T) {
	out := make(chan Message, 4)
	NewEngine(0, 0).Run(context.Background(), filepath.Join(t.TempDir(), "missing"), "*", out)
	close(out)

	var msgs []Message
	for m := range out {
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgError, msgs[0].Kind)
	assert.Equal(t, errs.Fatal, errs.ClassOf(msgs[0].Err))
	assert.Equal(t, MsgDone, msgs[1].Kind)
}

func TestRun_UnreadableSubdirectoryIsSkipped(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "ok/a.txt", "locked/b.txt")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	defer os.Chmod(locked, 0o755)

	results, _, err := NewEngine(0, 0).Collect(context.Background(), root, "*.txt")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range results {
		seen[r.Name] = true
	}
	assert.True(t, seen["a.txt"])
}

func TestRun_CancelledSuppressesTruncation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		makeTree(t, root, fmt.Sprintf("f%02d.log", i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Message, 64)
	NewEngine(1, 2).Run(ctx, root, "*.log", out)
	close(out)
	for m := range out {
		assert.NotEqual(t, MsgTruncated, m.Kind)
		assert.NotEqual(t, MsgDone, m.Kind)
	}
}
