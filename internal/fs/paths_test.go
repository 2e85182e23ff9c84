package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestShouldSkipPath(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		// Root-level system directories
		{"/dev", true},
		{"/proc", true},
		{"/sys", true},
		{"/run", true},
		{"/snap", true},
		{"/boot", true},
		{"/lost+found", true},

		// Subdirectories of system directories
		{"/dev/null", true},
		{"/proc/1/status", true},
		{"/sys/class/net", true},

		// Normal directories
		{"/home", false},
		{"/home/user", false},
		{"/var/log", false},
		{"/tmp", false},
		{"/usr/bin", false},
		{"", false},

		// Edge cases
		{"/development", false}, // Not /dev
		{"/system", false},      // Not /sys
		{"/bootstrap", false},   // Not /boot
	}

	for _, tc := range testCases {
		result := ShouldSkipPath(tc.path)
		if result != tc.expected {
			t.Errorf("ShouldSkipPath(%q): expected %v, got %v", tc.path, tc.expected, result)
		}
	}
}

func TestIsSubpath(t *testing.T) {
	testCases := []struct {
		child, parent string
		expected      bool
	}{
		{"/a/b/c", "/a/b", true},
		{"/a/b", "/a/b", true},
		{"/a/b/", "/a/b", true},
		{"/a/bc", "/a/b", false},
		{"/a", "/a/b", false},
		{"/anything", "/", true},
	}
	for _, tc := range testCases {
		if got := IsSubpath(tc.child, tc.parent); got != tc.expected {
			t.Errorf("IsSubpath(%q, %q): expected %v, got %v", tc.child, tc.parent, tc.expected, got)
		}
	}
}

func TestSamePath(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "a.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !SamePath(file, filepath.Join(tmpDir, ".", "a.txt")) {
		t.Error("cleaned variants should be the same path")
	}
	if SamePath(file, filepath.Join(tmpDir, "b.txt")) {
		t.Error("different names should differ")
	}

	link := filepath.Join(tmpDir, "hard.txt")
	if err := os.Link(file, link); err == nil && !SamePath(file, link) {
		t.Error("hard links should compare as the same object")
	}
}

func TestStatAttr(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "data.bin")
	if err := os.WriteFile(file, make([]byte, 1234), 0644); err != nil {
		t.Fatal(err)
	}

	a := StatAttr(file)
	if a.Failed || a.Size != 1234 || a.ModTime == nil {
		t.Errorf("unexpected file attr: %+v", a)
	}
	if time.Since(*a.ModTime) > time.Hour {
		t.Errorf("modtime looks wrong: %v", a.ModTime)
	}

	d := StatAttr(tmpDir)
	if d.Failed || d.Size != 0 {
		t.Errorf("directories should resolve to size 0: %+v", d)
	}

	gone := StatAttr(filepath.Join(tmpDir, "gone"))
	if !gone.Failed || gone.Size != 0 || gone.ModTime != nil {
		t.Errorf("vanished path should fail with zero values: %+v", gone)
	}
}

func TestListRoots(t *testing.T) {
	roots := ListRoots()
	if len(roots) == 0 {
		t.Fatal("expected at least one root")
	}
	for _, r := range roots {
		if r.Path == "" || r.Label == "" {
			t.Errorf("incomplete root: %+v", r)
		}
	}
}
