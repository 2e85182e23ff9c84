package fs

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Key normalizes a path for comparison: absolute, cleaned and, on
// case-insensitive platforms, lower-cased.
func Key(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

// SamePath reports whether a and b name the same filesystem object.
// Existing paths are compared by identity so hard links and case variants
// match; otherwise the normalized keys are compared.
func SamePath(a, b string) bool {
	if Key(a) == Key(b) {
		return true
	}
	ai, errA := os.Stat(a)
	bi, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// IsSubpath reports whether child is parent or lies beneath it.
func IsSubpath(child, parent string) bool {
	c, p := Key(child), Key(parent)
	if c == p {
		return true
	}
	if !strings.HasSuffix(p, string(filepath.Separator)) {
		p += string(filepath.Separator)
	}
	return strings.HasPrefix(c, p)
}

// skipDirRoots contains top-level pseudo-filesystem directories that a
// recursive walk from "/" should not enter.
var skipDirRoots = map[string]bool{
	"dev":        true,
	"proc":       true,
	"sys":        true,
	"run":        true,
	"snap":       true,
	"boot":       true,
	"lost+found": true,
}

// ShouldSkipPath returns true if a recursive walk should not descend into path.
// Only absolute Unix paths whose first component is a pseudo-filesystem match.
func ShouldSkipPath(path string) bool {
	if len(path) < 2 || path[0] != '/' {
		return false
	}
	rest := path[1:]
	slashIdx := strings.IndexByte(rest, '/')
	var firstComponent string
	if slashIdx == -1 {
		firstComponent = rest
	} else {
		firstComponent = rest[:slashIdx]
	}
	return skipDirRoots[firstComponent]
}
