package transfer

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/justyntemme/multipane/internal/fs"
)

// UniqueDestPath returns a path in dir for name that does not exist yet:
// name itself, then "<base> - Copy<ext>", then "<base> - Copy (2)<ext>" and so on.
func UniqueDestPath(dir, name string) string {
	base, ext := splitName(name)
	candidate := filepath.Join(dir, name)
	for i := 1; fs.Exists(candidate); i++ {
		suffix := " - Copy"
		if i > 1 {
			suffix = " - Copy (" + strconv.Itoa(i) + ")"
		}
		candidate = filepath.Join(dir, base+suffix+ext)
	}
	return candidate
}

// splitName separates the extension; a leading dot alone is not one.
func splitName(name string) (base, ext string) {
	ext = filepath.Ext(name)
	base = strings.TrimSuffix(name, ext)
	if base == "" {
		return name, ""
	}
	return base, ext
}
