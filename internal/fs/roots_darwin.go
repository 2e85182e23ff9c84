//go:build darwin

package fs

import (
	"os"
	"path/filepath"
)

const volumesDir = "/Volumes"

func listRoots() []Root {
	entries, err := os.ReadDir(volumesDir)
	if err != nil {
		return []Root{{Label: "Macintosh HD", Path: "/"}}
	}

	var system *Root
	var roots []Root
	for _, e := range entries {
		full := filepath.Join(volumesDir, e.Name())
		// The boot volume shows up as a link back to /.
		if target, err := os.Readlink(full); err == nil && target == "/" {
			system = &Root{Label: e.Name(), Path: "/"}
			continue
		}
		if info, err := os.Stat(full); err != nil || !info.IsDir() {
			continue
		}
		roots = append(roots, Root{Label: e.Name(), Path: full})
	}

	if system == nil {
		system = &Root{Label: "Macintosh HD", Path: "/"}
	}
	return append([]Root{*system}, roots...)
}
