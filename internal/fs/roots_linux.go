//go:build linux

package fs

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// virtualFSTypes are mount types that never hold user files.
var virtualFSTypes = map[string]bool{
	"tmpfs":    true,
	"devtmpfs": true,
	"cgroup":   true,
	"cgroup2":  true,
	"overlay":  true,
	"squashfs": true,
}

func listRoots() []Root {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return []Root{{Label: "/ (Root)", Path: "/"}}
	}
	defer f.Close()
	return parseMounts(f)
}

// parseMounts reads /proc/mounts format and keeps real, user-facing mounts.
func parseMounts(r io.Reader) []Root {
	roots := []Root{{Label: "/ (Root)", Path: "/"}}
	seen := map[string]bool{"/": true}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if seen[mountPoint] || virtualFSTypes[fsType] || ShouldSkipPath(mountPoint) {
			continue
		}
		seen[mountPoint] = true

		label := mountPoint
		switch {
		case strings.HasPrefix(mountPoint, "/media/"), strings.HasPrefix(mountPoint, "/mnt/"):
			label = filepath.Base(mountPoint)
		case mountPoint == "/home":
			label = "Home"
		}
		roots = append(roots, Root{Label: label, Path: mountPoint})
	}
	return roots
}
