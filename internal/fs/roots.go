package fs

// Root is a mounted volume a pane can start browsing from.
type Root struct {
	Label string
	Path  string
}

// ListRoots returns the mounted volumes of this machine, the system root first.
func ListRoots() []Root {
	roots := listRoots()
	if len(roots) == 0 {
		return []Root{{Label: "/", Path: "/"}}
	}
	return roots
}
