//go:build !debug

// Package debug provides categorized debug tracing.
// This is the no-op version for release builds.
package debug

// Enabled indicates whether debug logging is active
const Enabled = false

// Category represents a debug logging category
type Category string

const (
	APP      Category = "APP"
	FS       Category = "FS"
	RESOLVE  Category = "RESOLVE"
	SEARCH   Category = "SEARCH"
	XFER     Category = "XFER"
	STORE    Category = "STORE"
	FS_ENTRY Category = "FS_ENTRY"
	FS_WALK  Category = "FS_WALK"
)

// Log is a no-op in release builds
func Log(cat Category, format string, args ...any) {}
