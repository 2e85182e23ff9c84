//go:build debug

// Package debug provides categorized debug tracing on top of the zap logger.
// Build with -tags debug to enable it; MULTIPANE_DEBUG narrows the output.
package debug

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/justyntemme/multipane/internal/logging"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	APP     Category = "APP"     // Pane lifecycle, generations, CLI wiring
	FS      Category = "FS"      // Directory listing
	RESOLVE Category = "RESOLVE" // Lazy attribute resolution batches
	SEARCH  Category = "SEARCH"  // Pattern parsing, recursive search
	XFER    Category = "XFER"    // Copy/move engine and manager
	STORE   Category = "STORE"   // Transfer journal

	// Verbose, off unless asked for
	FS_ENTRY Category = "FS_ENTRY" // Individual entry processing
	FS_WALK  Category = "FS_WALK"  // Directory walking during search and size scans
)

var verbose = map[Category]bool{FS_ENTRY: true, FS_WALK: true}

// enabled is fixed at startup and read without locking.
var enabled = parseCategories(os.Getenv("MULTIPANE_DEBUG"))

// parseCategories reads "" (everything but the verbose categories), "all",
// "none" or a comma-separated category list.
func parseCategories(env string) func(Category) bool {
	switch env = strings.ToUpper(strings.TrimSpace(env)); env {
	case "":
		return func(cat Category) bool { return !verbose[cat] }
	case "ALL":
		return func(Category) bool { return true }
	case "NONE":
		return func(Category) bool { return false }
	}
	set := make(map[Category]bool)
	for _, cat := range strings.Split(env, ",") {
		set[Category(strings.TrimSpace(cat))] = true
	}
	return func(cat Category) bool { return set[cat] }
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...any) {
	if !enabled(cat) {
		return
	}
	logging.L().Debug(fmt.Sprintf(format, args...), zap.String("cat", string(cat)))
}
