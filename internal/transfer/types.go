// Package transfer copies and moves files and directories with per-item
// conflict resolution, progress reporting and cooperative cancellation.
package transfer

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/justyntemme/multipane/internal/errs"
)

// Op is the kind of transfer.
type Op int

const (
	Copy Op = iota
	Move
)

func (o Op) String() string {
	if o == Move {
		return "move"
	}
	return "copy"
}

// ParseOp maps "copy"/"cp" and "move"/"mv" to an Op.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(s) {
	case "copy", "cp":
		return Copy, nil
	case "move", "mv":
		return Move, nil
	}
	return Copy, fmt.Errorf("unknown transfer op %q", s)
}

// Resolution says what to do when a source's destination already exists.
type Resolution int

const (
	// Merge is the zero value: files are overwritten in place and
	// directories are merged into the existing one.
	Merge Resolution = iota
	Overwrite
	Skip
	KeepBoth
)

func (r Resolution) String() string {
	switch r {
	case Overwrite:
		return "overwrite"
	case Skip:
		return "skip"
	case KeepBoth:
		return "keepboth"
	default:
		return "merge"
	}
}

// ParseResolution maps a flag or config value to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "merge":
		return Merge, nil
	case "overwrite", "replace":
		return Overwrite, nil
	case "skip":
		return Skip, nil
	case "keepboth", "keep-both", "copy":
		return KeepBoth, nil
	}
	return Merge, fmt.Errorf("unknown conflict resolution %q", s)
}

// Request describes one transfer. Conflicts is keyed by source path exactly
// as it appears in Sources.
type Request struct {
	Op        Op
	Sources   []string
	DestDir   string
	Conflicts map[string]Resolution
}

// Clone returns a deep copy so the caller can keep mutating its own slices.
func (r Request) Clone() Request {
	r.Sources = slices.Clone(r.Sources)
	r.Conflicts = maps.Clone(r.Conflicts)
	return r
}

var ErrNoDestination = errors.New("transfer has no destination directory")

// Validate checks the request before it is queued.
func (r Request) Validate() error {
	if r.DestDir == "" {
		return ErrNoDestination
	}
	if r.Op != Copy && r.Op != Move {
		return fmt.Errorf("invalid transfer op %d", r.Op)
	}
	return nil
}

// Phase is the lifecycle stage of a transfer.
type Phase int

const (
	Preparing Phase = iota
	Running
	Done
	Cancelled
	Failed
)

func (p Phase) String() string {
	switch p {
	case Preparing:
		return "preparing"
	case Running:
		return "running"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further progress follows this phase.
func (p Phase) Terminal() bool {
	return p == Done || p == Cancelled || p == Failed
}

// Progress is one progress report. Percent never decreases within a transfer.
type Progress struct {
	Percent    int
	Phase      Phase
	Message    string
	CountBased bool
}

// ItemStatus is the result of processing one source.
type ItemStatus int

const (
	ItemDone ItemStatus = iota
	ItemSkipped
	ItemBlocked
	ItemFailed
	ItemCancelled
)

// Summary aggregates per-item results of a transfer.
type Summary struct {
	Succeeded int
	Skipped   int
	Blocked   int
	Failed    int
	// Warnings holds the Blocked-class errors of refused sources, such as a
	// directory whose destination lies inside it.
	Warnings []*errs.Error
	// Messages are the soft status lines emitted while running.
	Messages []string
	Bytes    uint64
}

func (s *Summary) add(status ItemStatus, err error) {
	switch status {
	case ItemDone:
		s.Succeeded++
	case ItemSkipped:
		s.Skipped++
	case ItemBlocked:
		s.Blocked++
		var e *errs.Error
		if errors.As(err, &e) {
			s.Warnings = append(s.Warnings, e)
		}
	case ItemFailed:
		s.Failed++
	}
}

// Outcome is the terminal result of a transfer.
type Outcome struct {
	Phase   Phase
	Message string
	Err     error
	Summary Summary
}
