package pane

import (
	"github.com/justyntemme/multipane/internal/errs"
	"github.com/justyntemme/multipane/internal/model"
	"github.com/justyntemme/multipane/internal/transfer"
)

// EventKind identifies what an Event reports.
type EventKind int

const (
	EntriesAppended EventKind = iota
	ListingDone
	ListingError
	AttributeResolved
	SearchBatch
	SearchTruncated
	SearchDone
	SearchError
	TransferProgress
	TransferOutcome
	DirectoryChanged
)

func (k EventKind) String() string {
	switch k {
	case EntriesAppended:
		return "EntriesAppended"
	case ListingDone:
		return "ListingDone"
	case ListingError:
		return "ListingError"
	case AttributeResolved:
		return "AttributeResolved"
	case SearchBatch:
		return "SearchBatch"
	case SearchTruncated:
		return "SearchTruncated"
	case SearchDone:
		return "SearchDone"
	case SearchError:
		return "SearchError"
	case TransferProgress:
		return "TransferProgress"
	case TransferOutcome:
		return "TransferOutcome"
	case DirectoryChanged:
		return "DirectoryChanged"
	default:
		return "Unknown"
	}
}

// Event is one message on a pane's event channel. Which fields are set
// depends on Kind.
type Event struct {
	Kind EventKind
	Gen  int64
	// Path is the listing or search root, the resolved entry for
	// AttributeResolved, or the changed directory.
	Path string

	Entries []model.Entry        // EntriesAppended
	First   int                  // EntriesAppended, SearchBatch: index of the first new row
	Results []model.SearchResult // SearchBatch
	Attr    model.Attr           // AttributeResolved
	Count   int                  // SearchTruncated

	Err   error // ListingError, SearchError
	Class errs.Class

	TransferID string
	Progress   transfer.Progress
	Outcome    *transfer.Outcome
}

// HandleKind is the kind of operation a Handle refers to.
type HandleKind int

const (
	ListingHandle HandleKind = iota
	SearchHandle
	TransferHandle
)

// Handle identifies one in-flight operation for Cancel.
type Handle struct {
	Kind       HandleKind
	Gen        int64
	TransferID string
}
