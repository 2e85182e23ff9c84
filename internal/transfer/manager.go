package transfer

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/logging"
	"github.com/justyntemme/multipane/internal/store"
)

// ErrPaneBusy is returned when a pane already has a transfer in flight.
var ErrPaneBusy = errors.New("a transfer is already running for this pane")

const historyMax = 100

// Journal persists finished transfers.
type Journal interface {
	RecordTransfer(rec store.TransferRecord) error
}

// Snapshot is a copy of a transfer's state safe to hand to other goroutines.
type Snapshot struct {
	ID         string
	Pane       string
	Op         Op
	Sources    []string
	DestDir    string
	Progress   Progress
	Outcome    *Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Transfer is a submitted transfer. Progress arrives on Updates, which is
// lossy under back-pressure and closed after the run ends; the outcome is
// always available from Wait once Done is closed.
type Transfer struct {
	ID        string
	Pane      string
	Request   Request
	StartedAt time.Time

	cancel  context.CancelFunc
	updates chan Progress
	done    chan struct{}

	mu         sync.Mutex
	last       Progress
	outcome    *Outcome
	finishedAt time.Time
}

func (t *Transfer) Updates() <-chan Progress { return t.updates }
func (t *Transfer) Done() <-chan struct{}    { return t.done }

// Cancel asks the transfer to stop at the next chunk, file or item boundary.
func (t *Transfer) Cancel() { t.cancel() }

// Wait blocks until the transfer ends and returns its outcome.
func (t *Transfer) Wait() Outcome {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.outcome
}

// Last returns the most recent progress report.
func (t *Transfer) Last() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Transfer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{
		ID:         t.ID,
		Pane:       t.Pane,
		Op:         t.Request.Op,
		Sources:    slices.Clone(t.Request.Sources),
		DestDir:    t.Request.DestDir,
		Progress:   t.last,
		StartedAt:  t.StartedAt,
		FinishedAt: t.finishedAt,
	}
	if t.outcome != nil {
		o := *t.outcome
		s.Outcome = &o
	}
	return s
}

func (t *Transfer) report(p Progress) {
	t.mu.Lock()
	t.last = p
	t.mu.Unlock()
	select {
	case t.updates <- p:
	default:
		// Channel full, skip this update
	}
}

// Manager runs transfers, at most one per pane, and keeps their history.
type Manager struct {
	run     func(ctx context.Context, req Request, onProgress func(Progress)) Outcome
	journal Journal

	mu      sync.Mutex
	active  map[string]*Transfer // by pane
	byID    map[string]*Transfer
	history []Snapshot
	wg      sync.WaitGroup
}

// NewManager creates a Manager. journal may be nil.
func NewManager(engine *Engine, journal Journal) *Manager {
	return &Manager{
		run:     engine.Run,
		journal: journal,
		active:  make(map[string]*Transfer),
		byID:    make(map[string]*Transfer),
	}
}

// Submit starts req for pane on its own goroutine. It fails with
// ErrPaneBusy while the pane's previous transfer is still running.
func (m *Manager) Submit(pane string, req Request) (*Transfer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, busy := m.active[pane]; busy {
		m.mu.Unlock()
		return nil, ErrPaneBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Transfer{
		ID:        uuid.NewString(),
		Pane:      pane,
		Request:   req.Clone(),
		StartedAt: time.Now(),
		cancel:    cancel,
		updates:   make(chan Progress, 64),
		done:      make(chan struct{}),
	}
	m.active[pane] = t
	m.byID[t.ID] = t
	m.wg.Add(1)
	m.mu.Unlock()

	debug.Log(debug.XFER, "submit: id=%s pane=%s op=%s sources=%d dest=%q", t.ID, pane, req.Op, len(req.Sources), req.DestDir)
	go m.execute(ctx, t)
	return t, nil
}

func (m *Manager) execute(ctx context.Context, t *Transfer) {
	defer m.wg.Done()
	defer t.cancel()

	outcome := m.run(ctx, t.Request, t.report)

	t.mu.Lock()
	t.outcome = &outcome
	t.finishedAt = time.Now()
	t.mu.Unlock()

	m.mu.Lock()
	delete(m.active, t.Pane)
	delete(m.byID, t.ID)
	m.history = append(m.history, t.Snapshot())
	if len(m.history) > historyMax {
		m.history = m.history[len(m.history)-historyMax:]
	}
	m.mu.Unlock()

	logging.Info("transfer finished",
		logging.String("id", t.ID),
		logging.String("op", t.Request.Op.String()),
		logging.Strings("sources", t.Request.Sources),
		logging.String("phase", outcome.Phase.String()),
		logging.Int("failed", outcome.Summary.Failed),
		logging.Duration("elapsed", time.Since(t.StartedAt)),
		logging.String("summary", outcome.Summary.String()),
	)
	m.record(t, outcome)

	close(t.updates)
	close(t.done)
}

func (m *Manager) record(t *Transfer, o Outcome) {
	if m.journal == nil {
		return
	}
	snap := t.Snapshot()
	rec := store.TransferRecord{
		ID:         snap.ID,
		Pane:       snap.Pane,
		Op:         snap.Op.String(),
		Sources:    snap.Sources,
		DestDir:    snap.DestDir,
		Phase:      o.Phase.String(),
		Message:    o.Message,
		Succeeded:  o.Summary.Succeeded,
		Skipped:    o.Summary.Skipped,
		Blocked:    o.Summary.Blocked,
		Failed:     o.Summary.Failed,
		Bytes:      o.Summary.Bytes,
		StartedAt:  snap.StartedAt,
		FinishedAt: snap.FinishedAt,
	}
	if err := m.journal.RecordTransfer(rec); err != nil {
		logging.Warn("journal write failed", logging.String("id", t.ID), logging.Err(err))
	}
}

// Cancel cancels the running transfer with id.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	t, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	debug.Log(debug.XFER, "cancel: id=%s", id)
	t.Cancel()
	return true
}

// Active returns the running transfer of pane, if any.
func (m *Manager) Active(pane string) (*Transfer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.active[pane]
	return t, ok
}

// History returns finished transfers, newest first.
func (m *Manager) History() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, len(m.history))
	for i, s := range m.history {
		out[len(m.history)-1-i] = s
	}
	return out
}

// Shutdown cancels every running transfer and waits for them to end.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, t := range m.active {
		t.Cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
