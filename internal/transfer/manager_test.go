package transfer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/multipane/internal/store"
)

type fakeJournal struct {
	mu      sync.Mutex
	records []store.TransferRecord
}

func (j *fakeJournal) RecordTransfer(rec store.TransferRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *fakeJournal) all() []store.TransferRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]store.TransferRecord(nil), j.records...)
}

// blockingRun reports once and then waits for release or cancellation.
func blockingRun(release <-chan struct{}) func(context.Context, Request, func(Progress)) Outcome {
	return func(ctx context.Context, req Request, onProgress func(Progress)) Outcome {
		onProgress(Progress{Percent: 40, Phase: Running})
		select {
		case <-release:
			onProgress(Progress{Percent: 100, Phase: Done})
			return Outcome{Phase: Done, Summary: Summary{Succeeded: len(req.Sources)}}
		case <-ctx.Done():
			return Outcome{Phase: Cancelled, Message: CancelledMessage, Err: ctx.Err()}
		}
	}
}

func TestManagerOneTransferPerPane(t *testing.T) {
	journal := &fakeJournal{}
	m := NewManager(NewEngine(Options{}), journal)
	release := make(chan struct{})
	m.run = blockingRun(release)

	req := Request{Op: Copy, Sources: []string{"/a"}, DestDir: "/b"}
	left, err := m.Submit("left", req)
	require.NoError(t, err)

	_, err = m.Submit("left", req)
	assert.ErrorIs(t, err, ErrPaneBusy)

	right, err := m.Submit("right", req)
	require.NoError(t, err)
	assert.NotEqual(t, left.ID, right.ID)

	active, ok := m.Active("left")
	require.True(t, ok)
	assert.Equal(t, left.ID, active.ID)

	close(release)
	assert.Equal(t, Done, left.Wait().Phase)
	assert.Equal(t, Done, right.Wait().Phase)

	_, ok = m.Active("left")
	assert.False(t, ok)
	again, err := m.Submit("left", req)
	require.NoError(t, err)
	again.Wait()

	assert.Len(t, m.History(), 3)
	assert.Equal(t, again.ID, m.History()[0].ID)
	assert.Len(t, journal.all(), 3)
}

func TestManagerCancel(t *testing.T) {
	journal := &fakeJournal{}
	m := NewManager(NewEngine(Options{}), journal)
	m.run = blockingRun(make(chan struct{}))

	tr, err := m.Submit("p", Request{Op: Move, Sources: []string{"/a", "/b"}, DestDir: "/c"})
	require.NoError(t, err)

	assert.True(t, m.Cancel(tr.ID))
	out := tr.Wait()
	assert.Equal(t, Cancelled, out.Phase)
	assert.Equal(t, CancelledMessage, out.Message)
	assert.False(t, m.Cancel(tr.ID), "finished transfer is no longer cancellable")
	assert.False(t, m.Cancel("unknown"))

	recs := journal.all()
	require.Len(t, recs, 1)
	assert.Equal(t, "move", recs[0].Op)
	assert.Equal(t, "cancelled", recs[0].Phase)
	assert.Equal(t, []string{"/a", "/b"}, recs[0].Sources)
	assert.Equal(t, tr.ID, recs[0].ID)
	assert.False(t, recs[0].FinishedAt.Before(recs[0].StartedAt))
}

func TestManagerUpdatesClosedAfterRun(t *testing.T) {
	m := NewManager(NewEngine(Options{}), nil)
	release := make(chan struct{})
	close(release)
	m.run = blockingRun(release)

	tr, err := m.Submit("p", Request{Op: Copy, Sources: []string{"/a"}, DestDir: "/b"})
	require.NoError(t, err)

	var got []Progress
	for p := range tr.Updates() {
		got = append(got, p)
	}
	<-tr.Done()
	require.Len(t, got, 2)
	assert.Equal(t, 100, got[1].Percent)
	assert.Equal(t, 100, tr.Last().Percent)

	snap := tr.Snapshot()
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, Done, snap.Outcome.Phase)
}

func TestManagerRejectsInvalidRequest(t *testing.T) {
	m := NewManager(NewEngine(Options{}), nil)
	_, err := m.Submit("p", Request{Op: Copy, Sources: []string{"/a"}})
	assert.ErrorIs(t, err, ErrNoDestination)
	_, ok := m.Active("p")
	assert.False(t, ok)
}

func TestManagerHistoryBounded(t *testing.T) {
	m := NewManager(NewEngine(Options{}), nil)
	m.run = func(context.Context, Request, func(Progress)) Outcome { return Outcome{Phase: Done} }

	for i := 0; i < historyMax+5; i++ {
		tr, err := m.Submit("p", Request{Op: Copy, DestDir: "/d"})
		require.NoError(t, err)
		tr.Wait()
	}
	assert.Len(t, m.History(), historyMax)
}

func TestManagerShutdownCancelsRunning(t *testing.T) {
	m := NewManager(NewEngine(Options{}), nil)
	m.run = blockingRun(make(chan struct{}))

	a, err := m.Submit("a", Request{Op: Copy, DestDir: "/d"})
	require.NoError(t, err)
	b, err := m.Submit("b", Request{Op: Copy, DestDir: "/d"})
	require.NoError(t, err)

	m.Shutdown()
	assert.Equal(t, Cancelled, a.Wait().Phase)
	assert.Equal(t, Cancelled, b.Wait().Phase)
}

func TestManagerRealCopy(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "f.txt"), "12345")

	journal := &fakeJournal{}
	m := NewManager(NewEngine(Options{}), journal)
	tr, err := m.Submit("left", Request{Op: Copy, Sources: []string{filepath.Join(src, "f.txt")}, DestDir: dst})
	require.NoError(t, err)

	out := tr.Wait()
	require.Equal(t, Done, out.Phase, out.Message)
	assert.Equal(t, "12345", readFile(t, filepath.Join(dst, "f.txt")))

	recs := journal.all()
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(5), recs[0].Bytes)
	assert.Equal(t, 1, recs[0].Succeeded)
}
