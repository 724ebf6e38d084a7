package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
	"github.com/Texasdada13/procurement-intel-tool/internal/store"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type stubRunner struct {
	summary engine.RunSummary
	err     error
	block   chan struct{}
	calls   int
}

func (r *stubRunner) Run(context.Context) (engine.RunSummary, error) {
	r.calls++
	if r.block != nil {
		<-r.block
	}
	return r.summary, r.err
}

var schedNow = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, runner Runner, st engine.Store) *Scheduler {
	t.Helper()
	s, err := New(runner, st, fixedClock{now: schedNow}, Config{
		DiscoveryInterval: time.Hour,
		DeadlineCheckTime: "08:00",
		ReminderWindow:    3 * 24 * time.Hour,
	}, nil)
	require.NoError(t, err)
	return s
}

func TestTriggerDiscovery(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{summary: engine.RunSummary{RunID: "run-1", New: 2}}
	s := newScheduler(t, runner, store.NewMemoryStore())

	summary, err := s.TriggerDiscovery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 1, runner.calls)

	status := s.Status()
	require.NotNil(t, status.LastRun)
	assert.Equal(t, "run-1", status.LastRun.RunID)
	assert.False(t, status.DiscoveryRunning)
}

func TestTriggerDiscoverySingleFlight(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{block: make(chan struct{})}
	s := newScheduler(t, runner, store.NewMemoryStore())

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.TriggerDiscovery(context.Background())
		firstDone <- err
	}()

	// wait for the first trigger to take the guard
	require.Eventually(t, func() bool {
		return s.Status().DiscoveryRunning
	}, time.Second, 5*time.Millisecond)

	_, err := s.TriggerDiscovery(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(runner.block)
	require.NoError(t, <-firstDone)
}

func TestDeadlineSweep(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	ctx := context.Background()

	expired := record("op-expired", "fp-1")
	expired.DueDate = datePtr(schedNow.Add(-24 * time.Hour))
	closingSoon := record("op-soon", "fp-2")
	closingSoon.DueDate = datePtr(schedNow.Add(48 * time.Hour))
	farOut := record("op-far", "fp-3")
	farOut.DueDate = datePtr(schedNow.Add(30 * 24 * time.Hour))
	for _, rec := range []engine.OpportunityRecord{expired, closingSoon, farOut} {
		require.NoError(t, st.Insert(ctx, rec))
	}

	s := newScheduler(t, &stubRunner{}, st)
	require.NoError(t, s.TriggerDeadlineCheck(ctx))

	stillOpen, err := st.List(ctx, engine.ListFilter{Status: engine.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, stillOpen, 2)

	closed, err := st.List(ctx, engine.ListFilter{Status: engine.StatusClosed})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "op-expired", closed[0].ID)
}

func TestStoreLossSuspendsScheduler(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{err: fmt.Errorf("insert: %w", engine.ErrStoreUnavailable)}
	s := newScheduler(t, runner, store.NewMemoryStore())

	_, err := s.TriggerDiscovery(context.Background())
	require.Error(t, err)
	assert.True(t, s.Status().Suspended)

	_, err = s.TriggerDiscovery(context.Background())
	assert.ErrorIs(t, err, ErrSuspended)
	assert.ErrorIs(t, s.TriggerDeadlineCheck(context.Background()), ErrSuspended)
	assert.Equal(t, 1, runner.calls)
}

func TestStartRunsInitialDiscovery(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{summary: engine.RunSummary{RunID: "run-boot"}}
	s := newScheduler(t, runner, store.NewMemoryStore())

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return s.Status().LastRun != nil
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, "run-boot", s.Status().LastRun.RunID)
}

func TestRejectsBadDeadlineCheckTime(t *testing.T) {
	t.Parallel()

	_, err := New(&stubRunner{}, store.NewMemoryStore(), fixedClock{now: schedNow},
		Config{DeadlineCheckTime: "8 o'clock"}, nil)
	assert.Error(t, err)
}

func TestUntilNext(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Minute, untilNext(now, "08:00"))

	// already past today's slot, so the next one is tomorrow
	after := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 23*time.Hour, untilNext(after, "08:00"))
}

func record(id, fingerprint string) engine.OpportunityRecord {
	return engine.OpportunityRecord{
		ID:          id,
		SourceID:    "mfmp",
		Title:       "Opportunity " + id,
		Fingerprint: fingerprint,
		Status:      engine.StatusOpen,
		Category:    engine.CategoryOther,
	}
}

func datePtr(t time.Time) *time.Time { return &t }
