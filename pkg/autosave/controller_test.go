package autosave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/setlist/pkg/autosave"
	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/sequence"
)

// manualClock fires scheduled tasks only when Advance is called.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *manualClock) schedule(d time.Duration, f func()) autosave.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *manualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// recordingStore records patches and can be made to fail or block.
type recordingStore struct {
	mu      sync.Mutex
	patches []core.DocumentPatch
	fail    error
	block   chan struct{}
	entered chan struct{}
}

func (s *recordingStore) Patch(ctx context.Context, id string, p core.DocumentPatch) error {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.patches = append(s.patches, p)
	return nil
}

func (s *recordingStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patches)
}

func (s *recordingStore) Last() core.DocumentPatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches[len(s.patches)-1]
}

func setup(t *testing.T, opts ...autosave.Option) (*autosave.Controller, *recordingStore, *manualClock) {
	t.Helper()
	clock := &manualClock{}
	store := &recordingStore{}
	opts = append([]autosave.Option{autosave.WithScheduler(clock.schedule)}, opts...)
	ctrl := autosave.New(store, opts...)
	t.Cleanup(ctrl.Close)
	return ctrl, store, clock
}

func doc() core.Document {
	return core.Document{
		ID:    "set-1",
		Title: "Live",
		Items: core.Items{core.Song{ID: "a", Title: "A"}, core.Song{ID: "b", Title: "B"}},
	}
}

func TestController_NoCommitBeforeLoad(t *testing.T) {
	ctrl, store, clock := setup(t)

	assert.Equal(t, autosave.StatusUninitialized, ctrl.Status())
	assert.ErrorIs(t, ctrl.SetTitle("x"), autosave.ErrNotLoaded)
	assert.ErrorIs(t, ctrl.Flush(context.Background()), autosave.ErrNotLoaded)

	clock.Advance(time.Second)
	assert.Equal(t, 0, store.Count())
}

func TestController_LoadIsClean(t *testing.T) {
	ctrl, store, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))

	assert.Equal(t, autosave.StatusLoaded, ctrl.Status())
	assert.False(t, ctrl.Dirty())
	clock.Advance(time.Second)
	assert.Equal(t, 0, store.Count())
}

func TestController_CoalescesEditsWithinInterval(t *testing.T) {
	ctrl, store, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))

	require.NoError(t, ctrl.SetTitle("Live at Budokan"))
	clock.Advance(200 * time.Millisecond)
	require.NoError(t, ctrl.Apply(func(items []core.Item) []core.Item {
		return sequence.MoveTo(items, 0, 1)
	}))
	assert.Equal(t, autosave.StatusDirty, ctrl.Status())

	// 350ms after the first edit but only 150ms after the second.
	clock.Advance(150 * time.Millisecond)
	assert.Equal(t, 0, store.Count())

	clock.Advance(200 * time.Millisecond)
	require.Equal(t, 1, store.Count())

	p := store.Last()
	require.NotNil(t, p.Title)
	require.NotNil(t, p.Items)
	assert.Equal(t, "Live at Budokan", *p.Title)
	assert.Equal(t, "b", (*p.Items)[0].ItemID())
	assert.False(t, p.UpdatedAt.IsZero())
	assert.Equal(t, autosave.StatusLoaded, ctrl.Status())

	clock.Advance(time.Second)
	assert.Equal(t, 1, store.Count())
}

func TestController_RevertToCommittedCancels(t *testing.T) {
	ctrl, store, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))

	require.NoError(t, ctrl.SetTitle("other"))
	require.NoError(t, ctrl.SetTitle("Live"))
	assert.False(t, ctrl.Dirty())
	assert.Equal(t, 0, clock.Active())

	clock.Advance(time.Second)
	assert.Equal(t, 0, store.Count())
}

func TestController_OneTimerAtATime(t *testing.T) {
	ctrl, _, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))

	for i := 0; i < 5; i++ {
		require.NoError(t, ctrl.SetTitle(string(rune('a'+i))))
	}
	assert.Equal(t, 1, clock.Active())
}

func TestController_LoadCancelsPendingCommit(t *testing.T) {
	ctrl, store, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))
	require.NoError(t, ctrl.SetTitle("stale edit"))

	fresh := doc()
	fresh.Title = "fresh from storage"
	require.NoError(t, ctrl.Load(fresh))

	clock.Advance(time.Second)
	assert.Equal(t, 0, store.Count())
	assert.Equal(t, "fresh from storage", ctrl.Snapshot().Title)
}

func TestController_CloseCancels(t *testing.T) {
	ctrl, store, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))
	require.NoError(t, ctrl.SetTitle("x"))
	assert.False(t, ctrl.Closed())

	ctrl.Close()
	assert.True(t, ctrl.Closed())
	clock.Advance(time.Second)
	assert.Equal(t, 0, store.Count())
	assert.ErrorIs(t, ctrl.SetTitle("y"), autosave.ErrClosed)
	assert.ErrorIs(t, ctrl.Load(doc()), autosave.ErrClosed)
}

func TestController_FailureKeepsBufferAndReports(t *testing.T) {
	var reported []error
	ctrl, store, clock := setup(t, autosave.WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))
	require.NoError(t, ctrl.Load(doc()))

	boom := &core.StorageError{Op: "patch", ID: "set-1", Err: errors.New("disk full")}
	store.fail = boom

	require.NoError(t, ctrl.SetTitle("edited"))
	clock.Advance(time.Second)

	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], boom)
	assert.ErrorIs(t, ctrl.LastError(), boom)
	assert.Equal(t, "edited", ctrl.Snapshot().Title, "buffer is not rolled back")
	assert.True(t, ctrl.Dirty())
	assert.Equal(t, 0, clock.Active(), "failures are not retried on their own")

	// The next edit re-arms the debounce and succeeds.
	store.fail = nil
	require.NoError(t, ctrl.SetTitle("edited again"))
	clock.Advance(time.Second)
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, "edited again", *store.Last().Title)
	assert.NoError(t, ctrl.LastError())
	assert.False(t, ctrl.Dirty())
}

func TestController_Flush(t *testing.T) {
	var commits []autosave.Commit
	stamp := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	ctrl, store, clock := setup(t,
		autosave.WithClock(func() time.Time { return stamp }),
		autosave.WithCommitHook(func(c autosave.Commit) { commits = append(commits, c) }),
	)
	require.NoError(t, ctrl.Load(doc()))

	require.NoError(t, ctrl.Flush(context.Background()), "clean flush is a no-op")
	assert.Equal(t, 0, store.Count())

	require.NoError(t, ctrl.SetTitle("now"))
	require.NoError(t, ctrl.Flush(context.Background()))
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, stamp, store.Last().UpdatedAt)
	assert.Equal(t, []autosave.Commit{{ID: "set-1", UpdatedAt: stamp}}, commits)

	clock.Advance(time.Second)
	assert.Equal(t, 1, store.Count(), "flush cancelled the timer")
}

func TestController_EditDuringWriteIsNotLost(t *testing.T) {
	ctrl, store, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))

	store.block = make(chan struct{})
	store.entered = make(chan struct{}, 4)

	require.NoError(t, ctrl.SetTitle("first"))
	done := make(chan struct{})
	go func() {
		clock.Advance(time.Second)
		close(done)
	}()
	<-store.entered
	assert.Equal(t, autosave.StatusCommitting, ctrl.Status())

	// While "first" is being written, the user goes back to the original
	// title. That matches the old committed key, so no timer is armed yet.
	require.NoError(t, ctrl.SetTitle("Live"))
	store.block <- struct{}{}
	<-done

	require.Equal(t, 1, store.Count())
	assert.Equal(t, "first", *store.Last().Title)
	assert.True(t, ctrl.Dirty(), "buffer differs from what was written")
	assert.Equal(t, 1, clock.Active(), "a commit is re-armed")

	store.block = nil
	store.entered = nil
	clock.Advance(time.Second)
	require.Equal(t, 2, store.Count())
	assert.Equal(t, "Live", *store.Last().Title)
	assert.False(t, ctrl.Dirty())
}

func TestController_ReloadDuringWriteDisownsResult(t *testing.T) {
	ctrl, store, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))

	store.block = make(chan struct{})
	store.entered = make(chan struct{}, 1)

	require.NoError(t, ctrl.SetTitle("old session edit"))
	done := make(chan struct{})
	go func() {
		clock.Advance(time.Second)
		close(done)
	}()
	<-store.entered

	other := core.Document{ID: "set-2", Title: "Other"}
	require.NoError(t, ctrl.Load(other))
	close(store.block)
	<-done

	assert.Equal(t, autosave.StatusLoaded, ctrl.Status())
	assert.Equal(t, "set-2", ctrl.Snapshot().ID)
	assert.False(t, ctrl.Dirty())
}

func TestController_Refresh(t *testing.T) {
	ctrl, store, clock := setup(t)
	require.NoError(t, ctrl.Load(doc()))

	external := doc()
	external.Title = "changed elsewhere"
	external.UpdatedAt = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	assert.True(t, ctrl.Refresh(external))
	assert.Equal(t, "changed elsewhere", ctrl.Snapshot().Title)

	assert.False(t, ctrl.Refresh(external), "same content is ignored")

	wrongID := external
	wrongID.ID = "other"
	wrongID.Title = "x"
	assert.False(t, ctrl.Refresh(wrongID))

	require.NoError(t, ctrl.SetTitle("local edit"))
	newer := doc()
	newer.Title = "newer elsewhere"
	newer.UpdatedAt = external.UpdatedAt.Add(time.Hour)
	assert.False(t, ctrl.Refresh(newer), "dirty buffers are never overwritten")

	clock.Advance(time.Second)
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, "local edit", ctrl.Snapshot().Title)
}

func TestController_RefreshIgnoresReadsOlderThanCommit(t *testing.T) {
	t0 := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	stamp := t0.Add(time.Minute)
	ctrl, store, _ := setup(t, autosave.WithClock(func() time.Time { return stamp }))

	loaded := doc()
	loaded.UpdatedAt = t0
	require.NoError(t, ctrl.Load(loaded))

	// A reader fetched the stored setlist before our write landed.
	staleRead := loaded

	require.NoError(t, ctrl.SetTitle("local edit"))
	require.NoError(t, ctrl.Flush(context.Background()))
	require.Equal(t, 1, store.Count())

	assert.False(t, ctrl.Refresh(staleRead))
	assert.Equal(t, "local edit", ctrl.Snapshot().Title)

	sameInstant := staleRead
	sameInstant.Title = "written at our commit time"
	sameInstant.UpdatedAt = stamp
	assert.False(t, ctrl.Refresh(sameInstant))

	later := staleRead
	later.Title = "changed elsewhere"
	later.UpdatedAt = stamp.Add(time.Second)
	assert.True(t, ctrl.Refresh(later))
	assert.Equal(t, "changed elsewhere", ctrl.Snapshot().Title)
	assert.False(t, ctrl.Dirty())
}

func TestController_State(t *testing.T) {
	ctrl, _, clock := setup(t, autosave.WithInterval(time.Second))
	require.NoError(t, ctrl.Load(doc()))
	require.NoError(t, ctrl.SetTitle("x"))

	s := ctrl.State().(autosave.ControllerState)
	assert.Equal(t, "set-1", s.SetlistID)
	assert.Equal(t, "dirty", s.Status)
	assert.Equal(t, "1s", s.Interval)

	clock.Advance(time.Second)
	s = ctrl.State().(autosave.ControllerState)
	assert.Equal(t, "loaded", s.Status)
	assert.Equal(t, 1, s.Commits)
	assert.NotNil(t, s.LastCommit)
	assert.Equal(t, "autosave", ctrl.ComponentType())
}

func TestController_RealTimer(t *testing.T) {
	store := &recordingStore{}
	ctrl := autosave.New(store, autosave.WithInterval(20*time.Millisecond))
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(doc()))
	require.NoError(t, ctrl.SetTitle("one"))
	require.NoError(t, ctrl.SetItems(nil))

	assert.Eventually(t, func() bool { return store.Count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !ctrl.Dirty() }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, store.Count())
	assert.Empty(t, *store.Last().Items)
}
