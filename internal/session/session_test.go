package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaiFongPan/fmbot/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore()
	store.now = clock.Now
	return store, clock
}

func TestAcquire_CreatesDefaultContext(t *testing.T) {
	store, _ := newTestStore()

	nav, release := store.Acquire("c1")
	assert.Equal(t, ScreenMainMenu, nav.Screen)
	assert.Equal(t, 1, nav.CurrentPage)
	assert.False(t, nav.Pending.Active())
	assert.False(t, nav.HasActiveFolder)
	release()

	assert.Equal(t, 1, store.Len())
}

func TestAcquire_ConversationsAreIsolated(t *testing.T) {
	store, _ := newTestStore()

	a, releaseA := store.Acquire("a")
	a.SetPending(PendingRenameText, 7)
	releaseA()

	b, releaseB := store.Acquire("b")
	assert.False(t, b.Pending.Active())
	b.SetPending(PendingUploadURL, 9)
	releaseB()

	snapA, ok := store.Snapshot("a")
	require.True(t, ok)
	assert.Equal(t, PendingAction{Kind: PendingRenameText, FolderID: 7}, snapA.Pending)

	snapB, ok := store.Snapshot("b")
	require.True(t, ok)
	assert.Equal(t, PendingAction{Kind: PendingUploadURL, FolderID: 9}, snapB.Pending)
}

func TestPendingSlot_ReplacesAndTakes(t *testing.T) {
	var nav NavigationContext

	nav.SetPending(PendingRenameText, 1)
	nav.SetPending(PendingUploadURL, 2)
	assert.Equal(t, PendingAction{Kind: PendingUploadURL, FolderID: 2}, nav.Pending)

	taken := nav.TakePending()
	assert.Equal(t, PendingUploadURL, taken.Kind)
	assert.False(t, nav.Pending.Active())
}

func TestAcquire_SerializesOneConversation(t *testing.T) {
	store, _ := newTestStore()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			nav, release := store.Acquire("shared")
			defer release()
			// read-modify-write must not interleave
			page := nav.CurrentPage
			time.Sleep(time.Millisecond)
			nav.CurrentPage = page + 1
		}()
	}
	wg.Wait()

	snap, ok := store.Snapshot("shared")
	require.True(t, ok)
	assert.Equal(t, workers+1, snap.CurrentPage)
}

func TestSweep_RemovesIdleOnly(t *testing.T) {
	store, clock := newTestStore()

	_, release := store.Acquire("old")
	release()

	clock.Advance(2 * time.Hour)

	_, release = store.Acquire("fresh")
	release()

	removed := store.Sweep(time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := store.Snapshot("old")
	assert.False(t, ok)
	_, ok = store.Snapshot("fresh")
	assert.True(t, ok)
}

func TestSweep_SkipsBusyConversation(t *testing.T) {
	store, clock := newTestStore()

	nav, release := store.Acquire("busy")
	nav.SetActiveFolder(3)
	clock.Advance(48 * time.Hour)

	assert.Equal(t, 0, store.Sweep(time.Hour))
	release()

	snap, ok := store.Snapshot("busy")
	require.True(t, ok)
	assert.Equal(t, int64(3), snap.ActiveFolderID)
}

func TestAcquire_AfterRemoveStartsFresh(t *testing.T) {
	store, _ := newTestStore()

	nav, release := store.Acquire("c1")
	nav.ShowFolderList(4)
	release()

	store.Remove("c1")
	assert.Equal(t, 0, store.Len())

	nav, release = store.Acquire("c1")
	defer release()
	assert.Equal(t, 1, nav.CurrentPage)
	assert.Equal(t, ScreenMainMenu, nav.Screen)
}

func TestJanitor(t *testing.T) {
	store, clock := newTestStore()

	_, err := NewJanitor(store, config.SessionConfig{IdleTTL: time.Hour, SweepSchedule: "not a schedule"})
	assert.Error(t, err)

	janitor, err := NewJanitor(store, config.SessionConfig{IdleTTL: time.Hour, SweepSchedule: "@every 10m"})
	require.NoError(t, err)

	_, release := store.Acquire("idle")
	release()
	clock.Advance(90 * time.Minute)

	assert.Equal(t, 1, janitor.Sweep())
	assert.Equal(t, 0, store.Len())

	janitor.Start()
	janitor.Stop()
}

type countingSweeper struct {
	ttls []time.Duration
}

func (c *countingSweeper) Sweep(ttl time.Duration) int {
	c.ttls = append(c.ttls, ttl)
	return 2
}

func TestJanitor_SweepsOtherState(t *testing.T) {
	store, _ := newTestStore()
	other := &countingSweeper{}

	janitor, err := NewJanitor(store, config.SessionConfig{IdleTTL: 30 * time.Minute, SweepSchedule: "@hourly"}, other)
	require.NoError(t, err)

	assert.Equal(t, 0, janitor.Sweep())
	assert.Equal(t, []time.Duration{30 * time.Minute}, other.ttls)
}
