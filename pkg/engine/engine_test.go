package engine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quotesync/pkg/core"
	"github.com/aretw0/quotesync/pkg/engine"
	"github.com/aretw0/quotesync/pkg/store"
)

// fakeRemote serves a fixed snapshot or error and can block inside FetchSnapshot.
type fakeRemote struct {
	mu        sync.Mutex
	snapshot  []core.Record
	fetchErr  error
	submitErr error
	submitted core.Record

	fetches atomic.Int32
	entered chan struct{} // signalled when a fetch starts, if set
	release chan struct{} // fetch waits on it, if set
}

func (f *fakeRemote) FetchSnapshot(ctx context.Context) ([]core.Record, error) {
	f.fetches.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]core.Record(nil), f.snapshot...), nil
}

func (f *fakeRemote) Submit(ctx context.Context, d core.Draft) (core.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return core.Record{}, f.submitErr
	}
	return f.submitted, nil
}

func (f *fakeRemote) set(snapshot []core.Record, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot, f.fetchErr = snapshot, err
}

type fixture struct {
	engine  *engine.Engine
	store   *store.Store
	backend *store.MemoryBackend
	remote  *fakeRemote
}

func setup(t *testing.T, local ...core.Record) *fixture {
	t.Helper()
	backend := store.NewMemoryBackend()
	s := store.New(store.Config{Backend: backend})
	require.NoError(t, s.Load(context.Background()))
	for _, r := range local {
		require.NoError(t, s.Add(r))
	}
	remote := &fakeRemote{}
	return &fixture{
		engine:  engine.New(engine.Config{Store: s, Remote: remote}),
		store:   s,
		backend: backend,
		remote:  remote,
	}
}

func rec(id, text string, ts int64) core.Record {
	return core.Record{ID: id, Text: text, Category: "c", UpdatedAt: ts}
}

func TestReconcile_RemoteNewerAndNewRecord(t *testing.T) {
	f := setup(t, rec("1", "A", 10))
	f.remote.set([]core.Record{rec("1", "B", 20), rec("2", "C", 5)}, nil)

	updated, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, []core.Record{rec("1", "B", 20), rec("2", "C", 5)}, f.store.List())

	// Persisted as well.
	reloaded := store.New(store.Config{Backend: f.backend})
	require.NoError(t, reloaded.Load(context.Background()))
	assert.ElementsMatch(t, f.store.List(), reloaded.List())

	select {
	case e := <-f.engine.Events():
		assert.Equal(t, core.EventSynced, e.Type)
	default:
		t.Fatal("expected a synced event")
	}
}

func TestReconcile_LocalNewerWins(t *testing.T) {
	f := setup(t, rec("1", "A", 10))
	f.remote.set([]core.Record{rec("1", "B", 5)}, nil)

	updated, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, []core.Record{rec("1", "A", 10)}, f.store.List())

	_, readErr := f.backend.Read(context.Background())
	assert.True(t, errors.Is(readErr, core.ErrNotFound), "no change, no persist")
}

func TestReconcile_SecondPassIsNoop(t *testing.T) {
	f := setup(t, rec("1", "A", 10))
	f.remote.set([]core.Record{rec("1", "B", 10), rec("2", "C", 1)}, nil)

	updated, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestReconcile_NoDuplicatesAndRemoteIDsPresent(t *testing.T) {
	f := setup(t, rec("1", "A", 10), rec("3", "local only", 1))
	snapshot := []core.Record{rec("1", "B", 11), rec("2", "C", 1), rec("2", "C again", 2)}
	f.remote.set(snapshot, nil)

	_, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, r := range f.store.List() {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
	for _, r := range snapshot {
		assert.True(t, seen[r.ID], "remote id %s missing locally", r.ID)
	}
	got, _ := f.store.Get("2")
	assert.Equal(t, "C again", got.Text, "snapshot order is applied in sequence")
	assert.True(t, seen["3"], "records are never deleted")
}

func TestReconcile_InvalidSnapshotRecordDoesNotCorruptStore(t *testing.T) {
	f := setup(t, rec("1", "A", 10))
	f.remote.set([]core.Record{
		rec("2", "B", 1),
		{ID: "3", Text: "no category", UpdatedAt: 5},
		{ID: "4", Category: "c", UpdatedAt: 5},
	}, nil)

	updated, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)

	reloaded := store.New(store.Config{Backend: f.backend})
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, []core.Record{rec("1", "A", 10), rec("2", "B", 1)}, reloaded.List())
	assert.Equal(t, 0, reloaded.State().(store.StoreState).CorruptLoads)
}

func TestBootstrap_InvalidSnapshotRecordIsSkipped(t *testing.T) {
	f := setup(t)
	f.remote.set([]core.Record{rec("1", "A", 1), {ID: "2", Text: "  ", Category: "c"}}, nil)

	require.NoError(t, f.engine.Bootstrap(context.Background()))

	reloaded := store.New(store.Config{Backend: f.backend})
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, []core.Record{rec("1", "A", 1)}, reloaded.List())
}

func TestReconcile_FetchFailureLeavesStoreUntouched(t *testing.T) {
	f := setup(t, rec("1", "A", 10))
	before := f.store.List()
	f.remote.set(nil, core.ErrNetwork)

	updated, err := f.engine.Reconcile(context.Background())
	assert.False(t, updated)
	assert.True(t, errors.Is(err, core.ErrNetwork))
	assert.Equal(t, before, f.store.List())
	assert.Equal(t, engine.Idle, f.engine.Status())

	// The next call runs right away.
	f.remote.set([]core.Record{rec("2", "B", 1)}, nil)
	updated, err = f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, int32(2), f.remote.fetches.Load())

	state := f.engine.State().(engine.EngineState)
	assert.Equal(t, 1, state.Failures)
	assert.Contains(t, state.LastError, "remote unreachable")
}

func TestReconcile_DecodeFailure(t *testing.T) {
	f := setup(t)
	f.remote.set(nil, core.ErrDecode)

	updated, err := f.engine.Reconcile(context.Background())
	assert.False(t, updated)
	assert.True(t, errors.Is(err, core.ErrDecode))
	assert.Equal(t, engine.Idle, f.engine.Status())
}

func TestReconcile_PersistFailureKeepsMerge(t *testing.T) {
	f := setup(t)
	f.backend.WriteErr = errors.New("read-only filesystem")
	f.remote.set([]core.Record{rec("1", "A", 1)}, nil)

	updated, err := f.engine.Reconcile(context.Background())
	assert.True(t, updated)
	assert.True(t, errors.Is(err, core.ErrPersist))
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, engine.Idle, f.engine.Status())

	e := <-f.engine.Events()
	assert.Equal(t, core.EventError, e.Type)
}

func TestReconcile_OverlappingCallIsDropped(t *testing.T) {
	f := setup(t)
	f.remote.set([]core.Record{rec("1", "A", 1)}, nil)
	f.remote.entered = make(chan struct{}, 1)
	f.remote.release = make(chan struct{})

	type result struct {
		updated bool
		err     error
	}
	first := make(chan result, 1)
	go func() {
		u, err := f.engine.Reconcile(context.Background())
		first <- result{u, err}
	}()

	select {
	case <-f.remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first reconcile never reached the fetch")
	}
	assert.Equal(t, engine.Syncing, f.engine.Status())

	updated, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, int32(1), f.remote.fetches.Load(), "second call must not fetch")

	close(f.remote.release)
	r := <-first
	require.NoError(t, r.err)
	assert.True(t, r.updated)
	assert.Equal(t, engine.Idle, f.engine.Status())
	assert.Equal(t, 1, f.engine.State().(engine.EngineState).Skipped)
}

func TestBootstrap(t *testing.T) {
	f := setup(t, rec("stale", "old", 100))
	f.remote.set([]core.Record{rec("1", "A", 1), rec("2", "B", 2)}, nil)

	require.NoError(t, f.engine.Bootstrap(context.Background()))
	assert.Equal(t, []core.Record{rec("1", "A", 1), rec("2", "B", 2)}, f.store.List())

	reloaded := store.New(store.Config{Backend: f.backend})
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, f.store.List(), reloaded.List())
}

func TestBootstrap_FetchFailure(t *testing.T) {
	f := setup(t, rec("1", "A", 1))
	f.remote.set(nil, core.ErrNetwork)

	err := f.engine.Bootstrap(context.Background())
	assert.True(t, errors.Is(err, core.ErrNetwork))
	assert.Equal(t, 1, f.store.Len())
}

func TestBootstrap_BusyWhileSyncing(t *testing.T) {
	f := setup(t)
	f.remote.entered = make(chan struct{}, 1)
	f.remote.release = make(chan struct{})

	done := make(chan struct{})
	go func() {
		_, _ = f.engine.Reconcile(context.Background())
		close(done)
	}()
	<-f.remote.entered

	assert.True(t, errors.Is(f.engine.Bootstrap(context.Background()), core.ErrBusy))
	close(f.remote.release)
	<-done
}

func TestSubmit(t *testing.T) {
	f := setup(t)
	f.remote.submitted = rec("42", "Carpe diem", 7)

	r, err := f.engine.Submit(context.Background(), core.Draft{Text: "Carpe diem", Category: "c"})
	require.NoError(t, err)
	assert.Equal(t, rec("42", "Carpe diem", 7), r)

	got, err := f.store.Get("42")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	e := <-f.engine.Events()
	assert.Equal(t, core.EventAdded, e.Type)
	assert.Equal(t, "42", e.ID)
}

func TestSubmit_RemoteFailureStoresNothing(t *testing.T) {
	f := setup(t)
	f.remote.submitErr = core.ErrNetwork

	_, err := f.engine.Submit(context.Background(), core.Draft{Text: "x", Category: "y"})
	assert.True(t, errors.Is(err, core.ErrNetwork))
	assert.Equal(t, 0, f.store.Len())
}

func TestSubmit_DuplicateIdentityIsHardError(t *testing.T) {
	f := setup(t, rec("42", "existing", 1))
	f.remote.submitted = rec("42", "new", 2)

	_, err := f.engine.Submit(context.Background(), core.Draft{Text: "new", Category: "c"})
	assert.True(t, errors.Is(err, core.ErrDuplicateIdentity))

	got, _ := f.store.Get("42")
	assert.Equal(t, "existing", got.Text)
}

func TestSubmit_InvalidDraft(t *testing.T) {
	f := setup(t)
	_, err := f.engine.Submit(context.Background(), core.Draft{Category: "c"})
	assert.True(t, errors.Is(err, core.ErrInvalidRecord))
}

func TestEventsDropWhenFull(t *testing.T) {
	backend := store.NewMemoryBackend()
	s := store.New(store.Config{Backend: backend})
	remote := &fakeRemote{}
	e := engine.New(engine.Config{Store: s, Remote: remote, EventBuffer: 1})

	for i := 0; i < 3; i++ {
		remote.set([]core.Record{rec("1", "v", int64(i+1))}, nil)
		_, err := e.Reconcile(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, e.Events(), 1)
	assert.Equal(t, 2, e.State().(engine.EngineState).DroppedEvents)
}

func TestCustomResolver(t *testing.T) {
	backend := store.NewMemoryBackend()
	s := store.New(store.Config{Backend: backend})
	require.NoError(t, s.Add(rec("1", "local", 1)))
	remote := &fakeRemote{}
	remote.set([]core.Record{rec("1", "remote", 99)}, nil)

	keepLocal := func(local, remote core.Record) core.Record { return local }
	e := engine.New(engine.Config{Store: s, Remote: remote, Resolver: keepLocal})

	updated, err := e.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, updated)
}
