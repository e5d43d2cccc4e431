// Package engine keeps the local collection eventually consistent with the
// remote authority.
//
// An Engine is either Idle or Syncing. Only one reconciliation runs at a
// time: a request arriving while Syncing is dropped, not queued. Network
// I/O happens outside the mutation lock, so the lock only ever covers the
// merge and the persist that follows it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/quotesync/pkg/core"
)

// Status is the operating state of the engine.
type Status int32

const (
	// Idle means no reconciliation is running.
	Idle Status = iota
	// Syncing means a reconciliation or bootstrap holds the engine.
	Syncing
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Syncing:
		return "syncing"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// LocalStore is the subset of the store the engine mutates.
type LocalStore interface {
	ReplaceAll(records []core.Record)
	UpsertWithResolution(remote core.Record, resolve core.Resolver) bool
	Add(r core.Record) error
	Persist(ctx context.Context) error
}

// DefaultEventBuffer is the capacity of the Events channel.
const DefaultEventBuffer = 16

// Config holds the engine collaborators.
type Config struct {
	Store  LocalStore
	Remote core.Remote
	// Resolver defaults to core.Resolve.
	Resolver    core.Resolver
	Logger      *slog.Logger
	EventBuffer int
}

// Engine orchestrates reconciliation and record creation.
type Engine struct {
	store   LocalStore
	remote  core.Remote
	resolve core.Resolver
	logger  *slog.Logger

	status atomic.Int32
	mu     sync.Mutex // serialises store mutations
	events chan core.Event

	statsMu sync.Mutex
	stats   stats
}

type stats struct {
	runs      int
	updates   int
	failures  int
	skipped   int
	dropped   int
	lastSync  *time.Time
	lastError string
}

// New creates an engine in the Idle state.
func New(config Config) *Engine {
	if config.Resolver == nil {
		config.Resolver = core.Resolve
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	return &Engine{
		store:   config.Store,
		remote:  config.Remote,
		resolve: config.Resolver,
		logger:  config.Logger,
		events:  make(chan core.Event, config.EventBuffer),
	}
}

// Status reports whether a reconciliation is in flight.
func (e *Engine) Status() Status {
	return Status(e.status.Load())
}

// Events delivers change notifications. Events are dropped when nobody drains the channel.
func (e *Engine) Events() <-chan core.Event {
	return e.events
}

// Reconcile fetches a snapshot and merges it into the local store.
//
// It returns true when local state changed. If another reconciliation is
// in flight it returns (false, nil) without touching the remote. A failed
// fetch leaves the store untouched and returns (false, err); a failed
// persist returns (true, err) and keeps the merged state in memory.
func (e *Engine) Reconcile(ctx context.Context) (bool, error) {
	if !e.status.CompareAndSwap(int32(Idle), int32(Syncing)) {
		e.logger.Debug("reconcile skipped, already syncing")
		e.record(func(s *stats) { s.skipped++ })
		return false, nil
	}
	defer e.status.Store(int32(Idle))

	snapshot, err := e.remote.FetchSnapshot(ctx)
	if err != nil {
		err = fmt.Errorf("fetch snapshot: %w", err)
		e.fail(err)
		return false, err
	}
	snapshot = e.validRecords(snapshot)

	e.mu.Lock()
	defer e.mu.Unlock()

	changed := 0
	for _, r := range snapshot {
		if e.store.UpsertWithResolution(r, e.resolve) {
			changed++
		}
	}

	now := time.Now()
	e.record(func(s *stats) {
		s.runs++
		s.lastSync = &now
	})

	if changed == 0 {
		e.logger.Debug("reconcile finished, nothing changed", "snapshot", len(snapshot))
		return false, nil
	}

	e.record(func(s *stats) { s.updates++ })
	e.logger.Info("local quotes updated from remote", "changed", changed, "snapshot", len(snapshot))

	if err := e.store.Persist(ctx); err != nil {
		e.fail(err)
		return true, err
	}

	e.emit(core.Event{
		Type:      core.EventSynced,
		Message:   fmt.Sprintf("%d quotes updated from server", changed),
		Timestamp: now.Unix(),
	})
	return true, nil
}

// Bootstrap replaces the local collection with a fresh snapshot and persists it.
// It is meant for first start, when there is no local state worth preserving.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if !e.status.CompareAndSwap(int32(Idle), int32(Syncing)) {
		return core.ErrBusy
	}
	defer e.status.Store(int32(Idle))

	snapshot, err := e.remote.FetchSnapshot(ctx)
	if err != nil {
		err = fmt.Errorf("fetch snapshot: %w", err)
		e.fail(err)
		return err
	}
	snapshot = e.validRecords(snapshot)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.ReplaceAll(snapshot)
	now := time.Now()
	e.record(func(s *stats) { s.lastSync = &now })

	if err := e.store.Persist(ctx); err != nil {
		e.fail(err)
		return err
	}

	e.logger.Info("local quotes bootstrapped", "records", len(snapshot))
	e.emit(core.Event{
		Type:      core.EventSynced,
		Message:   fmt.Sprintf("%d quotes loaded from server", len(snapshot)),
		Timestamp: now.Unix(),
	})
	return nil
}

// Submit pushes a draft to the remote authority, then stores and persists
// the confirmed record. If the remote call fails nothing is stored locally.
// A persist failure returns the stored record together with the error.
func (e *Engine) Submit(ctx context.Context, d core.Draft) (core.Record, error) {
	if err := d.Validate(); err != nil {
		return core.Record{}, err
	}

	r, err := e.remote.Submit(ctx, d)
	if err != nil {
		return core.Record{}, fmt.Errorf("submit: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Add(r); err != nil {
		return core.Record{}, err
	}
	if err := e.store.Persist(ctx); err != nil {
		e.fail(err)
		return r, err
	}

	e.logger.Info("quote added", "id", r.ID, "category", r.Category)
	e.emit(core.Event{
		Type:      core.EventAdded,
		ID:        r.ID,
		Message:   "quote added and synced with server",
		Timestamp: time.Now().Unix(),
	})
	return r, nil
}

// validRecords drops snapshot entries the store could not load back.
func (e *Engine) validRecords(snapshot []core.Record) []core.Record {
	out := snapshot[:0:0]
	for i, r := range snapshot {
		if err := r.Validate(); err != nil {
			e.logger.Warn("skipping invalid snapshot record", "index", i, "id", r.ID, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out
}

func (e *Engine) fail(err error) {
	level := slog.LevelWarn
	if errors.Is(err, core.ErrPersist) {
		level = slog.LevelError
	}
	e.logger.Log(context.Background(), level, "sync failed", "error", err)

	e.record(func(s *stats) {
		s.failures++
		s.lastError = err.Error()
	})
	e.emit(core.Event{
		Type:      core.EventError,
		Message:   err.Error(),
		Timestamp: time.Now().Unix(),
	})
}

func (e *Engine) emit(ev core.Event) {
	select {
	case e.events <- ev:
	default:
		e.record(func(s *stats) { s.dropped++ })
	}
}

func (e *Engine) record(fn func(*stats)) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	fn(&e.stats)
}
