// Package store implements the local collection of records.
//
// The collection lives in memory, addressed by id, and is mirrored into a
// single durable entry held by a core.Backend. The store never deletes
// records: there is no tombstone mechanism, so a record removed on the
// remote side stays here.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/quotesync/pkg/core"
)

// Config holds the configuration for a Store.
type Config struct {
	Backend core.Backend
	Logger  *slog.Logger
	// Rand is the source used by PickRandom. Defaults to a randomly seeded PCG.
	Rand *rand.Rand
}

// Store is the durable, in-memory backed collection of records.
type Store struct {
	mu      sync.RWMutex
	records map[string]core.Record
	backend core.Backend
	logger  *slog.Logger
	rnd     *rand.Rand

	corruptLoads    int
	persistFailures int
	lastPersist     *time.Time
}

// New creates an empty store. Call Load to read the persisted collection.
func New(config Config) *Store {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rnd := config.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Store{
		records: make(map[string]core.Record),
		backend: config.Backend,
		logger:  logger,
		rnd:     rnd,
	}
}

// Load reads the persisted collection into memory, replacing what is there.
//
// A missing entry yields an empty collection. So does a corrupt one: the
// payload is discarded with a warning instead of failing startup.
// Only backend I/O failures are returned.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Read(ctx)
	if errors.Is(err, core.ErrNotFound) {
		s.replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read: %v", core.ErrPersist, err)
	}

	records, err := decode(data)
	if err != nil {
		s.logger.Warn("discarding corrupt local collection", "error", err, "bytes", len(data))
		s.mu.Lock()
		s.corruptLoads++
		s.mu.Unlock()
		s.replace(nil)
		return nil
	}

	s.replace(records)
	s.logger.Debug("local collection loaded", "records", len(records))
	return nil
}

func decode(data []byte) ([]core.Record, error) {
	var records []core.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("record %d: %w: %s", i, core.ErrDuplicateIdentity, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return records, nil
}

// ReplaceAll atomically swaps the entire collection.
// If records repeats an id, the last occurrence wins. Invalid records are
// dropped so the persisted payload always passes Load.
func (s *Store) ReplaceAll(records []core.Record) {
	valid := make([]core.Record, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			s.logger.Warn("dropping invalid record", "id", r.ID, "error", err)
			continue
		}
		valid = append(valid, r)
	}
	s.replace(valid)
}

func (s *Store) replace(records []core.Record) {
	next := make(map[string]core.Record, len(records))
	for _, r := range records {
		next[r.ID] = r
	}

	s.mu.Lock()
	s.records = next
	s.mu.Unlock()
}

// UpsertWithResolution merges a remote record into the collection.
// An unknown id is inserted. A known id is overwritten only when resolve
// picks the remote record and it differs from the stored one, so applying
// the same record twice reports a change at most once. An invalid record
// is ignored and reported as no change.
func (s *Store) UpsertWithResolution(remote core.Record, resolve core.Resolver) bool {
	if err := remote.Validate(); err != nil {
		s.logger.Warn("ignoring invalid record", "id", remote.ID, "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[remote.ID]
	if !ok {
		s.records[remote.ID] = remote
		return true
	}

	winner := resolve(existing, remote)
	if winner != remote || winner == existing {
		return false
	}
	s.records[remote.ID] = remote
	return true
}

// Add inserts a record whose id was confirmed by the remote authority.
func (s *Store) Add(r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; ok {
		return fmt.Errorf("%w: %s", core.ErrDuplicateIdentity, r.ID)
	}
	s.records[r.ID] = r
	return nil
}

// Persist writes the full collection to the backend.
// A failure leaves the in-memory collection untouched, so memory and
// durable state may diverge until the next successful Persist.
func (s *Store) Persist(ctx context.Context) error {
	data, err := json.Marshal(s.List())
	if err != nil {
		return fmt.Errorf("%w: encode: %v", core.ErrPersist, err)
	}

	if err := s.backend.Write(ctx, data); err != nil {
		s.mu.Lock()
		s.persistFailures++
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", core.ErrPersist, err)
	}

	now := time.Now()
	s.mu.Lock()
	s.lastPersist = &now
	s.mu.Unlock()
	return nil
}

// PickRandom returns a uniformly chosen record, or core.ErrEmpty.
func (s *Store) PickRandom() (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return core.Record{}, core.ErrEmpty
	}

	// Sorted ids keep a seeded source reproducible.
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return s.records[ids[s.rnd.IntN(len(ids))]], nil
}

// Get retrieves a record by id.
func (s *Store) Get(id string) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return core.Record{}, fmt.Errorf("%w: record %s", core.ErrNotFound, id)
	}
	return r, nil
}

// List returns a copy of all records sorted by id.
func (s *Store) List() []core.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
