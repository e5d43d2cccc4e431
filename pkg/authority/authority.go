// Package authority is an in-memory remote authority for quotes.
//
// It serves the records contract consumed by the remote client:
//
//	GET  /records  -> [{id, text, category, updatedAt}, ...]
//	POST /records  {text, category} -> 201 {id, text, category, updatedAt}
//
// Ids are sequential integers rendered as strings and updatedAt is a
// counter that only moves forward, so the server is the single source of
// ordering for everything it stores.
package authority

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/quotesync/pkg/core"
)

// Authority holds the remote collection.
type Authority struct {
	mu      sync.Mutex
	records map[string]core.Record
	order   []string
	nextID  int64
	clock   int64
	logger  *slog.Logger
}

// New creates an empty authority.
func New(logger *slog.Logger) *Authority {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authority{
		records: make(map[string]core.Record),
		nextID:  1,
		logger:  logger,
	}
}

// Put stores r as is, advancing the clock and id sequence past it.
func (a *Authority) Put(r core.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.put(r)
}

func (a *Authority) put(r core.Record) {
	if _, ok := a.records[r.ID]; !ok {
		a.order = append(a.order, r.ID)
	}
	a.records[r.ID] = r
	if r.UpdatedAt > a.clock {
		a.clock = r.UpdatedAt
	}
	if n, err := strconv.ParseInt(r.ID, 10, 64); err == nil && n >= a.nextID {
		a.nextID = n + 1
	}
}

// Create assigns an id and timestamp to a draft and stores it.
func (a *Authority) Create(d core.Draft) (core.Record, error) {
	if err := d.Validate(); err != nil {
		return core.Record{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.clock++
	r := core.Record{
		ID:        strconv.FormatInt(a.nextID, 10),
		Text:      d.Text,
		Category:  d.Category,
		UpdatedAt: a.clock,
	}
	a.put(r)
	return r, nil
}

// Edit changes the text of an existing record and stamps it with a newer timestamp.
func (a *Authority) Edit(id, text string) (core.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.records[id]
	if !ok {
		return core.Record{}, fmt.Errorf("%w: record %s", core.ErrNotFound, id)
	}
	a.clock++
	r.Text = text
	r.UpdatedAt = a.clock
	a.records[id] = r
	return r, nil
}

// Records returns the collection in insertion order.
func (a *Authority) Records() []core.Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]core.Record, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.records[id])
	}
	return out
}

// ServeHTTP implements the records endpoint.
func (a *Authority) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.Records())

	case http.MethodPost:
		var d core.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		rec, err := a.Create(d)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		a.logger.Info("record created", "id", rec.ID, "category", rec.Category)
		writeJSON(w, http.StatusCreated, rec)

	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Handler mounts the authority at path.
func (a *Authority) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, a)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// seedRecord is the yaml shape of a seed entry.
type seedRecord struct {
	ID        string `yaml:"id"`
	Text      string `yaml:"text"`
	Category  string `yaml:"category"`
	UpdatedAt int64  `yaml:"updatedAt"`
}

// LoadSeed reads records from a yaml file:
//
//	- id: "1"
//	  text: Simplicity is prerequisite for reliability.
//	  category: engineering
//	  updatedAt: 1
func LoadSeed(path string) ([]core.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes yaml seed data. Every entry must be a valid record.
func ParseSeed(data []byte) ([]core.Record, error) {
	var seeds []seedRecord
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	records := make([]core.Record, 0, len(seeds))
	for i, s := range seeds {
		r := core.Record{ID: s.ID, Text: s.Text, Category: s.Category, UpdatedAt: s.UpdatedAt}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}
