package core

import (
	"context"
	"fmt"
)

// EventType represents the type of change observed in the collection.
type EventType string

const (
	// EventSynced is emitted when a reconciliation changed local state.
	EventSynced EventType = "SYNCED"
	// EventAdded is emitted when a submitted record was stored locally.
	EventAdded EventType = "ADDED"
	// EventError is emitted when a reconciliation or persist failed.
	EventError EventType = "ERROR"
	// EventExternal is emitted when the durable entry's file was written.
	// The watcher cannot tell writers apart, so this process's own persists
	// are reported too.
	EventExternal EventType = "EXTERNAL"
)

// Event represents a change the UI may want to surface.
type Event struct {
	Type      EventType
	ID        string // record id, when the event concerns a single record
	Message   string
	Timestamp int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Type, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Remote is the boundary to the remote authority.
type Remote interface {
	// FetchSnapshot returns the records currently known to the remote side.
	FetchSnapshot(ctx context.Context) ([]Record, error)

	// Submit sends a draft and returns the record as confirmed by the remote side.
	Submit(ctx context.Context, d Draft) (Record, error)
}

// Backend holds the single durable entry that backs the local collection.
// Adhering to this interface keeps the store independent of the storage
// mechanism (file, SQLite, Badger).
type Backend interface {
	// Read returns the raw entry, or ErrNotFound if nothing was written yet.
	Read(ctx context.Context) ([]byte, error)

	// Write overwrites the entry wholesale.
	Write(ctx context.Context, data []byte) error

	// Close releases the underlying resources.
	Close() error
}
