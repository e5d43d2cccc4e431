// Package badger keeps the local collection under a single key of a Badger database.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/introspection"
	"github.com/dgraph-io/badger/v4"

	"github.com/aretw0/quotesync/pkg/core"
)

// DefaultKey is the key holding the collection.
const DefaultKey = "quotes"

// Config holds the configuration for the Badger backend.
type Config struct {
	Path     string
	Key      string
	InMemory bool
	Logger   *slog.Logger
}

// Backend implements core.Backend on a Badger key.
type Backend struct {
	db     *badger.DB
	key    []byte
	config Config
}

// Open opens the database at config.Path.
func Open(config Config) (*Backend, error) {
	if config.Key == "" {
		config.Key = DefaultKey
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	// Badger logs compactions at Info; keep our own logger the only voice.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", config.Path, err)
	}
	return &Backend{db: db, key: []byte(config.Key), config: config}, nil
}

// Read returns the stored collection, or core.ErrNotFound.
func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", b.key, err)
	}
	return val, nil
}

// Write replaces the collection value.
func (b *Backend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", b.key, err)
	}
	b.config.Logger.Debug("badger entry written", "key", string(b.key), "bytes", len(data))
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// BackendState exposes internal state for observability.
type BackendState struct {
	Path     string `json:"path"`
	Key      string `json:"key"`
	InMemory bool   `json:"in_memory"`
}

// State implements introspection.Introspectable.
func (b *Backend) State() any {
	return BackendState{Path: b.config.Path, Key: string(b.key), InMemory: b.config.InMemory}
}

// ComponentType implements introspection.Component.
func (b *Backend) ComponentType() string {
	return "badger"
}

var (
	_ core.Backend                 = (*Backend)(nil)
	_ introspection.Introspectable = (*Backend)(nil)
	_ introspection.Component      = (*Backend)(nil)
)
