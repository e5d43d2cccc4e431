// Package sqlite keeps the local collection in a key/value table of a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/introspection"
	_ "modernc.org/sqlite"

	"github.com/aretw0/quotesync/pkg/core"
)

// DefaultKey is the row key holding the collection.
const DefaultKey = "quotes"

// Config holds the configuration for the SQLite backend.
type Config struct {
	Path        string // database file; ":memory:" for a private in-memory db
	Key         string
	BusyTimeout time.Duration
	Logger      *slog.Logger
}

// Backend implements core.Backend as one row of a kv table.
type Backend struct {
	db     *sql.DB
	config Config
}

// Open opens (creating if needed) the database and its schema.
func Open(config Config) (*Backend, error) {
	if config.Key == "" {
		config.Key = DefaultKey
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		config.Path, config.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single writer keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	b := &Backend{db: db, config: config}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return b, nil
}

func (b *Backend) initSchema() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`)
	return err
}

// Read returns the stored collection, or core.ErrNotFound.
func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, b.config.Key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", b.config.Key, err)
	}
	return data, nil
}

// Write upserts the collection row.
func (b *Backend) Write(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.config.Key, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", b.config.Key, err)
	}
	b.config.Logger.Debug("sqlite entry written", "key", b.config.Key, "bytes", len(data))
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// BackendState exposes internal state for observability.
type BackendState struct {
	Path string `json:"path"`
	Key  string `json:"key"`
	Open int    `json:"open_connections"`
}

// State implements introspection.Introspectable.
func (b *Backend) State() any {
	return BackendState{
		Path: b.config.Path,
		Key:  b.config.Key,
		Open: b.db.Stats().OpenConnections,
	}
}

// ComponentType implements introspection.Component.
func (b *Backend) ComponentType() string {
	return "sqlite"
}

var (
	_ core.Backend                 = (*Backend)(nil)
	_ introspection.Introspectable = (*Backend)(nil)
	_ introspection.Component      = (*Backend)(nil)
)
