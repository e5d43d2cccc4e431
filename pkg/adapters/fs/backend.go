// Package fs stores the local collection as a single JSON file.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/quotesync/pkg/core"
)

// DefaultFileName is used when Config.Path points to a directory.
const DefaultFileName = "quotes.json"

// Config holds the configuration for the filesystem backend.
type Config struct {
	Path   string // file path; a directory gets DefaultFileName appended
	Logger *slog.Logger
	// ErrorHandler receives watcher errors. Defaults to logging them.
	ErrorHandler func(error)
}

// Backend implements core.Backend on top of one file, written atomically.
type Backend struct {
	Path   string
	config Config

	mu            sync.RWMutex
	watcherActive bool
	lastWrite     *time.Time
	writes        int
}

// NewBackend creates a filesystem backend. The parent directory is created on first write.
func NewBackend(config Config) *Backend {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	path := config.Path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	if n, err := removeStaleTemps(filepath.Dir(path)); err != nil {
		config.Logger.Warn("failed to remove stale temp files", "error", err)
	} else if n > 0 {
		config.Logger.Info("removed stale temp files", "count", n)
	}
	return &Backend{
		Path:   path,
		config: config,
	}
}

// Read returns the file contents, or core.ErrNotFound if the file does not exist.
func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.Path, err)
	}
	return data, nil
}

// Write replaces the file contents atomically.
func (b *Backend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFileAtomic(b.Path, data, 0644); err != nil {
		return err
	}

	now := time.Now()
	b.mu.Lock()
	b.lastWrite = &now
	b.writes++
	b.mu.Unlock()

	b.config.Logger.Debug("store file written", "path", b.Path, "bytes", len(data))
	return nil
}

// Close is a no-op; the backend holds no open handles between calls.
func (b *Backend) Close() error {
	return nil
}

var _ core.Backend = (*Backend)(nil)
