package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/quotesync/pkg/adapters/badger"
	"github.com/aretw0/quotesync/pkg/adapters/fs"
	"github.com/aretw0/quotesync/pkg/adapters/remote"
	"github.com/aretw0/quotesync/pkg/adapters/sqlite"
	"github.com/aretw0/quotesync/pkg/core"
	"github.com/aretw0/quotesync/pkg/engine"
	"github.com/aretw0/quotesync/pkg/store"
)

// Backend names accepted by WithStoreBackend and store.backend.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// ErrWatchUnsupported is returned by App.Watch for backends other than fs.
var ErrWatchUnsupported = errors.New("watch is only supported by the fs backend")

// App is the wired set of components for one process.
type App struct {
	Store    *store.Store
	Engine   *engine.Engine
	Remote   core.Remote
	Backend  core.Backend
	Settings Settings

	logger *slog.Logger
}

// New builds an App and loads the local collection from its backend.
//
//	app, err := platform.New(platform.WithRemoteURL("http://localhost:8080"))
func New(opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		o.root = wd
	}

	switch remote.Dialect(o.settings.Remote.Dialect) {
	case "", remote.DialectRecords, remote.DialectPosts:
	default:
		return nil, fmt.Errorf("unknown remote dialect: %s", o.settings.Remote.Dialect)
	}

	backend := o.backend
	if backend == nil {
		var err error
		backend, err = openBackend(o)
		if err != nil {
			return nil, err
		}
	}

	s := store.New(store.Config{Backend: backend, Logger: o.logger, Rand: o.rnd})
	if err := s.Load(context.Background()); err != nil {
		backend.Close()
		return nil, err
	}

	rem := o.remote
	if rem == nil {
		rem = remote.NewClient(remote.Config{
			BaseURL:    o.settings.Remote.URL,
			Path:       o.settings.Remote.Path,
			Dialect:    remote.Dialect(o.settings.Remote.Dialect),
			Timeout:    o.settings.Remote.Timeout,
			Limit:      o.settings.Remote.Limit,
			HTTPClient: o.httpClient,
			Logger:     o.logger,
		})
	}

	eng := engine.New(engine.Config{
		Store:       s,
		Remote:      rem,
		Logger:      o.logger,
		EventBuffer: o.settings.Events.Buffer,
	})

	o.logger.Debug("app initialized",
		"backend", o.settings.Store.Backend,
		"records", s.Len(),
	)

	return &App{
		Store:    s,
		Engine:   eng,
		Remote:   rem,
		Backend:  backend,
		Settings: o.settings,
		logger:   o.logger,
	}, nil
}

func openBackend(o *options) (core.Backend, error) {
	st := o.settings.Store
	switch st.Backend {
	case BackendFS, "":
		return fs.NewBackend(fs.Config{
			Path:         o.resolve(st.Path, filepath.Join(DataDir, fs.DefaultFileName)),
			Logger:       o.logger,
			ErrorHandler: o.errorHandler,
		}), nil
	case BackendSQLite:
		path := o.resolve(st.Path, filepath.Join(DataDir, "quotes.db"))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		b, err := sqlite.Open(sqlite.Config{Path: path, Key: st.Key, Logger: o.logger})
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendBadger:
		b, err := badger.Open(badger.Config{
			Path:   o.resolve(st.Path, filepath.Join(DataDir, "badger")),
			Key:    st.Key,
			Logger: o.logger,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendMemory:
		return store.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", st.Backend)
	}
}

func (o *options) resolve(path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.root, path)
}

// SchedulerConfig returns the scheduler settings for this App.
func (a *App) SchedulerConfig(onUpdate func()) engine.SchedulerConfig {
	return engine.SchedulerConfig{
		Interval: a.Settings.Sync.Interval,
		Cron:     a.Settings.Sync.Cron,
		Logger:   a.logger,
		OnUpdate: onUpdate,
	}
}

// Watch reports external writes to the store file. Only the fs backend supports it.
func (a *App) Watch(ctx context.Context) (<-chan core.Event, error) {
	b, ok := a.Backend.(*fs.Backend)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return b.Watch(ctx)
}

// Close releases the backend.
func (a *App) Close() error {
	return a.Store.Close()
}
