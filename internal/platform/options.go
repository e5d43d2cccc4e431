package platform

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/aretw0/quotesync/pkg/core"
)

// options holds the internal configuration for an App.
type options struct {
	settings     Settings
	root         string
	logger       *slog.Logger
	backend      core.Backend
	remote       core.Remote
	httpClient   *http.Client
	rnd          *rand.Rand
	errorHandler func(error)
}

// Option defines a functional option for configuring an App.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		settings: DefaultSettings(),
	}
}

// WithSettings merges s over the current settings; zero fields are ignored.
// Options are applied in order, so a file loaded first can be overridden by flags.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = o.settings.Merge(s)
	}
}

// WithRoot sets the directory relative store paths resolve against.
// Defaults to the working directory.
func WithRoot(dir string) Option {
	return func(o *options) {
		o.root = dir
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStoreBackend selects the backend by name (fs, sqlite, badger, memory).
func WithStoreBackend(name string) Option {
	return func(o *options) {
		o.settings.Store.Backend = name
	}
}

// WithStorePath sets the backend location: a file or directory for fs,
// a database file for sqlite, a directory for badger.
func WithStorePath(path string) Option {
	return func(o *options) {
		o.settings.Store.Path = path
	}
}

// WithBackend injects a ready backend, skipping the named one.
func WithBackend(b core.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithRemoteURL sets the base URL of the remote authority.
func WithRemoteURL(url string) Option {
	return func(o *options) {
		o.settings.Remote.URL = url
	}
}

// WithDialect selects the remote payload dialect ("records" or "posts").
func WithDialect(d string) Option {
	return func(o *options) {
		o.settings.Remote.Dialect = d
	}
}

// WithRemote injects a custom remote (e.g. a fake in tests).
func WithRemote(r core.Remote) Option {
	return func(o *options) {
		o.remote = r
	}
}

// WithHTTPClient overrides the HTTP client used by the remote client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithInterval sets the reconciliation period.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.settings.Sync.Interval = d
	}
}

// WithCron schedules reconciliation with a cron expression instead of an interval.
func WithCron(expr string) Option {
	return func(o *options) {
		o.settings.Sync.Cron = expr
	}
}

// WithEventBuffer sets the capacity of the engine's event channel.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.settings.Events.Buffer = size
	}
}

// WithRand makes PickRandom deterministic.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rnd = r
	}
}

// WithWatcherErrorHandler registers a callback for errors in the fs watch loop,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
