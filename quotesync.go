package quotesync

import (
	"log/slog"
	"time"

	"github.com/aretw0/quotesync/internal/platform"
	"github.com/aretw0/quotesync/pkg/core"
)

// --- Types ---

// App is the wired set of components: Store, Remote and Engine.
type App = platform.App

// Settings mirrors the quotesync.yaml configuration file.
type Settings = platform.Settings

// Record is a single quote.
type Record = core.Record

// Draft is a quote that has not been assigned an identity yet.
type Draft = core.Draft

// ErrWatchUnsupported is returned by App.Watch when the backend is not fs.
var ErrWatchUnsupported = platform.ErrWatchUnsupported

// --- Configuration ---

// Option defines a functional option for configuring an App.
type Option = platform.Option

// ConfigFileName is the optional per-project configuration file.
const ConfigFileName = platform.ConfigFileName

// WithSettings merges settings (usually read from quotesync.yaml) over the defaults.
func WithSettings(s Settings) Option {
	return platform.WithSettings(s)
}

// WithRoot sets the directory relative store paths resolve against.
func WithRoot(dir string) Option {
	return platform.WithRoot(dir)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStoreBackend selects the local backend by name: fs, sqlite, badger or memory.
func WithStoreBackend(name string) Option {
	return platform.WithStoreBackend(name)
}

// WithStorePath sets where the backend keeps its data.
func WithStorePath(path string) Option {
	return platform.WithStorePath(path)
}

// WithBackend injects a custom backend.
func WithBackend(b core.Backend) Option {
	return platform.WithBackend(b)
}

// WithRemoteURL sets the base URL of the remote authority.
func WithRemoteURL(url string) Option {
	return platform.WithRemoteURL(url)
}

// WithDialect selects the remote payload dialect.
func WithDialect(d string) Option {
	return platform.WithDialect(d)
}

// WithRemote injects a custom remote.
func WithRemote(r core.Remote) Option {
	return platform.WithRemote(r)
}

// WithInterval sets the reconciliation period.
func WithInterval(d time.Duration) Option {
	return platform.WithInterval(d)
}

// WithCron schedules reconciliation with a cron expression.
func WithCron(expr string) Option {
	return platform.WithCron(expr)
}

// WithEventBuffer sets the capacity of the engine's event channel.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler registers a callback for errors in the store watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Entry points ---

// New builds an App and loads the local collection.
func New(opts ...Option) (*App, error) {
	return platform.New(opts...)
}

// LoadSettings reads a yaml settings file. A missing file is not an error.
func LoadSettings(path string) (Settings, error) {
	return platform.LoadSettings(path)
}

// FindRoot looks upwards from dir for a quotesync.yaml file or a .quotes directory.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}
