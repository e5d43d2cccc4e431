package platform

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the optional per-project configuration file.
const ConfigFileName = "quotesync.yaml"

// DataDir is the default directory for local state, relative to the root.
const DataDir = ".quotes"

// Settings mirrors quotesync.yaml. Zero values mean "use the default".
type Settings struct {
	Remote RemoteSettings `yaml:"remote"`
	Store  StoreSettings  `yaml:"store"`
	Sync   SyncSettings   `yaml:"sync"`
	Events EventSettings  `yaml:"events"`
}

type RemoteSettings struct {
	URL     string        `yaml:"url"`
	Path    string        `yaml:"path"`
	Dialect string        `yaml:"dialect"`
	Timeout time.Duration `yaml:"timeout"`
	Limit   int           `yaml:"limit"`
}

type StoreSettings struct {
	// Backend is one of fs, sqlite, badger or memory.
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
}

type SyncSettings struct {
	Interval time.Duration `yaml:"interval"`
	Cron     string        `yaml:"cron"`
}

type EventSettings struct {
	Buffer int `yaml:"buffer"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Remote: RemoteSettings{
			URL:     "http://127.0.0.1:8080",
			Dialect: "records",
			Timeout: 10 * time.Second,
		},
		Store: StoreSettings{Backend: BackendFS},
		Sync:  SyncSettings{Interval: 5 * time.Second},
	}
}

// LoadSettings reads a yaml settings file. A missing file yields zero
// Settings and no error, so callers can always merge the result.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return s, nil
}

// Merge returns s with every non-zero field of override applied on top.
func (s Settings) Merge(override Settings) Settings {
	setString(&s.Remote.URL, override.Remote.URL)
	setString(&s.Remote.Path, override.Remote.Path)
	setString(&s.Remote.Dialect, override.Remote.Dialect)
	if override.Remote.Timeout > 0 {
		s.Remote.Timeout = override.Remote.Timeout
	}
	if override.Remote.Limit > 0 {
		s.Remote.Limit = override.Remote.Limit
	}

	setString(&s.Store.Backend, override.Store.Backend)
	setString(&s.Store.Path, override.Store.Path)
	setString(&s.Store.Key, override.Store.Key)

	if override.Sync.Interval > 0 {
		s.Sync.Interval = override.Sync.Interval
	}
	setString(&s.Sync.Cron, override.Sync.Cron)

	if override.Events.Buffer > 0 {
		s.Events.Buffer = override.Events.Buffer
	}
	return s
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
