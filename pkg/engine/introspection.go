package engine

import (
	"time"

	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Status        string     `json:"status"`
	Runs          int        `json:"runs"`
	Updates       int        `json:"updates"`
	Failures      int        `json:"failures"`
	Skipped       int        `json:"skipped"`
	DroppedEvents int        `json:"dropped_events"`
	LastSync      *time.Time `json:"last_sync,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	return EngineState{
		Status:        e.Status().String(),
		Runs:          e.stats.runs,
		Updates:       e.stats.updates,
		Failures:      e.stats.failures,
		Skipped:       e.stats.skipped,
		DroppedEvents: e.stats.dropped,
		LastSync:      e.stats.lastSync,
		LastError:     e.stats.lastError,
	}
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
