package store

import (
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Records         int        `json:"records"`
	BackendType     string     `json:"backend_type"`
	CorruptLoads    int        `json:"corrupt_loads"`
	PersistFailures int        `json:"persist_failures"`
	LastPersist     *time.Time `json:"last_persist,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	backendType := "backend"
	if comp, ok := s.backend.(introspection.Component); ok {
		backendType = comp.ComponentType()
	}

	return StoreState{
		Records:         len(s.records),
		BackendType:     backendType,
		CorruptLoads:    s.corruptLoads,
		PersistFailures: s.persistFailures,
		LastPersist:     s.lastPersist,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
