package core

import "errors"

// Common errors.
var (
	// ErrNetwork marks a transport failure talking to the remote authority, timeouts included.
	ErrNetwork = errors.New("remote unreachable")
	// ErrDecode marks a remote payload that cannot be mapped to records.
	ErrDecode = errors.New("malformed remote payload")
	// ErrPersist marks a failed read or write of the durable local entry.
	ErrPersist = errors.New("local persistence failed")
	// ErrDuplicateIdentity is returned when adding a record whose id is already present.
	ErrDuplicateIdentity = errors.New("duplicate record id")
	// ErrInvalidRecord marks a record or draft with a missing id, text or category.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrEmpty is returned when picking from an empty collection.
	ErrEmpty = errors.New("collection is empty")
	// ErrNotFound is returned for an unknown id or an absent durable entry.
	ErrNotFound = errors.New("not found")
	// ErrBusy is returned by Bootstrap while a reconciliation is running.
	ErrBusy = errors.New("reconciliation already in progress")
)
