// Package core holds the domain types shared by the store, the sync engine
// and the adapters. It has no dependencies on storage or transport.
package core

import (
	"fmt"
	"strings"
)

// Record is the central entity of the domain: a quote.
// It is identified by ID, which is assigned by the remote authority.
type Record struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	// UpdatedAt is a logical timestamp used only to order conflicting writes.
	UpdatedAt int64 `json:"updatedAt"`
}

// Validate checks that the record can live in a collection.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	return Draft{Text: r.Text, Category: r.Category}.Validate()
}

// Draft is a record that has not been confirmed by the remote authority yet.
type Draft struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Validate rejects drafts with blank text or category.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("%w: text cannot be empty", ErrInvalidRecord)
	}
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("%w: category cannot be empty", ErrInvalidRecord)
	}
	return nil
}
