// Package storage holds the code record model and the in-process record
// stores (memory and append-only JSON lines file).
package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for an id.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an id is already taken.
	ErrConflict = errors.New("already exists")

	// ErrUnavailable wraps failures of the backing persistence.
	ErrUnavailable = errors.New("store unavailable")
)

// Record is one issued code. It is never mutated after creation.
type Record struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the record is still valid at now.
// A record expires exactly at ExpiresAt.
func (r Record) Active(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}
