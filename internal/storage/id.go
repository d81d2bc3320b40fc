package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// maxCreateAttempts bounds id regeneration on a duplicate key.
const maxCreateAttempts = 3

// IDFunc generates record identifiers.
type IDFunc func() string

// Options are shared by every store implementation.
type Options struct {
	NewID IDFunc
}

// Option configures a store.
type Option func(*Options)

// WithIDFunc replaces the default random UUID generator.
func WithIDFunc(f IDFunc) Option {
	return func(o *Options) {
		o.NewID = f
	}
}

// ApplyOptions returns Options with defaults filled in.
func ApplyOptions(opts ...Option) Options {
	o := Options{NewID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CreateWithRetry calls insert with a fresh id until it is accepted.
// insert must return ErrConflict when the id already exists.
func CreateWithRetry(ctx context.Context, newID IDFunc, insert func(ctx context.Context, id string) (Record, error)) (Record, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		r, err := insert(ctx, newID())
		if errors.Is(err, ErrConflict) {
			continue
		}
		return r, err
	}

	return Record{}, fmt.Errorf("no free id after %d attempts: %w", maxCreateAttempts, ErrConflict)
}
