// Package artifact stores rendered code images under stable names.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no artifact exists under a name.
var ErrNotFound = errors.New("artifact not found")

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid artifact name")

// Store persists artifacts.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
