package service

import (
	"context"
	"time"

	"github.com/atinyakov/go-qr-expiry/internal/storage"
)

// Store is the record store used by issuance and resolution.
type Store interface {
	Create(ctx context.Context, target string, expiresAt time.Time) (storage.Record, error)
	Get(ctx context.Context, id string) (storage.Record, error)
	ListActive(ctx context.Context, asOf time.Time) ([]storage.Record, error)
	PingContext(ctx context.Context) error
}

// Encoder turns a payload string into image bytes.
type Encoder interface {
	Encode(payload string) ([]byte, error)
	Extension() string
}

// Artifacts persists encoded images by name.
type Artifacts interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// CodeServiceIface is what the transport layer depends on.
type CodeServiceIface interface {
	Issue(ctx context.Context, target, expiresRaw string) (Issued, error)
	Resolve(ctx context.Context, id string) (string, error)
	Active(ctx context.Context) ([]storage.Record, error)
	PingContext(ctx context.Context) error
}
