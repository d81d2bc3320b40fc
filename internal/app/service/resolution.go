package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/clock"
	"github.com/atinyakov/go-qr-expiry/internal/storage"
)

// Resolver answers scans with a target or a typed failure.
type Resolver struct {
	store   Store
	clock   clock.Clock
	timeout time.Duration
	logger  *zap.Logger
}

// NewResolver wires a Resolver. A non-positive timeout means DefaultStoreTimeout.
func NewResolver(store Store, c clock.Clock, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Resolver{store: store, clock: c, timeout: timeout, logger: logger}
}

// Resolve returns the redirect target for id while the code is active.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", newError(ErrInvalidRequest, MsgMissingDocumentID, nil)
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	rec, err := r.store.Get(storeCtx, id)
	cancel()
	if errors.Is(err, storage.ErrNotFound) {
		r.logger.Info("unknown code", zap.String("id", id))
		return "", newError(ErrNotFound, MsgInvalidCode, err)
	}
	if err != nil {
		r.logger.Error("failed to read record", zap.String("id", id), zap.Error(err))
		return "", newError(ErrStoreUnavailable, MsgStoreUnavailable, err)
	}

	if !rec.Active(r.clock.Now()) {
		r.logger.Info("expired code", zap.String("id", id), zap.Time("expires_at", rec.ExpiresAt))
		return "", newError(ErrExpired, MsgExpired, nil)
	}

	r.logger.Info("code resolved", zap.String("id", id))
	return rec.Target, nil
}

// Active lists the records that are still valid now. Audit only.
func (r *Resolver) Active(ctx context.Context) ([]storage.Record, error) {
	storeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	records, err := r.store.ListActive(storeCtx, r.clock.Now())
	if err != nil {
		r.logger.Error("failed to list records", zap.Error(err))
		return nil, newError(ErrStoreUnavailable, MsgStoreUnavailable, err)
	}
	return records, nil
}

// PingContext checks the record store.
func (r *Resolver) PingContext(ctx context.Context) error {
	return r.store.PingContext(ctx)
}
