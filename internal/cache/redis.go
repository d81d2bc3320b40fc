// Package cache provides a read-through Redis layer in front of a record store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/clock"
	"github.com/atinyakov/go-qr-expiry/internal/storage"
)

const keyPrefix = "qr:"

// Backend is the record store being cached.
type Backend interface {
	Create(ctx context.Context, target string, expiresAt time.Time) (storage.Record, error)
	Get(ctx context.Context, id string) (storage.Record, error)
	ListActive(ctx context.Context, asOf time.Time) ([]storage.Record, error)
	PingContext(ctx context.Context) error
	Close() error
}

// RedisStore caches records by id. Records are immutable, so an entry is
// valid until its TTL; expiry itself is decided by the caller's clock.
// Redis failures are logged and the wrapped store answers instead.
type RedisStore struct {
	next   Backend
	client *redis.Client
	clock  clock.Clock
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient builds a client for addr.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 500 * time.Millisecond,
		MaxRetries:  -1,
	})
}

// NewRedisStore wraps next with a cache on client.
func NewRedisStore(next Backend, client *redis.Client, c clock.Clock, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		next:   next,
		client: client,
		clock:  c,
		ttl:    ttl,
		logger: logger,
	}
}

func key(id string) string {
	return keyPrefix + id
}

// Create stores the record and primes the cache with it.
func (s *RedisStore) Create(ctx context.Context, target string, expiresAt time.Time) (storage.Record, error) {
	rec, err := s.next.Create(ctx, target, expiresAt)
	if err != nil {
		return storage.Record{}, err
	}

	s.set(ctx, rec)
	return rec, nil
}

// Get answers from the cache when possible and fills it on a miss.
func (s *RedisStore) Get(ctx context.Context, id string) (storage.Record, error) {
	val, err := s.client.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		var rec storage.Record
		if err := json.Unmarshal(val, &rec); err == nil {
			rec.ExpiresAt = rec.ExpiresAt.In(s.clock.Location())
			rec.CreatedAt = rec.CreatedAt.In(s.clock.Location())
			return rec, nil
		}
		s.logger.Warn("dropping undecodable cache entry", zap.String("id", id))
		if err := s.client.Del(ctx, key(id)).Err(); err != nil {
			s.logger.Warn("redis del failed", zap.String("id", id), zap.Error(err))
		}
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("redis get failed", zap.String("id", id), zap.Error(err))
	}

	rec, err := s.next.Get(ctx, id)
	if err != nil {
		return storage.Record{}, err
	}

	s.set(ctx, rec)
	return rec, nil
}

func (s *RedisStore) set(ctx context.Context, rec storage.Record) {
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key(rec.ID), b, s.ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", zap.String("id", rec.ID), zap.Error(err))
	}
}

// ListActive is never cached.
func (s *RedisStore) ListActive(ctx context.Context, asOf time.Time) ([]storage.Record, error) {
	return s.next.ListActive(ctx, asOf)
}

// PingContext reports the health of the wrapped store only; the cache is optional.
func (s *RedisStore) PingContext(ctx context.Context) error {
	return s.next.PingContext(ctx)
}

// Close closes the wrapped store and the redis client.
func (s *RedisStore) Close() error {
	return errors.Join(s.next.Close(), s.client.Close())
}
