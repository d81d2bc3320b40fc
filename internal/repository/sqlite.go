package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/atinyakov/go-qr-expiry/internal/clock"
	"github.com/atinyakov/go-qr-expiry/internal/storage"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS qr_codes (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS qr_codes_expires_at_idx ON qr_codes (expires_at)`,
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64, loc *time.Location) time.Time {
	return time.UnixMilli(value).In(loc)
}

// SQLiteRepository stores records in a local SQLite file. Timestamps are
// kept as UTC unix milliseconds; created_at comes from the store clock.
type SQLiteRepository struct {
	db     *sql.DB
	clock  clock.Clock
	logger *zap.Logger
	newID  storage.IDFunc
}

// OpenSQLite opens the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, c clock.Clock, logger *zap.Logger, opts ...storage.Option) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	o := storage.ApplyOptions(opts...)
	logger.Info("sqlite storage ready", zap.String("path", path))

	return &SQLiteRepository{
		db:     db,
		clock:  c,
		logger: logger,
		newID:  o.NewID,
	}, nil
}

// Create inserts a record stamped with the store clock.
func (r *SQLiteRepository) Create(ctx context.Context, target string, expiresAt time.Time) (storage.Record, error) {
	return storage.CreateWithRetry(ctx, r.newID, func(ctx context.Context, id string) (storage.Record, error) {
		rec := storage.Record{
			ID:        id,
			Target:    target,
			ExpiresAt: expiresAt.In(r.clock.Location()),
			CreatedAt: r.clock.Now(),
		}

		_, err := r.db.ExecContext(ctx,
			"INSERT INTO qr_codes (id, target, expires_at, created_at) VALUES (?, ?, ?, ?)",
			rec.ID, rec.Target, toMillis(rec.ExpiresAt), toMillis(rec.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.Record{}, storage.ErrConflict
			}
			return storage.Record{}, r.unavailable("insert", err)
		}

		return rec, nil
	})
}

// Get looks a record up by primary key.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (storage.Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, target, expires_at, created_at FROM qr_codes WHERE id = ?", id,
	)

	rec, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, r.unavailable("select", err)
	}
	return rec, nil
}

// ListActive returns the records expiring strictly after asOf.
func (r *SQLiteRepository) ListActive(ctx context.Context, asOf time.Time) ([]storage.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, target, expires_at, created_at FROM qr_codes WHERE expires_at > ?", toMillis(asOf),
	)
	if err != nil {
		return nil, r.unavailable("list", err)
	}
	defer rows.Close()

	records := make([]storage.Record, 0)
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, r.unavailable("scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list", err)
	}
	return records, nil
}

func (r *SQLiteRepository) scan(s scanner) (storage.Record, error) {
	var (
		rec                  storage.Record
		expiresAt, createdAt int64
	)
	if err := s.Scan(&rec.ID, &rec.Target, &expiresAt, &createdAt); err != nil {
		return storage.Record{}, err
	}

	rec.ExpiresAt = fromMillis(expiresAt, r.clock.Location())
	rec.CreatedAt = fromMillis(createdAt, r.clock.Location())
	return rec, nil
}

func (r *SQLiteRepository) unavailable(op string, err error) error {
	r.logger.Error("sqlite "+op+" failed", zap.Error(err))
	return fmt.Errorf("%w: %s: %v", storage.ErrUnavailable, op, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// PingContext checks the database handle.
func (r *SQLiteRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
