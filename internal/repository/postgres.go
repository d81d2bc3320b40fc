// Package repository implements the record store on SQL databases:
// PostgreSQL through pgx and SQLite through modernc.org/sqlite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/clock"
	"github.com/atinyakov/go-qr-expiry/internal/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS qr_codes (
		id UUID PRIMARY KEY,
		target TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS qr_codes_expires_at_idx ON qr_codes (expires_at)`,
}

// InitDB opens a PostgreSQL pool and makes sure the schema exists.
func InitDB(ctx context.Context, dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Database connected and table ready.")
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// CodeRepository stores records in the qr_codes table.
// created_at is assigned by the database.
type CodeRepository struct {
	db     *sql.DB
	clock  clock.Clock
	logger *zap.Logger
	newID  storage.IDFunc
}

// CreateCodeRepository wraps an open database handle.
func CreateCodeRepository(db *sql.DB, c clock.Clock, logger *zap.Logger, opts ...storage.Option) *CodeRepository {
	o := storage.ApplyOptions(opts...)

	return &CodeRepository{
		db:     db,
		clock:  c,
		logger: logger,
		newID:  o.NewID,
	}
}

// Create inserts a record; the primary key rejects duplicate ids.
func (r *CodeRepository) Create(ctx context.Context, target string, expiresAt time.Time) (storage.Record, error) {
	return storage.CreateWithRetry(ctx, r.newID, func(ctx context.Context, id string) (storage.Record, error) {
		rec := storage.Record{
			ID:        id,
			Target:    target,
			ExpiresAt: expiresAt.In(r.clock.Location()),
		}

		row := r.db.QueryRowContext(ctx,
			"INSERT INTO qr_codes (id, target, expires_at) VALUES ($1, $2, $3) RETURNING created_at;",
			id, target, expiresAt,
		)

		var createdAt time.Time
		if err := row.Scan(&createdAt); err != nil {
			return storage.Record{}, r.classify("insert", err)
		}

		rec.CreatedAt = createdAt.In(r.clock.Location())
		return rec, nil
	})
}

// Get looks a record up by primary key.
func (r *CodeRepository) Get(ctx context.Context, id string) (storage.Record, error) {
	// The column is UUID typed; anything else cannot exist.
	if _, err := uuid.Parse(id); err != nil {
		return storage.Record{}, storage.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT id, target, expires_at, created_at FROM qr_codes WHERE id = $1;", id,
	)

	rec, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, r.classify("select", err)
	}

	return rec, nil
}

// ListActive returns the records expiring strictly after asOf.
func (r *CodeRepository) ListActive(ctx context.Context, asOf time.Time) ([]storage.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, target, expires_at, created_at FROM qr_codes WHERE expires_at > $1;", asOf,
	)
	if err != nil {
		return nil, r.classify("list", err)
	}
	defer rows.Close()

	records := make([]storage.Record, 0)
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, r.classify("scan", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, r.classify("list", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *CodeRepository) scan(s scanner) (storage.Record, error) {
	var rec storage.Record
	if err := s.Scan(&rec.ID, &rec.Target, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		return storage.Record{}, err
	}

	rec.ExpiresAt = rec.ExpiresAt.In(r.clock.Location())
	rec.CreatedAt = rec.CreatedAt.In(r.clock.Location())
	return rec, nil
}

// classify turns driver errors into storage sentinels.
func (r *CodeRepository) classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return storage.ErrConflict
	}

	r.logger.Error("postgres "+op+" failed", zap.Error(err))
	return fmt.Errorf("%w: %s: %v", storage.ErrUnavailable, op, err)
}

// PingContext checks the connection pool.
func (r *CodeRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the connection pool.
func (r *CodeRepository) Close() error {
	return r.db.Close()
}
