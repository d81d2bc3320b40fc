package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/clock"
)

// FileStorage persists records as JSON lines appended to a single file.
// The whole file is indexed in memory when opened.
type FileStorage struct {
	mu     sync.RWMutex
	file   *os.File
	index  map[string]Record
	clock  clock.Clock
	newID  IDFunc
	logger *zap.Logger
}

// NewFileStorage opens (or creates) the file at p and loads existing records.
func NewFileStorage(p string, c clock.Clock, logger *zap.Logger, opts ...Option) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(p), 0770); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0660)
	if err != nil {
		return nil, err
	}

	o := ApplyOptions(opts...)
	fs := &FileStorage{
		file:   file,
		index:  make(map[string]Record),
		clock:  c,
		newID:  o.NewID,
		logger: logger,
	}

	records, err := fs.read()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	for _, r := range records {
		fs.index[r.ID] = fs.inZone(r)
	}
	logger.Info("file storage loaded", zap.String("path", p), zap.Int("records", len(records)))

	return fs, nil
}

// read loads every complete line. A final line without a newline is a torn
// append and is cut off the file.
func (fs *FileStorage) read() ([]Record, error) {
	if _, err := fs.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var (
		records []Record
		offset  int64
	)
	reader := bufio.NewReader(fs.file)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				fs.logger.Warn("dropping torn record at end of file",
					zap.Int64("offset", offset), zap.Int("bytes", len(line)))
				if err := fs.file.Truncate(offset); err != nil {
					return nil, fmt.Errorf("failed to truncate torn record: %w", err)
				}
			}
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error reading file: %w", err)
		}
		start := offset
		offset += int64(len(line))

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("failed to parse JSON line at offset %d: %w", start, err)
		}
		records = append(records, r)
	}
}

func (fs *FileStorage) inZone(r Record) Record {
	loc := fs.clock.Location()
	r.ExpiresAt = r.ExpiresAt.In(loc)
	r.CreatedAt = r.CreatedAt.In(loc)
	return r
}

// Create appends a new record and syncs the file before returning.
func (fs *FileStorage) Create(ctx context.Context, target string, expiresAt time.Time) (Record, error) {
	return CreateWithRetry(ctx, fs.newID, func(_ context.Context, id string) (Record, error) {
		fs.mu.Lock()
		defer fs.mu.Unlock()

		if _, exists := fs.index[id]; exists {
			return Record{}, ErrConflict
		}

		r := Record{
			ID:        id,
			Target:    target,
			ExpiresAt: expiresAt.In(fs.clock.Location()),
			CreatedAt: fs.clock.Now(),
		}

		b, err := json.Marshal(r)
		if err != nil {
			return Record{}, err
		}

		info, err := fs.file.Stat()
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		offset := info.Size()

		if _, err := fs.file.Write(append(b, '\n')); err != nil {
			fs.rollback(offset)
			return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := fs.file.Sync(); err != nil {
			fs.rollback(offset)
			return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		fs.index[id] = r
		return r, nil
	})
}

// rollback cuts a failed append so the next one starts on a clean line.
func (fs *FileStorage) rollback(offset int64) {
	if err := fs.file.Truncate(offset); err != nil {
		fs.logger.Error("failed to roll back partial append", zap.Int64("offset", offset), zap.Error(err))
	}
}

// Get returns the record stored under id.
func (fs *FileStorage) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	r, ok := fs.index[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// ListActive returns the records expiring strictly after asOf.
func (fs *FileStorage) ListActive(ctx context.Context, asOf time.Time) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	active := make([]Record, 0)
	for _, r := range fs.index {
		if r.ExpiresAt.After(asOf) {
			active = append(active, r)
		}
	}
	return active, nil
}

// PingContext checks that the backing file is still reachable.
func (fs *FileStorage) PingContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := fs.file.Stat()
	return err
}

// Close closes the backing file.
func (fs *FileStorage) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
