// Package storage persists the board and the chat history. Every backend
// replaces the whole snapshot atomically: a reader never observes a
// partially written board.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Tyrowin/pixelplace/internal/chat"
)

var (
	// ErrNotFound is returned by Load when nothing has been saved yet.
	ErrNotFound = errors.New("no saved state")
	// ErrUnknownBackend is returned by Open for an unsupported selector.
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrCorruptSnapshot is returned when stored data cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Snapshot is the persisted state: Height rows of Width colors plus the
// retained global chat history, oldest first.
type Snapshot struct {
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Board  [][]string     `json:"board"`
	Chat   []chat.Message `json:"chat"`
}

// Store is a durable home for one Snapshot.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// Open selects a backend from dsn:
//
//	file:<path>       JSON document replaced via rename
//	badger:<dir>      BadgerDB directory
//	redis://...       Redis URL (rediss:// for TLS)
//	memory:           process memory only
func Open(ctx context.Context, dsn string, log *slog.Logger) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "file:"):
		return NewFileStore(strings.TrimPrefix(dsn, "file:"))

	case strings.HasPrefix(dsn, "badger:"):
		return OpenBadgerStore(strings.TrimPrefix(dsn, "badger:"), log)

	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		store := NewRedisStore(opts, defaultRedisNamespace)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return store, nil

	case dsn == "memory:" || dsn == "memory":
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, dsn)
	}
}
