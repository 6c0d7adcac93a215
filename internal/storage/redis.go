package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisNamespace = "pixelplace"

// RedisStore keeps the snapshot under namespaced keys written inside a
// MULTI/EXEC transaction.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a store whose keys are prefixed with namespace.
func NewRedisStore(opts *redis.Options, namespace string) *RedisStore {
	if namespace == "" {
		namespace = defaultRedisNamespace
	}
	return &RedisStore{rdb: redis.NewClient(opts), namespace: namespace}
}

func (s *RedisStore) boardKey() string { return s.namespace + ":board" }
func (s *RedisStore) chatKey() string  { return s.namespace + ":chat" }

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Load reads both keys with a single MGET.
func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	values, err := s.rdb.MGet(ctx, s.boardKey(), s.chatKey()).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot from Redis: %w", err)
	}

	boardRaw, ok := values[0].(string)
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	var rec boardRecord
	if err := json.Unmarshal([]byte(boardRaw), &rec); err != nil {
		return Snapshot{}, fmt.Errorf("%w: board: %v", ErrCorruptSnapshot, err)
	}
	snap := Snapshot{Width: rec.Width, Height: rec.Height, Board: rec.Rows}

	if chatRaw, ok := values[1].(string); ok {
		if err := json.Unmarshal([]byte(chatRaw), &snap.Chat); err != nil {
			return Snapshot{}, fmt.Errorf("%w: chat: %v", ErrCorruptSnapshot, err)
		}
	}
	return snap, nil
}

// Save replaces both keys atomically.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	boardBytes, err := json.Marshal(boardRecord{Width: snap.Width, Height: snap.Height, Rows: snap.Board})
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	chatBytes, err := json.Marshal(snap.Chat)
	if err != nil {
		return fmt.Errorf("encode chat: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.boardKey(), boardBytes, 0)
		pipe.Set(ctx, s.chatKey(), chatBytes, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write snapshot to Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
