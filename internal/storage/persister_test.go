package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/pixelplace/internal/board"
	"github.com/Tyrowin/pixelplace/internal/chat"
)

// failingStore fails every Save until healed.
type failingStore struct {
	MemoryStore
	healed bool
}

func (s *failingStore) Save(ctx context.Context, snap Snapshot) error {
	if !s.healed {
		return errors.New("disk on fire")
	}
	return s.MemoryStore.Save(ctx, snap)
}

// erroringStore fails every Load with err.
type erroringStore struct {
	MemoryStore
	err error
}

func (s *erroringStore) Load(context.Context) (Snapshot, error) {
	return Snapshot{}, s.err
}

func TestPersisterFlushOnlyWhenDirty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	b := board.New(4, 4)
	c := chat.NewLog(10)
	p := NewPersister(store, b, c, time.Hour, logs.GetLoggerFromLevel(slog.LevelDebug))

	require.NoError(t, p.Flush(ctx))
	assert.Equal(t, 0, store.Saves())

	_, err := b.SetCell(1, 2, "#FF0000", "Alice")
	require.NoError(t, err)
	c.Append(chat.Message{Player: "Alice", Text: "hi"})

	require.NoError(t, p.Flush(ctx))
	require.NoError(t, p.Flush(ctx))
	assert.Equal(t, 1, store.Saves())

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", snap.Board[2][1])
	assert.Equal(t, []chat.Message{{Player: "Alice", Text: "hi"}}, snap.Chat)
}

func TestPersisterKeepsDirtyAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	b := board.New(4, 4)
	c := chat.NewLog(10)
	p := NewPersister(store, b, c, time.Hour, logs.GetLoggerFromLevel(slog.LevelDebug))

	_, err := b.SetCell(0, 0, "#000000", "Bob")
	require.NoError(t, err)

	require.Error(t, p.Flush(ctx))

	c0, err := b.Cell(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "#000000", c0, "memory stays authoritative")

	store.healed = true
	require.NoError(t, p.Flush(ctx))
	assert.Equal(t, 1, store.Saves())
}

func TestPersisterRunSavesPeriodically(t *testing.T) {
	store := NewMemoryStore()
	b := board.New(4, 4)
	c := chat.NewLog(10)
	p := NewPersister(store, b, c, 10*time.Millisecond, logs.GetLoggerFromLevel(slog.LevelDebug))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	_, err := b.SetCell(3, 3, "#ABCDEF", "Clara")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return store.Saves() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("persister did not stop")
	}
}

func TestLoadState(t *testing.T) {
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	t.Run("nothing saved", func(t *testing.T) {
		b, c, err := LoadState(ctx, NewMemoryStore(), 4, 4, 10, log)
		require.NoError(t, err)
		assert.Equal(t, board.New(4, 4).Get(), b.Get())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("restores board and chat", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, sampleSnapshot()))

		b, c, err := LoadState(ctx, store, 2, 2, 1, log)
		require.NoError(t, err)
		assert.Equal(t, sampleSnapshot().Board, b.Get())
		assert.Equal(t, []chat.Message{{Player: "Bob", Text: "hello"}}, c.Recent())
	})

	t.Run("wrong dimensions fall back to blank board", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, sampleSnapshot()))

		b, c, err := LoadState(ctx, store, 4, 4, 10, log)
		require.NoError(t, err)
		assert.Equal(t, board.New(4, 4).Get(), b.Get())
		assert.Equal(t, 2, c.Len())
	})

	t.Run("corrupt snapshot falls back to blank board", func(t *testing.T) {
		store := &erroringStore{err: fmt.Errorf("%w: unexpected EOF", ErrCorruptSnapshot)}

		b, c, err := LoadState(ctx, store, 4, 4, 10, log)
		require.NoError(t, err)
		assert.Equal(t, board.New(4, 4).Get(), b.Get())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("unreadable store is an error", func(t *testing.T) {
		store := &erroringStore{err: errors.New("permission denied")}

		b, c, err := LoadState(ctx, store, 4, 4, 10, log)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Nil(t, b)
		assert.Nil(t, c)
	})
}
