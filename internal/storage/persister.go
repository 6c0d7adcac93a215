package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/pixelplace/internal/board"
	"github.com/Tyrowin/pixelplace/internal/chat"
)

// Persister is a write-behind saver. Mutations only flip dirty flags on
// the board and chat log; Run saves on a fixed interval when either is
// dirty. A crash loses at most the writes since the last successful save.
type Persister struct {
	store    Store
	board    *board.Board
	chat     *chat.Log
	interval time.Duration
	log      *slog.Logger
	mu       sync.Mutex
}

// NewPersister creates a Persister saving b and c to store every interval.
func NewPersister(store Store, b *board.Board, c *chat.Log, interval time.Duration, log *slog.Logger) *Persister {
	return &Persister{store: store, board: b, chat: c, interval: interval, log: log}
}

// Run saves dirty state every interval until ctx is cancelled.
func (p *Persister) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("Context done, stopping persister")
			return
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.log.Error("Persisting state failed, keeping in-memory state", "error", err)
			}
		}
	}
}

// Flush saves immediately if anything changed since the last save. On
// failure the state is marked dirty again so the next flush retries.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	boardDirty := p.board.TakeDirty()
	chatDirty := p.chat.TakeDirty()
	if !boardDirty && !chatDirty {
		return nil
	}

	snap := Snapshot{
		Width:  p.board.Width(),
		Height: p.board.Height(),
		Board:  p.board.Get(),
		Chat:   p.chat.Recent(),
	}
	if err := p.store.Save(ctx, snap); err != nil {
		p.board.MarkDirty()
		p.chat.MarkDirty()
		return fmt.Errorf("save snapshot: %w", err)
	}

	p.log.Debug("State persisted", "chat", len(snap.Chat))
	return nil
}

// LoadState restores the board and chat log from store. A missing or
// undecodable snapshot yields an all-white board and an empty log. Any
// other load error is returned, so a store that is only unreachable is
// never overwritten by a blank board.
func LoadState(ctx context.Context, store Store, width, height, chatCap int, log *slog.Logger) (*board.Board, *chat.Log, error) {
	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Info("No saved state, starting with a blank board", "width", width, "height", height)
		return board.New(width, height), chat.NewLog(chatCap), nil
	case errors.Is(err, ErrCorruptSnapshot):
		log.Warn("Saved state is corrupt, starting with a blank board", "error", err)
		return board.New(width, height), chat.NewLog(chatCap), nil
	case err != nil:
		return nil, nil, fmt.Errorf("load saved state: %w", err)
	}

	b, err := board.FromRows(width, height, snap.Board)
	if err != nil {
		log.Warn("Saved board does not fit, starting with a blank board", "error", err)
		b = board.New(width, height)
	}

	history := chat.Restore(chatCap, snap.Chat)
	log.Info("State restored", "chat", history.Len())
	return b, history, nil
}
