package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerBoardKey = "place:board"
	badgerChatKey  = "place:chat"
)

// boardRecord is the stored form of the grid under badgerBoardKey.
type boardRecord struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Rows   [][]string `json:"rows"`
}

// BadgerStore keeps the board and chat under two keys written in a single
// transaction.
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

// OpenBadgerStore opens (or creates) a BadgerDB directory.
func OpenBadgerStore(dir string, log *slog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	return NewBadgerStore(db, log), nil
}

// NewBadgerStore wraps an already opened database.
func NewBadgerStore(db *badger.DB, log *slog.Logger) *BadgerStore {
	return &BadgerStore{db: db, log: log}
}

// Load reads both keys in one read transaction.
func (s *BadgerStore) Load(_ context.Context) (Snapshot, error) {
	var rec boardRecord
	var snap Snapshot

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerBoardKey))
		if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		}); err != nil {
			return fmt.Errorf("%w: board: %v", ErrCorruptSnapshot, err)
		}

		item, err = txn.Get([]byte(badgerChatKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			if err := json.Unmarshal(v, &snap.Chat); err != nil {
				return fmt.Errorf("%w: chat: %v", ErrCorruptSnapshot, err)
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}

	snap.Width, snap.Height, snap.Board = rec.Width, rec.Height, rec.Rows
	s.log.Debug("Snapshot loaded from badger", "width", snap.Width, "height", snap.Height, "chat", len(snap.Chat))
	return snap, nil
}

// Save writes both keys in a single update transaction.
func (s *BadgerStore) Save(_ context.Context, snap Snapshot) error {
	boardBytes, err := json.Marshal(boardRecord{Width: snap.Width, Height: snap.Height, Rows: snap.Board})
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	chatBytes, err := json.Marshal(snap.Chat)
	if err != nil {
		return fmt.Errorf("encode chat: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(badgerBoardKey), boardBytes); err != nil {
			return err
		}
		return txn.Set([]byte(badgerChatKey), chatBytes)
	})
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	s.log.Info("Closing BadgerDB...")
	return s.db.Close()
}
