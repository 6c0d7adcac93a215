// Package chat keeps the bounded history of the global chat channel.
package chat

import (
	"sync"
	"sync/atomic"
)

// Channel is a chat routing scope.
type Channel string

const (
	// Global reaches every connected session.
	Global Channel = "global"
	// Team reaches sessions that share the sender's team tag.
	Team Channel = "team"
)

// Message is an immutable chat entry.
type Message struct {
	Player  string  `json:"player"`
	Text    string  `json:"text"`
	Channel Channel `json:"channel,omitempty"`
}

// Log is an ordered FIFO of the most recent messages. Insertion order is
// arrival order and the length never exceeds the capacity.
type Log struct {
	mu       sync.RWMutex
	capacity int
	messages []Message
	dirty    atomic.Bool
}

// NewLog creates an empty log retaining at most capacity messages.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1
	}
	return &Log{capacity: capacity, messages: make([]Message, 0, capacity)}
}

// Restore creates a log seeded with persisted history. Only the newest
// capacity entries are kept.
func Restore(capacity int, history []Message) *Log {
	l := NewLog(capacity)
	if len(history) > l.capacity {
		history = history[len(history)-l.capacity:]
	}
	l.messages = append(l.messages, history...)
	return l
}

// Append stores msg, evicting the oldest entry once over capacity.
func (l *Log) Append(msg Message) {
	l.mu.Lock()
	if len(l.messages) == l.capacity {
		copy(l.messages, l.messages[1:])
		l.messages[len(l.messages)-1] = msg
	} else {
		l.messages = append(l.messages, msg)
	}
	l.mu.Unlock()
	l.dirty.Store(true)
}

// Recent returns the retained messages, oldest first.
func (l *Log) Recent() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of retained messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Capacity returns the retention cap.
func (l *Log) Capacity() int { return l.capacity }

// TakeDirty reports whether a message was appended since the last call
// and clears the flag.
func (l *Log) TakeDirty() bool {
	return l.dirty.Swap(false)
}

// MarkDirty flags the log for the next save.
func (l *Log) MarkDirty() {
	l.dirty.Store(true)
}
