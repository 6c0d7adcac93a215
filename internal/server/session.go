package server

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDisplayName is the name of a session that has not set one.
const DefaultDisplayName = "Guest"

// Session is the per-connection record. It is owned by the hub goroutine:
// only the hub reads or writes the mutable fields.
type Session struct {
	ID          string
	ConnectedAt time.Time

	DisplayName  string
	Team         string
	Named        bool
	PixelsPlaced int
	ChatsSent    int
}

// NewSession creates an unnamed session with a fresh identifier.
func NewSession() *Session {
	return &Session{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now(),
		DisplayName: DefaultDisplayName,
	}
}

// Rename moves the session to the Named state.
func (s *Session) Rename(name, team string) {
	s.DisplayName = name
	s.Team = team
	s.Named = true
}
