// Package server defines shared payload types and utility helpers that
// are reused across client and hub logic.
package server

import (
	"strings"

	"github.com/Tyrowin/pixelplace/internal/protocol"
)

// TextPolicy validates display names and redacts chat text.
type TextPolicy interface {
	CheckName(name string) error
	Redact(text string) string
}

// inboundMessage is a decoded, admitted client message waiting for the
// hub's critical section.
type inboundMessage struct {
	client *Client
	msg    protocol.ClientMessage
}

// isMutation reports whether msg changes shared state and is therefore
// subject to rate limiting.
func isMutation(msg protocol.ClientMessage) bool {
	switch msg.(type) {
	case protocol.SetPixel, protocol.Chat:
		return true
	default:
		return false
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
