// Package protocol defines the JSON wire messages exchanged over the
// websocket. Inbound payloads decode into a closed set of ClientMessage
// types; outbound messages are plain structs with a type discriminant.
package protocol

import (
	"encoding/json"

	"github.com/Tyrowin/pixelplace/internal/board"
	"github.com/Tyrowin/pixelplace/internal/chat"
)

// Type is the value of the "type" discriminant.
type Type string

// Client to server.
const (
	TypeSetName  Type = "setName"
	TypeSetPixel Type = "setPixel"
	TypeChat     Type = "chat"
	TypePing     Type = "ping"
)

// Server to client.
const (
	TypeInit         Type = "init"
	TypeNameAccepted Type = "nameAccepted"
	TypeNameRejected Type = "nameRejected"
	TypePixel        Type = "pixel"
)

// ClientMessage is implemented by every decoded inbound message. The set
// is closed: SetName, SetPixel, Chat and Ping.
type ClientMessage interface {
	clientMessage()
}

// SetName asks to change the session display name.
type SetName struct {
	Player string
	Team   string
}

// SetPixel asks to paint one cell.
type SetPixel struct {
	X     int
	Y     int
	Color string
}

// Chat posts text to a channel. Text is already trimmed.
type Chat struct {
	Text    string
	Channel chat.Channel
}

// Ping is a keepalive with no effect.
type Ping struct{}

func (SetName) clientMessage()  {}
func (SetPixel) clientMessage() {}
func (Chat) clientMessage()     {}
func (Ping) clientMessage()     {}

// Init is the full-state snapshot sent first to every new session.
type Init struct {
	Type  Type           `json:"type"`
	Board [][]string     `json:"board"`
	Chat  []chat.Message `json:"chat"`
}

// NameAccepted confirms a setName request.
type NameAccepted struct {
	Type   Type   `json:"type"`
	Player string `json:"player"`
}

// NameRejected tells the sender why its name was refused.
type NameRejected struct {
	Type   Type   `json:"type"`
	Reason string `json:"reason"`
}

// Pixel broadcasts an accepted cell write.
type Pixel struct {
	Type   Type   `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Player string `json:"player"`
}

// ChatBroadcast relays a chat message. Channel is only set for team chat.
type ChatBroadcast struct {
	Type    Type         `json:"type"`
	Player  string       `json:"player"`
	Text    string       `json:"text"`
	Channel chat.Channel `json:"channel,omitempty"`
}

// NewInit builds the snapshot message. A nil chat history encodes as [].
func NewInit(rows [][]string, history []chat.Message) Init {
	if history == nil {
		history = []chat.Message{}
	}
	return Init{Type: TypeInit, Board: rows, Chat: history}
}

// NewPixel builds the broadcast for an accepted pixel event.
func NewPixel(evt board.PixelEvent) Pixel {
	return Pixel{Type: TypePixel, X: evt.X, Y: evt.Y, Color: evt.Color, Player: evt.Player}
}

// NewChatBroadcast builds the broadcast for msg. The channel is omitted
// for global chat so the payload stays {type, player, text}.
func NewChatBroadcast(msg chat.Message) ChatBroadcast {
	out := ChatBroadcast{Type: TypeChat, Player: msg.Player, Text: msg.Text}
	if msg.Channel == chat.Team {
		out.Channel = chat.Team
	}
	return out
}

// NewNameAccepted builds the reply to an accepted setName.
func NewNameAccepted(player string) NameAccepted {
	return NameAccepted{Type: TypeNameAccepted, Player: player}
}

// NewNameRejected builds the reply to a refused setName.
func NewNameRejected(reason string) NameRejected {
	return NameRejected{Type: TypeNameRejected, Reason: reason}
}

// Encode marshals a server message for the wire.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
