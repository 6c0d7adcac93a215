package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/pixelplace/internal/chat"
)

var (
	// ErrMalformedMessage covers unparseable payloads and invalid fields.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownType is returned for a well-formed payload with an
	// unsupported type discriminant.
	ErrUnknownType = errors.New("unknown message type")
)

type envelope struct {
	Type Type `json:"type"`
}

// SetNameRequest is the wire form of setName.
type SetNameRequest struct {
	Type   Type   `json:"type" jsonschema:"enum=setName"`
	Player string `json:"player"`
	Team   string `json:"team,omitempty" validate:"omitempty,max=16,alphanum"`
}

// SetPixelRequest is the wire form of setPixel. The player field is
// accepted but ignored; the session name is authoritative.
type SetPixelRequest struct {
	Type   Type   `json:"type" jsonschema:"enum=setPixel"`
	X      *int   `json:"x" validate:"required"`
	Y      *int   `json:"y" validate:"required"`
	Color  string `json:"color" validate:"required,hexcolor"`
	Player string `json:"player,omitempty"`
}

// ChatRequest is the wire form of chat.
type ChatRequest struct {
	Type    Type         `json:"type" jsonschema:"enum=chat"`
	Player  string       `json:"player,omitempty"`
	Text    string       `json:"text" validate:"required"`
	Channel chat.Channel `json:"channel,omitempty" validate:"omitempty,oneof=global team"`
}

// PingRequest is the wire form of ping.
type PingRequest struct {
	Type Type `json:"type" jsonschema:"enum=ping"`
}

// Decoder turns raw frames into ClientMessage values.
type Decoder struct {
	validate      *validator.Validate
	maxChatLength int
}

// NewDecoder creates a Decoder. Chat text longer than maxChatLength runes
// is rejected; zero disables the limit.
func NewDecoder(maxChatLength int) *Decoder {
	return &Decoder{
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		maxChatLength: maxChatLength,
	}
}

// Decode parses raw and returns the matching ClientMessage. Errors wrap
// ErrMalformedMessage or ErrUnknownType.
func (d *Decoder) Decode(raw []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch env.Type {
	case TypeSetName:
		var req SetNameRequest
		if err := d.unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return SetName{Player: strings.TrimSpace(req.Player), Team: req.Team}, nil

	case TypeSetPixel:
		var req SetPixelRequest
		if err := d.unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return SetPixel{X: *req.X, Y: *req.Y, Color: req.Color}, nil

	case TypeChat:
		var req ChatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		req.Text = strings.TrimSpace(req.Text)
		if err := d.validate.Struct(req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if d.maxChatLength > 0 && len([]rune(req.Text)) > d.maxChatLength {
			return nil, fmt.Errorf("%w: chat text over %d characters", ErrMalformedMessage, d.maxChatLength)
		}
		channel := req.Channel
		if channel == "" {
			channel = chat.Global
		}
		return Chat{Text: req.Text, Channel: channel}, nil

	case TypePing:
		return Ping{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func (d *Decoder) unmarshal(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := d.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}
