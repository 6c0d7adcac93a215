package protocol

import (
	"github.com/invopop/jsonschema"
)

// Schemas returns a JSON Schema per client message type.
func Schemas() map[Type]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	requests := []struct {
		typ         Type
		v           any
		description string
	}{
		{TypeSetName, new(SetNameRequest), "Set the session display name and optional team tag."},
		{TypeSetPixel, new(SetPixelRequest), "Paint one cell; x and y must lie inside the board."},
		{TypeChat, new(ChatRequest), "Post a chat message to the global or team channel."},
		{TypePing, new(PingRequest), "Keepalive; no effect."},
	}

	out := make(map[Type]*jsonschema.Schema, len(requests))
	for _, r := range requests {
		schema := reflector.Reflect(r.v)
		schema.Title = string(r.typ)
		schema.Description = r.description
		out[r.typ] = schema
	}
	return out
}
