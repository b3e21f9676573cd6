// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package bus

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Message is the bus envelope. Data holds the payload as raw JSON so
// handlers decode into their own types; Context carries routing metadata
// and is preserved verbatim across replies and forwards.
type Message struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Context Context         `json:"context"`
}

// Context is the routing metadata attached to every message. Clients on
// shared bus deployments use Source/Destination to scope messages to one
// device; Extra preserves context keys this daemon does not interpret so
// they survive reply round-trips.
type Context struct {
	Source      string
	Destination []string
	SkillID     string
	Session     json.RawMessage
	Extra       map[string]json.RawMessage
}

// contextWire mirrors the wire layout of Context for (un)marshaling.
// Destination arrives as either a string or an array of strings.
type contextWire struct {
	Source      string          `json:"source,omitempty"`
	Destination json.RawMessage `json:"destination,omitempty"`
	SkillID     string          `json:"skill_id,omitempty"`
	Session     json.RawMessage `json:"session,omitempty"`
}

// MarshalJSON writes known fields plus preserved extras.
func (c Context) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Extra)+4)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.Source != "" {
		b, _ := json.Marshal(c.Source)
		out["source"] = b
	}
	if len(c.Destination) > 0 {
		b, _ := json.Marshal(c.Destination)
		out["destination"] = b
	}
	if c.SkillID != "" {
		b, _ := json.Marshal(c.SkillID)
		out["skill_id"] = b
	}
	if len(c.Session) > 0 {
		out["session"] = c.Session
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads known fields and keeps everything else in Extra.
func (c *Context) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	var wire contextWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	c.Source = wire.Source
	c.SkillID = wire.SkillID
	c.Session = wire.Session
	c.Destination = decodeDestination(wire.Destination)

	for _, k := range []string{"source", "destination", "skill_id", "session"} {
		delete(all, k)
	}
	if len(all) > 0 {
		c.Extra = all
	} else {
		c.Extra = nil
	}
	return nil
}

// decodeDestination accepts both "audio" and ["audio","gui"] forms.
func decodeDestination(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// New builds a message of the given type. data may be nil (empty object),
// a json.RawMessage, or any marshalable value.
func New(msgType string, data any) *Message {
	return &Message{Type: msgType, Data: marshalData(data)}
}

// NewWithContext builds a message carrying the given context.
func NewWithContext(msgType string, data any, ctx Context) *Message {
	return &Message{Type: msgType, Data: marshalData(data), Context: ctx}
}

func marshalData(data any) json.RawMessage {
	switch v := data.(type) {
	case nil:
		return json.RawMessage(`{}`)
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage(`{}`)
		}
		return v
	case []byte:
		if len(v) == 0 {
			return json.RawMessage(`{}`)
		}
		return json.RawMessage(v)
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return json.RawMessage(`{}`)
		}
		return b
	}
}

// Response builds the reply to m: type is m.Type + ".response" and the
// context is carried over so routing survives the round-trip.
func (m *Message) Response(data any) *Message {
	return &Message{
		Type:    m.Type + ".response",
		Data:    marshalData(data),
		Context: m.Context,
	}
}

// Forward rebuilds m under a new type, keeping data and context.
func (m *Message) Forward(msgType string) *Message {
	return &Message{Type: msgType, Data: m.Data, Context: m.Context}
}

// DecodeData unmarshals the payload into v.
func (m *Message) DecodeData(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// DataMap returns the payload as a generic map.
func (m *Message) DataMap() map[string]any {
	out := map[string]any{}
	if len(m.Data) > 0 {
		_ = json.Unmarshal(m.Data, &out)
	}
	return out
}

// Encode marshals the full envelope.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode unmarshals a full envelope.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("decode message: missing type")
	}
	return &m, nil
}

// ValidateContext reports whether a message originates from a native source
// of this device. Messages without a destination are assumed native; with a
// destination, at least one entry must be in nativeSources.
func ValidateContext(m *Message, nativeSources []string) bool {
	if len(m.Context.Destination) == 0 {
		return true
	}
	for _, d := range m.Context.Destination {
		for _, n := range nativeSources {
			if d == n {
				return true
			}
		}
	}
	return false
}
