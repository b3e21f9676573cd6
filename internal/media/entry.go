// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package media

import (
	"strings"

	"github.com/goccy/go-json"
)

// MediaEntry is a single playable item as exchanged on the bus.
//
// Identity is the URI: two entries are the same item iff their URIs are
// equal, regardless of metadata differences. Length and Position are
// milliseconds. MatchConfidence is a 0-100 search score.
type MediaEntry struct {
	URI             string       `json:"uri"`
	Title           string       `json:"title,omitempty"`
	Artist          string       `json:"artist,omitempty"`
	Album           string       `json:"album,omitempty"`
	Image           string       `json:"image,omitempty"`
	SkillID         string       `json:"skill_id,omitempty"`
	SkillIcon       string       `json:"skill_icon,omitempty"`
	Playback        PlaybackType `json:"playback"`
	Status          TrackState   `json:"status"`
	MediaType       MediaType    `json:"media_type"`
	Length          int64        `json:"length,omitempty"`
	Position        int64        `json:"position,omitempty"`
	MatchConfidence int          `json:"match_confidence,omitempty"`
	Javascript      string       `json:"javascript,omitempty"`
}

// NewMediaEntry returns an entry with protocol defaults: undefined playback,
// disambiguation status, generic media type.
func NewMediaEntry(uri string) MediaEntry {
	return MediaEntry{
		URI:       uri,
		Playback:  PlaybackUndefined,
		Status:    TrackDisambiguation,
		MediaType: MediaGeneric,
	}
}

// EntryFromRaw decodes an entry from a raw JSON object, applying protocol
// defaults for absent enum fields.
func EntryFromRaw(raw json.RawMessage) (MediaEntry, error) {
	e := NewMediaEntry("")
	if err := json.Unmarshal(raw, &e); err != nil {
		return MediaEntry{}, err
	}
	return e, nil
}

// EntryFromMap builds an entry from a loosely-typed payload map, as found
// inside track lists. Unknown keys are ignored; numeric fields accept any
// JSON number representation.
func EntryFromMap(m map[string]any) MediaEntry {
	e := NewMediaEntry(mapString(m, "uri"))
	e.Title = mapString(m, "title")
	e.Artist = mapString(m, "artist")
	e.Album = mapString(m, "album")
	e.Image = mapString(m, "image")
	e.SkillID = mapString(m, "skill_id")
	e.SkillIcon = mapString(m, "skill_icon")
	e.Javascript = mapString(m, "javascript")
	if v, ok := mapInt(m, "playback"); ok {
		e.Playback = PlaybackType(v)
	}
	if v, ok := mapInt(m, "status"); ok {
		e.Status = TrackState(v)
	}
	if v, ok := mapInt(m, "media_type"); ok {
		e.MediaType = MediaType(v)
	}
	if v, ok := mapInt(m, "length"); ok {
		e.Length = v
	}
	if v, ok := mapInt(m, "position"); ok {
		e.Position = v
	}
	if v, ok := mapInt(m, "match_confidence"); ok {
		e.MatchConfidence = int(v)
	}
	return e
}

// IsEmpty reports whether the entry carries no playable URI.
func (e MediaEntry) IsEmpty() bool {
	return e.URI == ""
}

// Scheme returns the URI scheme in lowercase, or "" when the URI has none.
func (e MediaEntry) Scheme() string {
	idx := strings.Index(e.URI, "://")
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(e.URI[:idx])
}

// Validate checks the fields a play request must carry.
func (e MediaEntry) Validate() error {
	if e.URI == "" {
		return &ValidationError{Field: "uri", Message: "must not be empty"}
	}
	if e.MatchConfidence < 0 || e.MatchConfidence > 100 {
		return &ValidationError{Field: "match_confidence", Message: "must be in [0,100]"}
	}
	return nil
}

func mapString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func mapInt(m map[string]any, key string) (int64, bool) {
	switch v := m[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
	}
	return 0, false
}
