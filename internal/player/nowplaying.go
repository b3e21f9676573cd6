// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package player

import (
	"fmt"
	"strings"

	"github.com/commonplay/ocpd/internal/media"
)

// StreamExtractor resolves a logical URI ("youtube//...", "rss://...") into
// a directly playable stream. The default extractor passes URIs through
// untouched; deployments with extraction plugins install their own.
type StreamExtractor interface {
	Extract(uri string) (string, error)
}

type passThroughExtractor struct{}

func (passThroughExtractor) Extract(uri string) (string, error) {
	return uri, nil
}

// NowPlaying is the active entry plus live playback telemetry and the
// per-URI play history. Not safe for concurrent use; the player serializes
// all access behind its own mutex.
type NowPlaying struct {
	Entry media.MediaEntry

	// PositionMS and LengthMS are live telemetry in milliseconds, updated
	// from backend playback_time events.
	PositionMS int64
	LengthMS   int64

	extractor StreamExtractor
	history   map[string]int
}

// NewNowPlaying returns an empty model with a pass-through extractor.
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{
		Entry:     media.NewMediaEntry(""),
		extractor: passThroughExtractor{},
		history:   map[string]int{},
	}
}

// SetExtractor installs a stream extractor. A nil extractor restores the
// pass-through default.
func (n *NowPlaying) SetExtractor(e StreamExtractor) {
	if e == nil {
		e = passThroughExtractor{}
	}
	n.extractor = e
}

// Update merges fields from a new entry. With newonly every already-set
// field is kept, except the URI which always follows the new entry when it
// carries one: the URI is the entry's identity and must never go stale.
func (n *NowPlaying) Update(entry media.MediaEntry, newonly bool) {
	if entry.URI != "" {
		if n.Entry.URI != entry.URI {
			n.PositionMS = 0
		}
		n.Entry.URI = entry.URI
	}
	setStr := func(dst *string, v string) {
		if v != "" && (!newonly || *dst == "") {
			*dst = v
		}
	}
	setStr(&n.Entry.Title, entry.Title)
	setStr(&n.Entry.Artist, entry.Artist)
	setStr(&n.Entry.Album, entry.Album)
	setStr(&n.Entry.Image, entry.Image)
	setStr(&n.Entry.SkillID, entry.SkillID)
	setStr(&n.Entry.SkillIcon, entry.SkillIcon)
	setStr(&n.Entry.Javascript, entry.Javascript)

	if entry.Playback != media.PlaybackUndefined && (!newonly || n.Entry.Playback == media.PlaybackUndefined) {
		n.Entry.Playback = entry.Playback
	}
	if entry.Status != media.TrackDisambiguation && (!newonly || n.Entry.Status == media.TrackDisambiguation) {
		n.Entry.Status = entry.Status
	}
	if entry.MediaType != media.MediaGeneric && (!newonly || n.Entry.MediaType == media.MediaGeneric) {
		n.Entry.MediaType = entry.MediaType
	}
	if entry.Length > 0 && (!newonly || n.Entry.Length == 0) {
		n.Entry.Length = entry.Length
		n.LengthMS = entry.Length
	}
	if entry.MatchConfidence > 0 && (!newonly || n.Entry.MatchConfidence == 0) {
		n.Entry.MatchConfidence = entry.MatchConfidence
	}
}

// Reset clears the model back to an empty entry: disambiguation status,
// undefined playback, generic media type, zero telemetry.
func (n *NowPlaying) Reset() {
	n.Entry = media.NewMediaEntry("")
	n.PositionMS = 0
	n.LengthMS = 0
}

// ExtractStream resolves the playable stream for the current URI. Bare
// file:// URIs are normalized to plain paths; everything else goes through
// the installed extractor.
func (n *NowPlaying) ExtractStream() (string, error) {
	uri := n.Entry.URI
	if uri == "" {
		return "", fmt.Errorf("now playing has no uri: %w", media.ErrInvalidStream)
	}
	if strings.HasPrefix(uri, "file://") {
		return strings.TrimPrefix(uri, "file://"), nil
	}
	stream, err := n.extractor.Extract(uri)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", uri, err)
	}
	if stream == "" {
		return "", fmt.Errorf("extractor returned nothing for %s: %w", uri, media.ErrInvalidStream)
	}
	return stream, nil
}

// BumpHistory increments the play count of a URI and returns the new count.
func (n *NowPlaying) BumpHistory(uri string) int {
	if uri == "" {
		return 0
	}
	n.history[uri]++
	return n.history[uri]
}

// History returns a copy of the play-count map.
func (n *NowPlaying) History() map[string]int {
	out := make(map[string]int, len(n.history))
	for k, v := range n.history {
		out[k] = v
	}
	return out
}

// LoadHistory seeds play counts from persisted state, keeping the higher
// count on collision.
func (n *NowPlaying) LoadHistory(counts map[string]int) {
	for uri, count := range counts {
		if count > n.history[uri] {
			n.history[uri] = count
		}
	}
}
