// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package media

import "sort"

// Playlist is an ordered list of entries plus the current position.
// It is not safe for concurrent use; the player serializes access.
type Playlist struct {
	entries []MediaEntry
	pos     int
}

// NewPlaylist builds a playlist from the given entries, deduplicated by URI
// (later entries replace earlier ones in place). Position starts at 0.
func NewPlaylist(entries ...MediaEntry) *Playlist {
	p := &Playlist{}
	for _, e := range entries {
		p.AddEntry(e, -1)
	}
	return p
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	return len(p.entries)
}

// Entries returns a copy of the entries in order.
func (p *Playlist) Entries() []MediaEntry {
	out := make([]MediaEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Position returns the current track index. Meaningless when empty.
func (p *Playlist) Position() int {
	return p.pos
}

// CurrentTrack returns the entry at the current position.
// ok is false when the playlist is empty.
func (p *Playlist) CurrentTrack() (MediaEntry, bool) {
	if len(p.entries) == 0 {
		return MediaEntry{}, false
	}
	return p.entries[p.pos], true
}

// Contains reports whether an entry with the given URI is present.
func (p *Playlist) Contains(uri string) bool {
	return p.indexOf(uri) >= 0
}

// AddEntry inserts an entry at the given index; -1 or any index past the
// end appends, negative and out-of-range indexes clamp. An entry with a URI
// already present replaces the existing one in place instead of inserting,
// keeping the playlist free of duplicate URIs.
func (p *Playlist) AddEntry(e MediaEntry, index int) {
	if i := p.indexOf(e.URI); e.URI != "" && i >= 0 {
		p.entries[i] = e
		return
	}
	if index < 0 || index > len(p.entries) {
		index = len(p.entries)
	}
	bump := index < p.pos
	p.entries = append(p.entries, MediaEntry{})
	copy(p.entries[index+1:], p.entries[index:])
	p.entries[index] = e
	if bump {
		p.pos++
	}
}

// Replace swaps the whole playlist for the given entries (deduplicated) and
// resets the position to 0.
func (p *Playlist) Replace(entries []MediaEntry) {
	p.entries = p.entries[:0]
	p.pos = 0
	for _, e := range entries {
		if e.URI != "" && p.indexOf(e.URI) >= 0 {
			continue
		}
		p.entries = append(p.entries, e)
	}
}

// Clear removes all entries and resets the position.
func (p *Playlist) Clear() {
	p.entries = nil
	p.pos = 0
}

// SetPosition jumps to the given index, clamping out-of-range values.
func (p *Playlist) SetPosition(i int) {
	switch {
	case len(p.entries) == 0:
		p.pos = 0
	case i < 0:
		p.pos = 0
	case i >= len(p.entries):
		p.pos = len(p.entries) - 1
	default:
		p.pos = i
	}
}

// GotoTrack moves the position to the entry with the given URI.
// Returns false when no such entry exists.
func (p *Playlist) GotoTrack(uri string) bool {
	if i := p.indexOf(uri); i >= 0 {
		p.pos = i
		return true
	}
	return false
}

// IsFirstTrack reports whether the position is at the start.
func (p *Playlist) IsFirstTrack() bool {
	return p.pos == 0
}

// IsLastTrack reports whether the position is at the end.
func (p *Playlist) IsLastTrack() bool {
	return len(p.entries) == 0 || p.pos == len(p.entries)-1
}

// NextTrack advances the position. Returns false without moving when
// already on the last track or empty.
func (p *Playlist) NextTrack() bool {
	if p.IsLastTrack() {
		return false
	}
	p.pos++
	return true
}

// PrevTrack moves the position back. Returns false without moving when
// already on the first track or empty.
func (p *Playlist) PrevTrack() bool {
	if len(p.entries) == 0 || p.IsFirstTrack() {
		return false
	}
	p.pos--
	return true
}

// SortByConfidence stable-sorts entries by match confidence, highest first,
// and keeps the position pointing at the same entry it pointed at before.
func (p *Playlist) SortByConfidence() {
	var currentURI string
	if cur, ok := p.CurrentTrack(); ok {
		currentURI = cur.URI
	}
	sort.SliceStable(p.entries, func(i, j int) bool {
		return p.entries[i].MatchConfidence > p.entries[j].MatchConfidence
	})
	if currentURI != "" {
		if i := p.indexOf(currentURI); i >= 0 {
			p.pos = i
		}
	}
}

func (p *Playlist) indexOf(uri string) int {
	if uri == "" {
		return -1
	}
	for i, e := range p.entries {
		if e.URI == uri {
			return i
		}
	}
	return -1
}
