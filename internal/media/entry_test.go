// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package media

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestNewMediaEntryDefaults(t *testing.T) {
	e := NewMediaEntry("file:///music/song.mp3")

	if e.Playback != PlaybackUndefined {
		t.Errorf("Playback = %v, want PlaybackUndefined", e.Playback)
	}
	if e.Status != TrackDisambiguation {
		t.Errorf("Status = %v, want TrackDisambiguation", e.Status)
	}
	if e.MediaType != MediaGeneric {
		t.Errorf("MediaType = %v, want MediaGeneric", e.MediaType)
	}
}

func TestEntryFromMap(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want MediaEntry
	}{
		{
			name: "full payload",
			in: map[string]any{
				"uri":              "https://example.org/a.mp3",
				"title":            "A",
				"artist":           "B",
				"playback":         float64(2),
				"status":           float64(31),
				"media_type":       float64(2),
				"length":           float64(181000),
				"match_confidence": float64(85),
			},
			want: MediaEntry{
				URI:             "https://example.org/a.mp3",
				Title:           "A",
				Artist:          "B",
				Playback:        PlaybackAudio,
				Status:          TrackQueuedAudio,
				MediaType:       MediaMusic,
				Length:          181000,
				MatchConfidence: 85,
			},
		},
		{
			name: "missing enums keep defaults",
			in:   map[string]any{"uri": "x"},
			want: MediaEntry{
				URI:       "x",
				Playback:  PlaybackUndefined,
				Status:    TrackDisambiguation,
				MediaType: MediaGeneric,
			},
		},
		{
			name: "wrong types ignored",
			in: map[string]any{
				"uri":      "x",
				"title":    42,
				"playback": "not-a-number",
			},
			want: MediaEntry{
				URI:       "x",
				Playback:  PlaybackUndefined,
				Status:    TrackDisambiguation,
				MediaType: MediaGeneric,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EntryFromMap(tt.in); got != tt.want {
				t.Errorf("EntryFromMap() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEntryFromRaw(t *testing.T) {
	raw := json.RawMessage(`{"uri":"file:///a.ogg","playback":2,"media_type":7}`)

	e, err := EntryFromRaw(raw)
	if err != nil {
		t.Fatalf("EntryFromRaw: %v", err)
	}
	if e.Playback != PlaybackAudio {
		t.Errorf("Playback = %v, want PlaybackAudio", e.Playback)
	}
	if e.MediaType != MediaRadio {
		t.Errorf("MediaType = %v, want MediaRadio", e.MediaType)
	}
	// Absent enum fields keep constructor defaults, not zero values.
	if e.Status != TrackDisambiguation {
		t.Errorf("Status = %v, want TrackDisambiguation", e.Status)
	}
}

func TestEntryScheme(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{name: "https", uri: "https://x/y.mp3", want: "https"},
		{name: "file", uri: "file:///y.mp3", want: "file"},
		{name: "uppercase normalized", uri: "HTTP://x", want: "http"},
		{name: "no scheme", uri: "/plain/path.mp3", want: ""},
		{name: "empty", uri: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewMediaEntry(tt.uri)
			if got := e.Scheme(); got != tt.want {
				t.Errorf("Scheme() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   MediaEntry
		wantErr bool
	}{
		{name: "valid", entry: entry("uri", 50), wantErr: false},
		{name: "empty uri", entry: entry("", 50), wantErr: true},
		{name: "confidence above range", entry: entry("uri", 101), wantErr: true},
		{name: "confidence below range", entry: entry("uri", -1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestEntryJSONRoundTrip(t *testing.T) {
	e := MediaEntry{
		URI:       "https://x/a.mp3",
		Title:     "T",
		Playback:  PlaybackAudio,
		Status:    TrackPlayingAudio,
		MediaType: MediaMusic,
		Length:    1000,
	}

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back MediaEntry
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != e {
		t.Errorf("round trip = %+v, want %+v", back, e)
	}
}
