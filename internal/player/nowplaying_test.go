// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package player

import (
	"errors"
	"testing"

	"github.com/commonplay/ocpd/internal/media"
)

func TestUpdateOverwritesFields(t *testing.T) {
	n := NewNowPlaying()
	n.Update(media.MediaEntry{
		URI:      "http://x/a.mp3",
		Title:    "A",
		Artist:   "Artist",
		Playback: media.PlaybackAudio,
		Length:   120_000,
	}, false)

	if n.Entry.URI != "http://x/a.mp3" || n.Entry.Title != "A" {
		t.Errorf("entry = %+v", n.Entry)
	}
	if n.LengthMS != 120_000 {
		t.Errorf("LengthMS = %d, want 120000", n.LengthMS)
	}

	n.Update(media.MediaEntry{Title: "B"}, false)
	if n.Entry.Title != "B" {
		t.Errorf("Title = %q, want B", n.Entry.Title)
	}
	if n.Entry.Artist != "Artist" {
		t.Errorf("Artist = %q, zero fields must not clobber", n.Entry.Artist)
	}
}

func TestUpdateNewOnlyKeepsSetFieldsExceptURI(t *testing.T) {
	n := NewNowPlaying()
	n.Update(media.MediaEntry{URI: "http://x/a.mp3", Title: "Old Title"}, false)

	n.Update(media.MediaEntry{
		URI:    "http://x/b.mp3",
		Title:  "New Title",
		Artist: "New Artist",
	}, true)

	if n.Entry.URI != "http://x/b.mp3" {
		t.Errorf("URI = %q, must always follow the new entry", n.Entry.URI)
	}
	if n.Entry.Title != "Old Title" {
		t.Errorf("Title = %q, newonly must keep set fields", n.Entry.Title)
	}
	if n.Entry.Artist != "New Artist" {
		t.Errorf("Artist = %q, newonly must fill unset fields", n.Entry.Artist)
	}
}

func TestUpdateNewURIResetsPosition(t *testing.T) {
	n := NewNowPlaying()
	n.Update(media.MediaEntry{URI: "http://x/a.mp3"}, false)
	n.PositionMS = 30_000

	n.Update(media.MediaEntry{URI: "http://x/b.mp3"}, false)
	if n.PositionMS != 0 {
		t.Errorf("PositionMS = %d, want reset on new uri", n.PositionMS)
	}
}

func TestReset(t *testing.T) {
	n := NewNowPlaying()
	n.Update(media.MediaEntry{URI: "http://x/a.mp3", Playback: media.PlaybackAudio}, false)
	n.PositionMS = 5000

	n.Reset()
	if !n.Entry.IsEmpty() || n.PositionMS != 0 || n.LengthMS != 0 {
		t.Errorf("Reset left %+v pos=%d len=%d", n.Entry, n.PositionMS, n.LengthMS)
	}
	if n.Entry.Playback != media.PlaybackUndefined {
		t.Errorf("Playback = %v, want UNDEFINED", n.Entry.Playback)
	}
	if n.Entry.Status != media.TrackDisambiguation {
		t.Errorf("Status = %v, want DISAMBIGUATION", n.Entry.Status)
	}
}

func TestExtractStream(t *testing.T) {
	n := NewNowPlaying()

	if _, err := n.ExtractStream(); !errors.Is(err, media.ErrInvalidStream) {
		t.Errorf("empty uri: err = %v, want ErrInvalidStream", err)
	}

	n.Update(media.MediaEntry{URI: "file:///music/a.ogg"}, false)
	stream, err := n.ExtractStream()
	if err != nil {
		t.Fatal(err)
	}
	if stream != "/music/a.ogg" {
		t.Errorf("stream = %q, want file:// stripped", stream)
	}

	n.Update(media.MediaEntry{URI: "http://x/a.mp3"}, false)
	stream, err = n.ExtractStream()
	if err != nil {
		t.Fatal(err)
	}
	if stream != "http://x/a.mp3" {
		t.Errorf("stream = %q, want pass-through", stream)
	}
}

type failingExtractor struct{}

func (failingExtractor) Extract(string) (string, error) {
	return "", errors.New("resolver down")
}

func TestExtractStreamExtractorError(t *testing.T) {
	n := NewNowPlaying()
	n.SetExtractor(failingExtractor{})
	n.Update(media.MediaEntry{URI: "youtube//watch?v=x"}, false)

	if _, err := n.ExtractStream(); err == nil {
		t.Error("extractor failure must surface")
	}
}

func TestHistory(t *testing.T) {
	n := NewNowPlaying()
	if got := n.BumpHistory("http://x/a.mp3"); got != 1 {
		t.Errorf("first bump = %d", got)
	}
	if got := n.BumpHistory("http://x/a.mp3"); got != 2 {
		t.Errorf("second bump = %d", got)
	}
	if got := n.BumpHistory(""); got != 0 {
		t.Errorf("empty uri bump = %d", got)
	}

	n.LoadHistory(map[string]int{"http://x/a.mp3": 1, "http://x/b.mp3": 7})
	h := n.History()
	if h["http://x/a.mp3"] != 2 {
		t.Errorf("loaded count must not lower existing: %d", h["http://x/a.mp3"])
	}
	if h["http://x/b.mp3"] != 7 {
		t.Errorf("b count = %d", h["http://x/b.mp3"])
	}
}
