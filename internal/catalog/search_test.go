// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package catalog

import (
	"testing"

	"github.com/commonplay/ocpd/internal/media"
)

func indexTrack(t *testing.T, c *Catalog, skill, uri, title, artist string, mt media.MediaType) {
	t.Helper()
	e := media.NewMediaEntry(uri)
	e.Title = title
	e.Artist = artist
	e.MediaType = mt
	e.SkillID = skill
	if err := c.Store().RegisterMedia(skill, e); err != nil {
		t.Fatal(err)
	}
}

func TestSearchScoring(t *testing.T) {
	c, _ := newTestCatalog(t)

	indexTrack(t, c, "skill-music", "spotify//1", "Paranoid", "Black Sabbath", media.MediaMusic)
	indexTrack(t, c, "skill-music", "spotify//2", "Paranoid", "Radiohead", media.MediaMusic)
	indexTrack(t, c, "skill-news", "news//bbc", "BBC World News", "", media.MediaNews)

	results := c.Search("play paranoid by black sabbath", media.MediaMusic)
	if len(results) < 2 {
		t.Fatalf("results = %d entries, want at least 2", len(results))
	}
	// Artist + title + music bonus must outrank a title-only hit.
	if results[0].URI != "spotify//1" {
		t.Errorf("top result = %s, want spotify//1", results[0].URI)
	}
	if results[0].MatchConfidence <= results[1].MatchConfidence {
		t.Errorf("scores not descending: %d then %d",
			results[0].MatchConfidence, results[1].MatchConfidence)
	}
	if results[0].MatchConfidence > 100 {
		t.Errorf("confidence %d above clamp", results[0].MatchConfidence)
	}
	for _, r := range results {
		if r.URI == "news//bbc" {
			t.Error("unrelated entry matched")
		}
	}
}

func TestSearchExactTitleBeatsSubstring(t *testing.T) {
	c, _ := newTestCatalog(t)

	indexTrack(t, c, "s", "u1", "lofi beats", "", media.MediaMusic)
	indexTrack(t, c, "s", "u2", "lofi beats to relax to for hours", "", media.MediaMusic)

	results := c.Search("lofi beats", media.MediaGeneric)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].URI != "u1" {
		t.Errorf("exact title should rank first, got %s", results[0].URI)
	}
}

func TestSearchEmptyPhrase(t *testing.T) {
	c, _ := newTestCatalog(t)
	indexTrack(t, c, "s", "u1", "anything", "", media.MediaMusic)
	if results := c.Search("   ", media.MediaGeneric); results != nil {
		t.Errorf("empty phrase should return nil, got %v", results)
	}
}
