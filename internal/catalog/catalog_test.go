// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package catalog

import (
	"testing"
	"time"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/metrics"
)

func newTestCatalog(t *testing.T) (*Catalog, bus.Conn) {
	t.Helper()

	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	liked, err := LoadLikedSongs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	conn := bus.NewInProc()
	t.Cleanup(func() { conn.Close() })

	c := New(conn, store, liked, metrics.New())
	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Detach)
	return c, conn
}

func announcement(skillID string, tracks ...media.MediaEntry) *bus.Message {
	return bus.New(bus.TypeAnnounce, SkillCard{
		SkillID:        skillID,
		Name:           skillID,
		FeaturedTracks: tracks,
	})
}

func waitForSkills(t *testing.T, c *Catalog, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if len(c.Skills()) == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("skills = %d, want %d", len(c.Skills()), want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAnnounceAndDetach(t *testing.T) {
	c, conn := newTestCatalog(t)

	track := media.NewMediaEntry("news//bbc")
	track.Title = "BBC News"
	if err := conn.Emit(announcement("skill-news", track)); err != nil {
		t.Fatal(err)
	}
	waitForSkills(t, c, 1)

	indexed, err := c.Store().Media()
	if err != nil {
		t.Fatal(err)
	}
	if len(indexed) != 1 || indexed[0].SkillID != "skill-news" {
		t.Fatalf("indexed = %+v, want the announced track tagged with its skill", indexed)
	}

	if err := conn.Emit(bus.New(bus.TypeSkillDetach, map[string]string{"skill_id": "skill-news"})); err != nil {
		t.Fatal(err)
	}
	waitForSkills(t, c, 0)

	indexed, err = c.Store().Media()
	if err != nil {
		t.Fatal(err)
	}
	if len(indexed) != 0 {
		t.Errorf("detach should drop indexed media, still have %d", len(indexed))
	}
}

func TestFeaturedSkillsAdultFilter(t *testing.T) {
	c, conn := newTestCatalog(t)

	safe := media.NewMediaEntry("music//x")
	if err := conn.Emit(announcement("skill-music", safe)); err != nil {
		t.Fatal(err)
	}
	if err := conn.Emit(bus.New(bus.TypeAnnounce, SkillCard{
		SkillID:        "skill-18plus",
		MediaTypes:     []media.MediaType{media.MediaAdult},
		FeaturedTracks: []media.MediaEntry{media.NewMediaEntry("adult//x")},
	})); err != nil {
		t.Fatal(err)
	}
	if err := conn.Emit(bus.New(bus.TypeAnnounce, SkillCard{SkillID: "skill-plain"})); err != nil {
		t.Fatal(err)
	}
	waitForSkills(t, c, 3)

	cards := c.GetFeaturedSkills(false)
	if len(cards) != 1 || cards[0].SkillID != "skill-music" {
		t.Errorf("featured(false) = %+v, want only skill-music", cards)
	}

	cards = c.GetFeaturedSkills(true)
	if len(cards) != 2 {
		t.Errorf("featured(true) should include the adult skill, got %d cards", len(cards))
	}
}

func TestPlayCountPersistence(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for i := 0; i < 3; i++ {
		if _, err := store.IncrementPlayCount("file:///song.mp3"); err != nil {
			t.Fatal(err)
		}
	}
	n, err := store.IncrementPlayCount("file:///other.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("first play count = %d, want 1", n)
	}

	counts, err := store.PlayCounts()
	if err != nil {
		t.Fatal(err)
	}
	if counts["file:///song.mp3"] != 3 || counts["file:///other.mp3"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestSearchResultsSortedAndReplaced(t *testing.T) {
	c, _ := newTestCatalog(t)

	low := media.NewMediaEntry("a")
	low.MatchConfidence = 10
	high := media.NewMediaEntry("b")
	high.MatchConfidence = 90

	c.SetSearchResults([]media.MediaEntry{low, high})
	results := c.SearchResults()
	if len(results) != 2 || results[0].URI != "b" {
		t.Errorf("results = %+v, want confidence-descending", results)
	}

	c.ClearSearchResults()
	if len(c.SearchResults()) != 0 {
		t.Error("clear should empty the search playlist")
	}
}
