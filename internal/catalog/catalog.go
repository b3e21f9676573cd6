// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package catalog

import (
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/metrics"
)

// announceWait is how long GetFeaturedSkills waits after broadcasting
// skills.get so late announcements still make the reply.
const announceWait = 200 * time.Millisecond

// SkillCard describes one media skill registered over the bus.
type SkillCard struct {
	SkillID        string             `json:"skill_id"`
	Name           string             `json:"skill_name,omitempty"`
	Thumbnail      string             `json:"thumbnail,omitempty"`
	MediaTypes     []media.MediaType  `json:"media_types,omitempty"`
	FeaturedTracks []media.MediaEntry `json:"featured_tracks,omitempty"`
}

// featured reports whether the skill ships featured tracks.
func (c SkillCard) featured() bool {
	return len(c.FeaturedTracks) > 0
}

// adult reports whether the card is restricted to adult-enabled queries.
func (c SkillCard) adult() bool {
	for _, t := range c.MediaTypes {
		if t.Adult() {
			return true
		}
	}
	return false
}

// Catalog is the content side of the player: which skills can serve media,
// the liked-songs store, the persisted search index, and the last search's
// result list.
type Catalog struct {
	conn    bus.Conn
	store   *Store
	liked   *LikedSongs
	metrics *metrics.Metrics

	mu     sync.RWMutex
	skills map[string]SkillCard

	// searchMu serializes replacements of the search playlist against
	// readers; the player reads it while picking merge-search candidates.
	searchMu       sync.Mutex
	searchPlaylist *media.Playlist

	subs []*bus.Subscription
}

// New builds the catalog over an opened store and liked-songs file.
func New(conn bus.Conn, store *Store, liked *LikedSongs, m *metrics.Metrics) *Catalog {
	return &Catalog{
		conn:           conn,
		store:          store,
		liked:          liked,
		metrics:        m,
		skills:         map[string]SkillCard{},
		searchPlaylist: media.NewPlaylist(),
	}
}

// Attach registers the catalog's bus handlers.
func (c *Catalog) Attach() error {
	handlers := map[string]bus.Handler{
		bus.TypeAnnounce:    c.handleAnnounce,
		bus.TypeSkillDetach: c.handleDetach,
	}
	for msgType, h := range handlers {
		sub, err := c.conn.On(msgType, h)
		if err != nil {
			return err
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

// Detach removes the bus handlers.
func (c *Catalog) Detach() {
	for _, sub := range c.subs {
		c.conn.Remove(sub)
	}
	c.subs = nil
}

// handleAnnounce registers or refreshes a skill card and indexes its
// featured tracks for search.
func (c *Catalog) handleAnnounce(msg *bus.Message) {
	var card SkillCard
	if err := msg.DecodeData(&card); err != nil || card.SkillID == "" {
		logging.Warn().Str("component", "catalog").Err(err).Msg("bad skill announce")
		return
	}

	c.mu.Lock()
	c.skills[card.SkillID] = card
	c.mu.Unlock()

	for _, track := range card.FeaturedTracks {
		if track.SkillID == "" {
			track.SkillID = card.SkillID
		}
		if err := c.store.RegisterMedia(card.SkillID, track); err != nil {
			logging.Warn().
				Str("component", "catalog").
				Str("skill_id", card.SkillID).
				Str("uri", track.URI).
				Err(err).
				Msg("failed to index featured track")
		}
	}

	logging.Debug().
		Str("component", "catalog").
		Str("skill_id", card.SkillID).
		Int("featured_tracks", len(card.FeaturedTracks)).
		Msg("media skill announced")
}

// handleDetach forgets a skill and its indexed media.
func (c *Catalog) handleDetach(msg *bus.Message) {
	var payload struct {
		SkillID string `json:"skill_id"`
	}
	if err := msg.DecodeData(&payload); err != nil || payload.SkillID == "" {
		return
	}

	c.mu.Lock()
	delete(c.skills, payload.SkillID)
	c.mu.Unlock()

	if err := c.store.RemoveSkillMedia(payload.SkillID); err != nil {
		logging.Warn().
			Str("component", "catalog").
			Str("skill_id", payload.SkillID).
			Err(err).
			Msg("failed to drop skill media")
	}
	logging.Debug().Str("component", "catalog").Str("skill_id", payload.SkillID).Msg("media skill detached")
}

// Skills returns a snapshot of the registered skill cards.
func (c *Catalog) Skills() []SkillCard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SkillCard, 0, len(c.skills))
	for _, card := range c.skills {
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out
}

// GetFeaturedSkills broadcasts skills.get to prompt fresh announcements,
// waits briefly for latecomers, then returns the cards that carry featured
// tracks, filtered by the adult policy.
func (c *Catalog) GetFeaturedSkills(adultOK bool) []SkillCard {
	if err := c.conn.Emit(bus.New(bus.TypeSkillsGet, nil)); err != nil {
		logging.Warn().Str("component", "catalog").Err(err).Msg("skills.get broadcast failed")
	}
	time.Sleep(announceWait)

	var out []SkillCard
	for _, card := range c.Skills() {
		if !card.featured() {
			continue
		}
		if card.adult() && !adultOK {
			continue
		}
		out = append(out, card)
	}
	return out
}

// Liked exposes the liked-songs store.
func (c *Catalog) Liked() *LikedSongs {
	return c.liked
}

// Store exposes the persisted index, for the janitor and the player's
// play-count bookkeeping.
func (c *Catalog) Store() *Store {
	return c.store
}

// SetSearchResults replaces the search playlist with the deduplicated
// results sorted by confidence, highest first.
func (c *Catalog) SetSearchResults(entries []media.MediaEntry) {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	c.searchPlaylist.Replace(entries)
	c.searchPlaylist.SortByConfidence()
}

// SearchResults returns a copy of the current search playlist entries.
func (c *Catalog) SearchResults() []media.MediaEntry {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	return c.searchPlaylist.Entries()
}

// ClearSearchResults drops the search playlist.
func (c *Catalog) ClearSearchResults() {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	c.searchPlaylist.Clear()
}

// AsJSON renders a skill card list for bus replies.
func AsJSON(cards []SkillCard) json.RawMessage {
	b, err := json.Marshal(cards)
	if err != nil {
		return json.RawMessage(`[]`)
	}
	return b
}
