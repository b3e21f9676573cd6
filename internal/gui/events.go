// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package gui

import (
	"time"

	"github.com/commonplay/ocpd/internal/player"
)

// GUI event types shipped over the websocket.
const (
	EventTypeState       = "player_state"
	EventTypeNowPlaying  = "now_playing"
	EventTypePlaylist    = "playlist"
	EventTypePosition    = "position"
	EventTypeView        = "view"
	EventTypeSpinner     = "search_spinner"
	EventTypeError       = "playback_error"
	EventTypePing        = "ping"
	EventTypePong        = "pong"
)

// Views a client can be asked to show.
const (
	ViewHome     = "home"
	ViewPlayer   = "player"
	ViewPlaylist = "playlist"
)

// Event is one websocket frame. Timestamp lets clients age out transient
// banners (the error view clears itself after 5s client-side).
type Event struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, data any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

// Attach subscribes the hub to player changes. Listener callbacks run on
// the player's goroutine, so everything here must stay non-blocking.
func (h *Hub) Attach(p *player.Player) {
	p.AddListener(func(ev player.Event) {
		for _, out := range translate(ev) {
			h.Notify(out)
		}
	})
}

// translate maps one player change onto the GUI events it implies.
func translate(ev player.Event) []Event {
	s := ev.Snapshot
	switch ev.Kind {
	case player.EventPlayerState, player.EventMediaState:
		return []Event{NewEvent(EventTypeState, s)}
	case player.EventTrack:
		return []Event{
			NewEvent(EventTypeNowPlaying, s.NowPlaying),
			NewEvent(EventTypeView, map[string]string{"view": ViewPlayer}),
		}
	case player.EventPlaylist:
		return []Event{NewEvent(EventTypePlaylist, map[string]any{
			"position": s.PlaylistPos,
			"size":     s.PlaylistSize,
		})}
	case player.EventPosition:
		return []Event{NewEvent(EventTypePosition, map[string]int64{
			"position": s.Position,
			"length":   s.Length,
		})}
	case player.EventEndOfMedia:
		return []Event{NewEvent(EventTypeView, map[string]string{"view": ViewHome})}
	case player.EventError:
		return []Event{NewEvent(EventTypeError, map[string]any{
			"uri":   s.NowPlaying.URI,
			"title": s.NowPlaying.Title,
		})}
	case player.EventSearchStart:
		return []Event{NewEvent(EventTypeSpinner, map[string]bool{"active": true})}
	case player.EventSearchEnd:
		return []Event{NewEvent(EventTypeSpinner, map[string]bool{"active": false})}
	}
	return nil
}
