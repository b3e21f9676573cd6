// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil && !s.ready() {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "daemon still starting")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.player.Snapshot())
}

func (s *Server) handlePlaylist(w http.ResponseWriter, _ *http.Request) {
	entries := s.player.Playlist()
	respondJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"size":    len(entries),
	})
}

// playBody is the debug/admin play request. Playback defaults to audio,
// which is what a curl one-liner wants.
type playBody struct {
	URI             string `json:"uri" validate:"required"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album"`
	Image           string `json:"image"`
	Playback        *int   `json:"playback" validate:"omitempty,min=0,max=100"`
	MediaType       int    `json:"media_type" validate:"min=0,max=26"`
	MatchConfidence int    `json:"match_confidence" validate:"min=0,max=100"`
}

// handlePlay turns the request into the same bus message a skill would
// send, so playback still flows through the one play path.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var body playBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	entry := media.NewMediaEntry(body.URI)
	entry.Title = body.Title
	entry.Artist = body.Artist
	entry.Album = body.Album
	entry.Image = body.Image
	entry.MediaType = media.MediaType(body.MediaType)
	entry.MatchConfidence = body.MatchConfidence
	if body.Playback != nil {
		entry.Playback = media.PlaybackType(*body.Playback)
	} else {
		entry.Playback = media.PlaybackAudio
	}
	if err := entry.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	if err := s.conn.Emit(bus.New(bus.TypePlay, map[string]any{"media": entry})); err != nil {
		logging.Warn().Str("component", "http").Err(err).Msg("play emit failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "bus emit failed")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"queued": true, "uri": entry.URI})
}
