// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package player

import (
	"github.com/goccy/go-json"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
)

// attachBus registers the ovos.common_play.* surface plus the legacy
// mycroft.audio.service.* transport aliases.
func (p *Player) attachBus() error {
	handlers := map[string]bus.Handler{
		bus.TypePlay:     p.handlePlay,
		bus.TypePause:    func(*bus.Message) { p.Pause() },
		bus.TypeResume:   func(*bus.Message) { p.Resume() },
		bus.TypeStop:     p.handleStop,
		bus.TypeNext:     func(*bus.Message) { p.PlayNext() },
		bus.TypePrevious: func(*bus.Message) { p.PlayPrev() },
		bus.TypeSeek:     p.handleSeek,

		bus.TypeGetTrackLength:   p.handleGetTrackLength,
		bus.TypeGetTrackPosition: p.handleGetTrackPosition,
		bus.TypeSetTrackPosition: p.handleSetTrackPosition,
		bus.TypeTrackInfo:        p.handleTrackInfoQuery,
		bus.TypeListBackends:     p.handleListBackends,
		bus.TypeStatus:           p.handleStatus,

		bus.TypePlayerState: p.handlePlayerStateSync,
		bus.TypeMediaState:  p.handleMediaStateSync,
		bus.TypeTrackState:  p.handleTrackStateSync,

		bus.TypePlaylistSet:   p.handlePlaylistSet,
		bus.TypePlaylistQueue: p.handlePlaylistQueue,
		bus.TypePlaylistClear: p.handlePlaylistClear,
		bus.TypePlaylistPlay:  p.handlePlaylistPlay,

		bus.TypeShuffleSet:    func(*bus.Message) { p.SetShuffle(true) },
		bus.TypeShuffleUnset:  func(*bus.Message) { p.SetShuffle(false) },
		bus.TypeShuffleToggle: func(*bus.Message) { p.ToggleShuffle() },
		bus.TypeRepeatSet:     func(*bus.Message) { p.SetLoop(media.LoopRepeatPlaylist) },
		bus.TypeRepeatUnset:   func(*bus.Message) { p.SetLoop(media.LoopNone) },
		bus.TypeRepeatToggle:  func(*bus.Message) { p.ToggleLoop() },

		bus.TypeDuck:   func(*bus.Message) { p.Duck() },
		bus.TypeUnduck: func(*bus.Message) { p.Unduck() },
		bus.TypeCork:   func(*bus.Message) { p.Cork() },
		bus.TypeUncork: func(*bus.Message) { p.Uncork() },

		bus.TypePlaybackTime:   p.handlePlaybackTime,
		bus.TypeSEIGetResponse: p.handleSEIResponse,

		bus.TypeSearchStart: func(*bus.Message) { p.notifyEvent(EventSearchStart) },
		bus.TypeSearchEnd:   func(*bus.Message) { p.notifyEvent(EventSearchEnd) },

		bus.TypeLike:               p.handleLike,
		bus.TypeUnlike:             p.handleUnlike,
		bus.TypeLikedTracksPlay:    p.handleLikedTracksPlay,
		bus.TypeFeaturedTracksPlay: p.handleFeaturedTracksPlay,
		bus.TypeSkillsGet:          p.handleSkillsGet,

		bus.TypeMycroftStop: p.handleMycroftStop,
	}

	// Legacy mycroft.audio.service transport verbs map onto the same
	// operations for pre-OVOS clients.
	legacy := map[string]bus.Handler{
		"mycroft.audio.service.pause":  func(*bus.Message) { p.Pause() },
		"mycroft.audio.service.resume": func(*bus.Message) { p.Resume() },
		"mycroft.audio.service.stop":   func(*bus.Message) { p.Stop() },
		"mycroft.audio.service.next":   func(*bus.Message) { p.PlayNext() },
		"mycroft.audio.service.prev":   func(*bus.Message) { p.PlayPrev() },
	}
	for msgType, h := range legacy {
		handlers[msgType] = h
	}

	for msgType, h := range handlers {
		sub, err := p.conn.On(msgType, h)
		if err != nil {
			return err
		}
		p.subs = append(p.subs, sub)
	}
	return nil
}

func (p *Player) detachBus() {
	for _, sub := range p.subs {
		p.conn.Remove(sub)
	}
	p.subs = nil
}

func (p *Player) notifyEvent(kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifyLocked(kind)
}

func (p *Player) reply(msg *bus.Message, data any) {
	if err := p.conn.Emit(msg.Response(data)); err != nil {
		logging.Warn().Str("component", "player").Str("type", msg.Type).Err(err).Msg("reply failed")
	}
}

// playRequest is the ovos.common_play.play payload. Skills send
// media/playlist/disambiguation; legacy senders a bare tracks list.
type playRequest struct {
	Media          json.RawMessage   `json:"media"`
	Playlist       []json.RawMessage `json:"playlist"`
	Disambiguation []json.RawMessage `json:"disambiguation"`
	Tracks         []json.RawMessage `json:"tracks"`
}

func decodeEntries(raws []json.RawMessage) []media.MediaEntry {
	out := make([]media.MediaEntry, 0, len(raws))
	for _, raw := range raws {
		e, err := media.EntryFromRaw(raw)
		if err != nil || e.IsEmpty() {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (p *Player) handlePlay(msg *bus.Message) {
	var req playRequest
	if err := msg.DecodeData(&req); err != nil {
		logging.Warn().Str("component", "player").Err(err).Msgf("bad play payload: %v", media.ErrBadMessage)
		return
	}

	var requested media.MediaEntry
	if len(req.Media) > 0 {
		e, err := media.EntryFromRaw(req.Media)
		if err != nil {
			logging.Warn().Str("component", "player").Err(err).Msgf("bad media entry: %v", media.ErrBadMessage)
			return
		}
		requested = e
	}
	playlistEntries := decodeEntries(req.Playlist)
	if requested.IsEmpty() && len(req.Tracks) > 0 {
		tracks := decodeEntries(req.Tracks)
		if len(tracks) > 0 {
			requested = tracks[0]
			playlistEntries = tracks
		}
	}
	if requested.IsEmpty() {
		logging.Warn().Str("component", "player").Msgf("play request without media: %v", media.ErrBadMessage)
		return
	}
	if requested.SkillID == "" {
		requested.SkillID = msg.Context.SkillID
	}

	// A playing external player yields before OCP starts its own track.
	if p.bridge != nil && p.bridge.Active() {
		if err := p.bridge.StopCurrent(); err != nil {
			logging.Debug().Str("component", "player").Err(err).Msg("external stop before play failed")
		}
	}

	p.mu.Lock()
	if p.state == media.PlayerPlaying {
		p.pauseLocked()
	}

	if disambiguation := decodeEntries(req.Disambiguation); len(disambiguation) > 0 && p.catalog != nil {
		seen := false
		for _, e := range disambiguation {
			if e.URI == requested.URI {
				seen = true
				break
			}
		}
		if !seen {
			disambiguation = append([]media.MediaEntry{requested}, disambiguation...)
		}
		p.catalog.SetSearchResults(disambiguation)
	}

	// A request without a playlist plays on top of whatever is queued;
	// only an explicit playlist replaces it.
	if len(playlistEntries) > 0 {
		p.playlist.Replace(playlistEntries)
	} else if p.playlist.Len() == 0 {
		p.playlist.Replace([]media.MediaEntry{requested})
	}
	if !p.playlist.GotoTrack(requested.URI) {
		p.playlist.AddEntry(requested, 0)
		p.playlist.SetPosition(0)
	}

	p.setNowPlayingLocked(requested)
	p.playLocked()
	p.notifyLocked(EventPlaylist)
	p.mu.Unlock()
}

func (p *Player) handleStop(msg *bus.Message) {
	stopped := p.Stop()
	p.reply(msg, map[string]bool{"stopped": stopped})
}

func (p *Player) handleMycroftStop(msg *bus.Message) {
	if p.State() == media.PlayerStopped {
		return
	}
	if p.Stop() {
		m := bus.NewWithContext(bus.TypeMycroftStopHandled, map[string]string{"by": "OCP"}, msg.Context)
		if err := p.conn.Emit(m); err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("stop.handled announce failed")
		}
	}
}

func (p *Player) handleSeek(msg *bus.Message) {
	var req struct {
		Seconds  float64 `json:"seconds"`
		Relative *bool   `json:"relative"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	relative := req.Relative == nil || *req.Relative
	p.Seek(req.Seconds, relative)
}

func (p *Player) handleGetTrackLength(msg *bus.Message) {
	p.reply(msg, map[string]int64{"length": p.trackLength()})
}

func (p *Player) handleGetTrackPosition(msg *bus.Message) {
	p.reply(msg, map[string]int64{"position": p.trackPosition()})
}

func (p *Player) handleSetTrackPosition(msg *bus.Message) {
	var req struct {
		Position int64 `json:"position"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	p.SetPosition(req.Position)
}

func (p *Player) handleTrackInfoQuery(msg *bus.Message) {
	snap := p.Snapshot()
	p.reply(msg, snap.NowPlaying)
}

func (p *Player) handleListBackends(msg *bus.Message) {
	out := map[string][]string{}
	for fam, reg := range p.registries {
		out[fam.String()] = reg.Backends()
	}
	p.reply(msg, out)
}

func (p *Player) handleStatus(msg *bus.Message) {
	p.reply(msg, p.Snapshot())
}

func (p *Player) handlePlayerStateSync(msg *bus.Message) {
	var req struct {
		State int `json:"state"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	p.handleInboundPlayerState(media.PlayerState(req.State))
}

func (p *Player) handleMediaStateSync(msg *bus.Message) {
	var req struct {
		State int `json:"state"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	p.handleInboundMediaState(media.MediaState(req.State))
}

func (p *Player) handleTrackStateSync(msg *bus.Message) {
	var req struct {
		State int `json:"state"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	p.handleInboundTrackState(media.TrackState(req.State))
}

func (p *Player) handlePlaylistSet(msg *bus.Message) {
	var req struct {
		Tracks []json.RawMessage `json:"tracks"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	entries := decodeEntries(req.Tracks)
	p.mu.Lock()
	p.playlist.Replace(entries)
	p.notifyLocked(EventPlaylist)
	p.mu.Unlock()
}

func (p *Player) handlePlaylistQueue(msg *bus.Message) {
	var req struct {
		Tracks []json.RawMessage `json:"tracks"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	entries := decodeEntries(req.Tracks)
	p.mu.Lock()
	for _, e := range entries {
		p.playlist.AddEntry(e, -1)
	}
	p.notifyLocked(EventPlaylist)
	p.mu.Unlock()
}

func (p *Player) handlePlaylistClear(msg *bus.Message) {
	p.mu.Lock()
	p.playlist.Clear()
	p.notifyLocked(EventPlaylist)
	p.mu.Unlock()
}

// handlePlaylistPlay jumps to a playlist entry, by uri or index, and plays
// it.
func (p *Player) handlePlaylistPlay(msg *bus.Message) {
	var req struct {
		URI      string `json:"uri"`
		Position *int   `json:"position"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case req.URI != "":
		if !p.playlist.GotoTrack(req.URI) {
			logging.Warn().Str("component", "player").Str("uri", req.URI).Msg("uri not in playlist")
			return
		}
	case req.Position != nil:
		p.playlist.SetPosition(*req.Position)
	default:
		return
	}
	entry, ok := p.playlist.CurrentTrack()
	if !ok {
		return
	}
	p.setNowPlayingLocked(entry)
	p.playLocked()
}

func (p *Player) handlePlaybackTime(msg *bus.Message) {
	var req struct {
		Position int64 `json:"position"`
		Length   int64 `json:"length"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	p.mu.Lock()
	p.now.PositionMS = req.Position
	if req.Length > 0 {
		p.now.LengthMS = req.Length
	}
	if p.posLimiter.Allow() {
		p.notifyLocked(EventPosition)
	}
	p.mu.Unlock()
}

// handleSEIResponse records the stream extractors announced by an
// extraction plugin host; they show up in status replies.
func (p *Player) handleSEIResponse(msg *bus.Message) {
	var req struct {
		SEIs []string `json:"seis"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	p.mu.Lock()
	p.extractors = req.SEIs
	p.mu.Unlock()
}

func (p *Player) handleLike(msg *bus.Message) {
	if p.catalog == nil || p.catalog.Liked() == nil {
		return
	}
	entry := media.EntryFromMap(msg.DataMap())
	if entry.IsEmpty() {
		p.mu.Lock()
		entry = p.now.Entry
		p.mu.Unlock()
	}
	if err := p.catalog.Liked().Like(entry); err != nil {
		logging.Warn().Str("component", "player").Err(err).Msg("like failed")
	}
}

func (p *Player) handleUnlike(msg *bus.Message) {
	if p.catalog == nil || p.catalog.Liked() == nil {
		return
	}
	var req struct {
		URI string `json:"uri"`
	}
	if err := msg.DecodeData(&req); err != nil {
		return
	}
	uri := req.URI
	if uri == "" {
		p.mu.Lock()
		uri = p.now.Entry.URI
		p.mu.Unlock()
	}
	if err := p.catalog.Liked().Unlike(uri); err != nil {
		logging.Warn().Str("component", "player").Err(err).Msg("unlike failed")
	}
}

// handleLikedTracksPlay shuffles the liked songs into the playlist and
// plays them.
func (p *Player) handleLikedTracksPlay(msg *bus.Message) {
	if p.catalog == nil || p.catalog.Liked() == nil {
		return
	}
	entries := p.catalog.Liked().Entries()
	if len(entries) == 0 {
		logging.Info().Str("component", "player").Msg("no liked songs to play")
		return
	}
	shuffleEntries(entries)
	if err := p.PlayEntries(entries); err != nil {
		logging.Warn().Str("component", "player").Err(err).Msg("liked tracks play failed")
	}
}

func (p *Player) handleFeaturedTracksPlay(msg *bus.Message) {
	if p.catalog == nil {
		return
	}
	var req struct {
		SkillID string `json:"skill_id"`
	}
	if err := msg.DecodeData(&req); err != nil || req.SkillID == "" {
		return
	}
	for _, card := range p.catalog.Skills() {
		if card.SkillID != req.SkillID || len(card.FeaturedTracks) == 0 {
			continue
		}
		if err := p.PlayEntries(card.FeaturedTracks); err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("featured tracks play failed")
		}
		return
	}
	logging.Info().Str("component", "player").Str("skill_id", req.SkillID).Msg("skill has no featured tracks")
}

func (p *Player) handleSkillsGet(msg *bus.Message) {
	if p.catalog == nil {
		return
	}
	p.reply(msg, map[string]any{"skills": p.catalog.Skills()})
}
