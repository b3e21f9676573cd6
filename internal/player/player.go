// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package player

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/commonplay/ocpd/internal/backends"
	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/catalog"
	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/metrics"
)

// positionInterval is how often the position poller runs while playing.
const positionInterval = time.Second

// Bridge is the player's view of the external MPRIS player bridge. All
// methods act on the bridge's current main player; with no main player they
// are no-ops returning nil.
type Bridge interface {
	StopCurrent() error
	PauseCurrent() error
	PlayCurrent() error
	Next() error
	Previous() error

	// PauseAll pauses every playing external player (manage mode).
	PauseAll() error

	// Active reports whether an external player is currently tracked as
	// the main player.
	Active() bool
}

// Event kinds delivered to listeners (GUI hub, MPRIS export).
const (
	EventPlayerState = "player_state"
	EventMediaState  = "media_state"
	EventTrack       = "track"
	EventPlaylist    = "playlist"
	EventPosition    = "position"
	EventEndOfMedia  = "end_of_media"
	EventError       = "playback_error"
	EventSearchStart = "search_start"
	EventSearchEnd   = "search_end"
)

// Event is one player change notification with the full state snapshot at
// the time of the change.
type Event struct {
	Kind     string   `json:"kind"`
	Snapshot Snapshot `json:"snapshot"`
}

// Snapshot is the externally visible player state, also the payload of
// ovos.common_play.status replies and GET /v1/status.
type Snapshot struct {
	PlayerState  string           `json:"player_state"`
	MediaState   string           `json:"media_state"`
	PlaybackType string           `json:"playback_type"`
	Shuffle      bool             `json:"shuffle"`
	LoopState    string           `json:"loop_state"`
	NowPlaying   media.MediaEntry `json:"now_playing"`
	Position     int64            `json:"position"`
	Length       int64            `json:"length"`
	PlaylistPos  int              `json:"playlist_position"`
	PlaylistSize int              `json:"playlist_size"`
	ActiveSkill  string           `json:"active_skill,omitempty"`
	TrackHistory map[string]int   `json:"track_history,omitempty"`
	Extractors   []string         `json:"available_extractors,omitempty"`
}

// Player is the playback coordinator: one state machine over the three
// backend registries, the skill namespace, and the MPRIS bridge. Every
// mutating entry point takes the single mutex; bus handlers are thin
// decode-then-method wrappers.
type Player struct {
	conn       bus.Conn
	cfg        *config.Config
	catalog    *catalog.Catalog
	registries map[media.Family]*backends.Registry
	bridge     Bridge
	metrics    *metrics.Metrics

	mu           sync.Mutex
	state        media.PlayerState
	mediaState   media.MediaState
	loop         media.LoopState
	shuffle      bool
	playbackType media.PlaybackType
	activeSkill  string
	ducked       bool
	pausedOnDuck bool
	playlist     *media.Playlist
	now          *NowPlaying
	extractors   []string

	// failStreak counts consecutive invalid-media reports from backends;
	// autoplay stops advancing once it exceeds one pass over the playlist.
	failStreak int

	listeners  []func(Event)
	posLimiter *rate.Limiter

	subs []*bus.Subscription
}

// New wires the coordinator. catalog and bridge may be nil (tests, non-Linux
// builds); registries may omit families that have no configured players.
func New(conn bus.Conn, cfg *config.Config, cat *catalog.Catalog, regs map[media.Family]*backends.Registry, bridge Bridge, m *metrics.Metrics) *Player {
	p := &Player{
		conn:         conn,
		cfg:          cfg,
		catalog:      cat,
		registries:   regs,
		bridge:       bridge,
		metrics:      m,
		state:        media.PlayerStopped,
		mediaState:   media.MediaStateNoMedia,
		playbackType: media.PlaybackUndefined,
		playlist:     media.NewPlaylist(),
		now:          NewNowPlaying(),
		posLimiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for fam, reg := range regs {
		reg.SetTrackStartCallback(func(entry *media.MediaEntry) {
			p.onTrackStart(fam, entry)
		})
	}
	return p
}

// AddListener registers a change listener. Listeners run synchronously on
// the mutating goroutine and must not call back into the player.
func (p *Player) AddListener(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// SetExtractor installs the stream extractor seam.
func (p *Player) SetExtractor(e StreamExtractor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now.SetExtractor(e)
}

// Start loads persisted play counts and registers the bus surface.
func (p *Player) Start() error {
	if p.catalog != nil && p.catalog.Store() != nil {
		counts, err := p.catalog.Store().PlayCounts()
		if err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("play history load failed")
		} else {
			p.mu.Lock()
			p.now.LoadHistory(counts)
			p.mu.Unlock()
		}
	}
	return p.attachBus()
}

// Serve runs the position poller until ctx is canceled. Implements the
// supervision tree service contract.
func (p *Player) Serve(ctx context.Context) error {
	ticker := time.NewTicker(positionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollPosition()
		}
	}
}

// String names the service in supervisor logs.
func (p *Player) String() string {
	return "player"
}

// Shutdown detaches the bus surface and stops all rendering.
func (p *Player) Shutdown() {
	p.detachBus()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, reg := range p.registries {
		reg.Shutdown()
	}
}

// Snapshot returns the current state under the lock.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Player) snapshotLocked() Snapshot {
	return Snapshot{
		PlayerState:  p.state.String(),
		MediaState:   p.mediaState.String(),
		PlaybackType: p.playbackType.String(),
		Shuffle:      p.shuffle,
		LoopState:    p.loop.String(),
		NowPlaying:   p.now.Entry,
		Position:     p.now.PositionMS,
		Length:       p.now.LengthMS,
		PlaylistPos:  p.playlist.Position(),
		PlaylistSize: p.playlist.Len(),
		ActiveSkill:  p.activeSkill,
		TrackHistory: p.now.History(),
		Extractors:   p.extractors,
	}
}

// Playlist returns a copy of the playlist entries.
func (p *Player) Playlist() []media.MediaEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playlist.Entries()
}

// State returns the current player state.
func (p *Player) State() media.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) notifyLocked(kind string) {
	ev := Event{Kind: kind, Snapshot: p.snapshotLocked()}
	for _, fn := range p.listeners {
		fn(ev)
	}
}

func (p *Player) emit(msgType string, data any) {
	if err := p.conn.Emit(bus.New(msgType, data)); err != nil {
		logging.Warn().Str("component", "player").Str("type", msgType).Err(err).Msg("emit failed")
	}
}

// State setters: assign first, then emit the normalized event. The emitted
// event loops back through the inbound sync handler, which finds the value
// already assigned and stays quiet.

func (p *Player) setPlayerStateLocked(s media.PlayerState) {
	if p.state == s {
		return
	}
	prev := p.state
	p.state = s
	if p.metrics != nil {
		p.metrics.StateTransitions.WithLabelValues(prev.String(), s.String()).Inc()
	}
	p.emit(bus.TypePlayerState, map[string]int{"state": int(s)})
	p.notifyLocked(EventPlayerState)
}

func (p *Player) setMediaStateLocked(s media.MediaState) {
	if p.mediaState == s {
		return
	}
	p.mediaState = s
	p.emit(bus.TypeMediaState, map[string]int{"state": int(s)})
	p.notifyLocked(EventMediaState)
}

func (p *Player) setTrackStateLocked(s media.TrackState) {
	p.now.Entry.Status = s
	p.emit(bus.TypeTrackState, map[string]int{"state": int(s)})
}

// SetNowPlaying replaces the active entry and announces it.
func (p *Player) SetNowPlaying(entry media.MediaEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setNowPlayingLocked(entry)
}

func (p *Player) setNowPlayingLocked(entry media.MediaEntry) {
	p.now.Reset()
	p.now.Update(entry, false)
	p.notifyLocked(EventTrack)
}

// resolveTypeLocked maps an entry's playback type through the configured
// playback mode: forced audio coerces video and webview onto the audio
// backends.
func (p *Player) resolveTypeLocked(t media.PlaybackType) media.PlaybackType {
	if p.cfg.EffectivePlaybackMode() == media.PlaybackModeForceAudio {
		if t == media.PlaybackVideo || t == media.PlaybackWebview {
			return media.PlaybackAudio
		}
	}
	return t
}

func (p *Player) registryFor(t media.PlaybackType) *backends.Registry {
	fam, ok := media.FamilyFor(t)
	if !ok {
		return nil
	}
	return p.registries[fam]
}

func playingStateFor(t media.PlaybackType) media.TrackState {
	switch t {
	case media.PlaybackVideo:
		return media.TrackPlayingVideo
	case media.PlaybackWebview:
		return media.TrackPlayingWebview
	case media.PlaybackSkill:
		return media.TrackPlayingSkill
	case media.PlaybackMPRIS:
		return media.TrackPlayingMPRIS
	default:
		return media.TrackPlayingAudio
	}
}

// Play starts rendering the current NowPlaying entry.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playLocked()
}

func (p *Player) playLocked() {
	p.failStreak = 0
	err := p.renderLocked()
	if err == nil || !p.cfg.OCP.Autoplay || !advanceableFailure(err) {
		return
	}
	p.advanceAndPlayLocked()
}

// advanceableFailure reports whether a render failure should make autoplay
// try the next track. NoBackend means no plugin claims the URI scheme: the
// player state stays untouched and nothing advances. A bad playback type
// is a request problem, not a track problem.
func advanceableFailure(err error) bool {
	return !errors.Is(err, media.ErrNoBackend) && !errors.Is(err, media.ErrBadMessage)
}

// renderLocked makes one attempt at rendering the current NowPlaying entry
// and reports how it failed. It never advances the playlist itself.
func (p *Player) renderLocked() error {
	entry := p.now.Entry
	stream, err := p.now.ExtractStream()
	if err != nil {
		logging.Warn().Str("component", "player").Str("uri", entry.URI).Err(err).Msg("stream extraction failed")
		p.setMediaStateLocked(media.MediaStateInvalidMedia)
		p.notifyLocked(EventError)
		return fmt.Errorf("extract %s: %w", entry.URI, media.ErrInvalidStream)
	}

	count := p.now.BumpHistory(entry.URI)
	if p.catalog != nil && p.catalog.Store() != nil {
		if _, err := p.catalog.Store().IncrementPlayCount(entry.URI); err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("play count persist failed")
		}
	}

	ptype := p.resolveTypeLocked(entry.Playback)
	p.playbackType = ptype

	switch ptype {
	case media.PlaybackAudio, media.PlaybackVideo, media.PlaybackWebview:
		reg := p.registryFor(ptype)
		if reg == nil {
			logging.Info().
				Str("component", "player").
				Str("playback", ptype.String()).
				Msg("no registry for playback type")
			return fmt.Errorf("playback %s: %w", ptype, media.ErrNoBackend)
		}
		if err := reg.Play(stream, nil); err != nil {
			if errors.Is(err, media.ErrNoBackend) {
				logging.Info().Str("component", "player").Str("uri", stream).Msg("no backend claims the uri")
				return err
			}
			logging.Warn().Str("component", "player").Str("uri", stream).Err(err).Msg("backend routing failed")
			p.setMediaStateLocked(media.MediaStateInvalidMedia)
			p.notifyLocked(EventError)
			return err
		}
		p.activeSkill = ""
		p.setTrackStateLocked(playingStateFor(ptype))
		p.setPlayerStateLocked(media.PlayerPlaying)

	case media.PlaybackSkill:
		p.activeSkill = entry.SkillID
		p.emit(bus.SkillType(entry.SkillID, "play"), map[string]any{
			"media":    entry,
			"playlist": p.playlist.Entries(),
		})
		p.setTrackStateLocked(media.TrackPlayingSkill)
		p.setPlayerStateLocked(media.PlayerPlaying)
		if p.metrics != nil {
			p.metrics.PlaysTotal.WithLabelValues("skill").Inc()
		}

	case media.PlaybackMPRIS:
		if p.bridge != nil {
			if err := p.bridge.PlayCurrent(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("external play failed")
			}
		}
		p.setPlayerStateLocked(media.PlayerPlaying)
		if p.metrics != nil {
			p.metrics.PlaysTotal.WithLabelValues("mpris").Inc()
		}

	default:
		logging.Error().
			Str("component", "player").
			Str("uri", entry.URI).
			Msgf("entry has no usable playback type: %v", media.ErrBadMessage)
		p.notifyLocked(EventError)
		return fmt.Errorf("uri %s: %w", entry.URI, media.ErrBadMessage)
	}

	if p.cfg.OCP.ManageExternalPlayers && p.bridge != nil && ptype != media.PlaybackMPRIS {
		if err := p.bridge.PauseAll(); err != nil {
			logging.Debug().Str("component", "player").Err(err).Msg("pausing external players failed")
		}
	}

	logging.Info().
		Str("component", "player").
		Str("uri", entry.URI).
		Str("playback", ptype.String()).
		Int("play_count", count).
		Msg("playback started")
	p.notifyLocked(EventTrack)
	return nil
}

// Pause pauses the active rendering path.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauseLocked()
}

func (p *Player) pauseLocked() {
	switch p.playbackType {
	case media.PlaybackMPRIS:
		if p.bridge != nil {
			if err := p.bridge.PauseCurrent(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("external pause failed")
			}
		}
	case media.PlaybackSkill:
		p.emit(bus.SkillType(p.activeSkill, "pause"), nil)
	case media.PlaybackUndefined:
		for _, reg := range p.registries {
			if err := reg.Pause(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("pause failed")
			}
		}
	default:
		if reg := p.registryFor(p.playbackType); reg != nil {
			if err := reg.Pause(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("pause failed")
			}
		}
	}
	p.pausedOnDuck = false
	p.setPlayerStateLocked(media.PlayerPaused)
}

// Resume resumes the active rendering path.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumeLocked()
}

func (p *Player) resumeLocked() {
	switch p.playbackType {
	case media.PlaybackMPRIS:
		if p.bridge != nil {
			if err := p.bridge.PlayCurrent(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("external resume failed")
			}
		}
	case media.PlaybackSkill:
		p.emit(bus.SkillType(p.activeSkill, "resume"), nil)
	case media.PlaybackUndefined:
		for _, reg := range p.registries {
			if err := reg.Resume(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("resume failed")
			}
		}
	default:
		if reg := p.registryFor(p.playbackType); reg != nil {
			if err := reg.Resume(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("resume failed")
			}
		}
	}
	p.pausedOnDuck = false
	p.setPlayerStateLocked(media.PlayerPlaying)
}

// Stop halts playback. Returns whether anything actually stopped; a stop
// falling inside a registry's stale window keeps playing and returns false.
func (p *Player) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() bool {
	p.emit(bus.TypeSearchStop, nil)

	stopped := false
	switch p.playbackType {
	case media.PlaybackMPRIS:
		if p.bridge != nil && p.cfg.OCP.ManageExternalPlayers {
			if err := p.bridge.StopCurrent(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("external stop failed")
			} else {
				stopped = true
			}
		}
	case media.PlaybackSkill:
		p.emit(bus.SkillType(p.activeSkill, "stop"), nil)
		stopped = true
	case media.PlaybackUndefined:
		for _, reg := range p.registries {
			ok, err := reg.Stop()
			if err != nil && !errors.Is(err, media.ErrStaleStop) {
				logging.Warn().Str("component", "player").Err(err).Msg("stop failed")
			}
			stopped = stopped || ok
		}
	default:
		reg := p.registryFor(p.playbackType)
		if reg == nil {
			break
		}
		ok, err := reg.Stop()
		if errors.Is(err, media.ErrStaleStop) {
			return false
		}
		if err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("stop failed")
		}
		stopped = ok
	}

	p.activeSkill = ""
	p.ducked = false
	p.pausedOnDuck = false
	p.setPlayerStateLocked(media.PlayerStopped)
	return stopped
}

// PlayNext advances to the next track per loop, shuffle and merge-search
// rules.
func (p *Player) PlayNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playNextLocked()
}

func (p *Player) playNextLocked() {
	switch p.playbackType {
	case media.PlaybackMPRIS:
		if p.bridge != nil {
			if err := p.bridge.Next(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("external next failed")
			}
		}
		return
	case media.PlaybackSkill:
		p.emit(bus.SkillType(p.activeSkill, "next"), nil)
		return
	case media.PlaybackUndefined:
		logging.Error().
			Str("component", "player").
			Msgf("can not play next, nothing has played yet: %v", media.ErrBadMessage)
		return
	}

	if reg := p.registryFor(p.playbackType); reg != nil {
		if err := reg.Pause(); err != nil {
			logging.Debug().Str("component", "player").Err(err).Msg("pause before next failed")
		}
	}

	p.advanceAndPlayLocked()
}

// advanceSelectionLocked moves the playlist selection per loop, shuffle and
// merge-search rules. Reports false when nothing is left to select.
func (p *Player) advanceSelectionLocked() bool {
	switch {
	case p.loop == media.LoopRepeatTrack && p.playlist.Len() > 0:
		// Same track again.
	case p.shuffle && p.playlist.Len() > 1:
		p.playlist.SetPosition(randomOtherIndex(p.playlist.Len(), p.playlist.Position()))
	case p.playlist.NextTrack():
	case p.cfg.OCP.MergeSearch && p.mergeSearchLocked():
	case p.loop == media.LoopRepeatPlaylist && p.playlist.Len() > 0:
		p.playlist.SetPosition(0)
	default:
		return false
	}
	return true
}

// advanceAndPlayLocked renders the next selectable track, skipping tracks
// that fail to render. The attempt budget is one pass over the playlist;
// when it runs out the player stops instead of looping over a playlist
// with no renderable track.
func (p *Player) advanceAndPlayLocked() {
	budget := p.playlist.Len()
	if budget < 1 {
		budget = 1
	}
	for attempt := 0; attempt < budget; attempt++ {
		if !p.advanceSelectionLocked() {
			p.exhaustedLocked()
			return
		}
		entry, ok := p.playlist.CurrentTrack()
		if !ok {
			return
		}
		p.setNowPlayingLocked(entry)
		err := p.renderLocked()
		if err == nil || !advanceableFailure(err) {
			return
		}
	}
	logging.Warn().
		Str("component", "player").
		Int("attempts", budget).
		Msg("every candidate track failed to render, stopping")
	p.stopLocked()
	p.setMediaStateLocked(media.MediaStateEndOfMedia)
	p.notifyLocked(EventEndOfMedia)
}

// exhaustedLocked handles running out of tracks. A player that never had
// anything queued stays untouched.
func (p *Player) exhaustedLocked() {
	searchEmpty := p.catalog == nil || len(p.catalog.SearchResults()) == 0
	if p.playlist.Len() == 0 && searchEmpty {
		logging.Debug().Str("component", "player").Msg("there are no more tracks")
		return
	}
	logging.Info().Str("component", "player").Msg("playlist exhausted")
	p.stopLocked()
	p.setMediaStateLocked(media.MediaStateEndOfMedia)
	p.notifyLocked(EventEndOfMedia)
}

// mergeSearchLocked appends unplayed search results missing from the
// playlist and moves onto the first appended one. Reports whether anything
// was merged.
func (p *Player) mergeSearchLocked() bool {
	if p.catalog == nil {
		return false
	}
	history := p.now.History()
	firstNew := -1
	for _, e := range p.catalog.SearchResults() {
		if e.URI == "" || p.playlist.Contains(e.URI) || history[e.URI] > 0 {
			continue
		}
		p.playlist.AddEntry(e, -1)
		if firstNew < 0 {
			firstNew = p.playlist.Len() - 1
		}
	}
	if firstNew < 0 {
		return false
	}
	p.playlist.SetPosition(firstNew)
	p.notifyLocked(EventPlaylist)
	return true
}

// PlayPrev moves to the previous track. At the first track this is a no-op.
func (p *Player) PlayPrev() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playPrevLocked()
}

func (p *Player) playPrevLocked() {
	switch p.playbackType {
	case media.PlaybackMPRIS:
		if p.bridge != nil {
			if err := p.bridge.Previous(); err != nil {
				logging.Warn().Str("component", "player").Err(err).Msg("external previous failed")
			}
		}
		return
	case media.PlaybackSkill:
		p.emit(bus.SkillType(p.activeSkill, "prev"), nil)
		return
	}

	switch {
	case p.shuffle && p.playlist.Len() > 1:
		p.playlist.SetPosition(randomOtherIndex(p.playlist.Len(), p.playlist.Position()))
	case p.playlist.PrevTrack():
	default:
		logging.Info().Str("component", "player").Msg("already at the first track")
		return
	}

	entry, ok := p.playlist.CurrentTrack()
	if !ok {
		return
	}
	p.setNowPlayingLocked(entry)
	p.playLocked()
}

// randomOtherIndex picks a uniform index in [0,n) different from cur.
func randomOtherIndex(n, cur int) int {
	i := rand.IntN(n - 1)
	if i >= cur {
		i++
	}
	return i
}

// shuffleEntries randomizes entry order in place.
func shuffleEntries(entries []media.MediaEntry) {
	rand.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}

// Duck lowers the volume of the active rendering while the assistant
// speaks. Only effective while playing, and only once until Unduck.
func (p *Player) Duck() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != media.PlayerPlaying || p.ducked {
		return
	}
	if reg := p.registryFor(p.playbackType); reg != nil {
		if err := reg.LowerVolume(); err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("duck failed")
			return
		}
	}
	p.ducked = true
}

// Unduck restores the volume lowered by Duck.
func (p *Player) Unduck() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ducked {
		return
	}
	p.ducked = false
	if reg := p.registryFor(p.playbackType); reg != nil {
		if err := reg.RestoreVolume(); err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("unduck failed")
		}
	}
}

// Cork pauses playback for the duration of assistant speech, remembering
// that the pause was not user-initiated.
func (p *Player) Cork() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != media.PlayerPlaying {
		return
	}
	p.pauseLocked()
	p.pausedOnDuck = true
}

// Uncork resumes playback only when the current pause came from Cork; a
// pause the user asked for stays paused.
func (p *Player) Uncork() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != media.PlayerPaused || !p.pausedOnDuck {
		return
	}
	p.resumeLocked()
}

// Seek moves within the current track. Seeks only apply to local family
// rendering; relative offsets clamp at zero inside the registry.
func (p *Player) Seek(seconds float64, relative bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reg := p.registryFor(p.playbackType)
	if reg == nil {
		return
	}
	if relative {
		if err := reg.SeekRelative(time.Duration(seconds * float64(time.Second))); err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("seek failed")
		}
	} else {
		ms := int64(seconds * 1000)
		if ms < 0 {
			ms = 0
		}
		if err := reg.Seek(ms); err != nil {
			logging.Warn().Str("component", "player").Err(err).Msg("seek failed")
		}
		p.now.PositionMS = ms
	}
}

// SetPosition jumps to an absolute position in milliseconds.
func (p *Player) SetPosition(ms int64) {
	p.Seek(float64(ms)/1000, false)
}

// SetShuffle flips the shuffle flag.
func (p *Player) SetShuffle(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shuffle == on {
		return
	}
	p.shuffle = on
	p.notifyLocked(EventPlayerState)
}

// ToggleShuffle inverts the shuffle flag.
func (p *Player) ToggleShuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shuffle = !p.shuffle
	p.notifyLocked(EventPlayerState)
}

// SetLoop sets the repeat mode.
func (p *Player) SetLoop(s media.LoopState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loop == s {
		return
	}
	p.loop = s
	p.notifyLocked(EventPlayerState)
}

// ToggleLoop cycles NONE -> REPEAT_PLAYLIST -> REPEAT_TRACK -> NONE.
func (p *Player) ToggleLoop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loop = p.loop.Next()
	p.notifyLocked(EventPlayerState)
}

// HandleMPRISTakeover is called by the bridge when an external player
// starts playing. Unless OCP manages external players it yields: its own
// rendering and the active skill stop, and NowPlaying mirrors the external
// metadata.
func (p *Player) HandleMPRISTakeover(entry media.MediaEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.cfg.OCP.ManageExternalPlayers && p.playbackType != media.PlaybackMPRIS {
		if p.activeSkill != "" {
			p.emit(bus.SkillType(p.activeSkill, "stop"), nil)
			p.activeSkill = ""
		}
		for _, reg := range p.registries {
			if _, err := reg.Stop(); err != nil && !errors.Is(err, media.ErrStaleStop) {
				logging.Warn().Str("component", "player").Err(err).Msg("yield stop failed")
			}
		}
	}

	p.playbackType = media.PlaybackMPRIS
	entry.Playback = media.PlaybackMPRIS
	entry.Status = media.TrackPlayingMPRIS
	p.now.Reset()
	p.now.Update(entry, false)
	p.setPlayerStateLocked(media.PlayerPlaying)
	p.notifyLocked(EventTrack)
	logging.Info().
		Str("component", "player").
		Str("player", entry.SkillID).
		Str("title", entry.Title).
		Msg("external player took over")
}

// SyncExternalState mirrors an external player's transport state. Ignored
// unless MPRIS playback is active.
func (p *Player) SyncExternalState(s media.PlayerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playbackType != media.PlaybackMPRIS {
		return
	}
	p.setPlayerStateLocked(s)
}

// SyncExternalMetadata mirrors external metadata into NowPlaying while an
// external player is active.
func (p *Player) SyncExternalMetadata(entry media.MediaEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playbackType != media.PlaybackMPRIS {
		return
	}
	p.now.Update(entry, false)
	p.notifyLocked(EventTrack)
}

// ClearExternal drops MPRIS playback tracking after the external player
// disappeared or stopped.
func (p *Player) ClearExternal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playbackType != media.PlaybackMPRIS {
		return
	}
	p.playbackType = media.PlaybackUndefined
	p.setPlayerStateLocked(media.PlayerStopped)
}

// onTrackStart runs from a registry when its backend reports an actually
// playing track, or nil at queue end.
func (p *Player) onTrackStart(fam media.Family, entry *media.MediaEntry) {
	if entry == nil {
		p.emit(bus.FamilyEvent(fam, "queue_end"), nil)
		return
	}
	p.emit(bus.FamilyEvent(fam, "playing_track"), map[string]any{"track": entry})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.now.Update(*entry, true)
	p.notifyLocked(EventTrack)
}

// pollPosition refreshes playback telemetry from the active registry and
// publishes a throttled position event.
func (p *Player) pollPosition() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != media.PlayerPlaying {
		return
	}
	reg := p.registryFor(p.playbackType)
	if reg == nil {
		return
	}
	p.now.PositionMS = reg.Position().Milliseconds()
	if length := reg.Length().Milliseconds(); length > 0 {
		p.now.LengthMS = length
	}
	if !p.posLimiter.Allow() {
		return
	}
	p.emit(bus.TypePlaybackTime, map[string]int64{
		"position": p.now.PositionMS,
		"length":   p.now.LengthMS,
	})
	p.notifyLocked(EventPosition)
}

// trackLength resolves the current track length in ms, preferring live
// telemetry over the registry.
func (p *Player) trackLength() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.now.LengthMS > 0 {
		return p.now.LengthMS
	}
	if reg := p.registryFor(p.playbackType); reg != nil {
		return reg.Length().Milliseconds()
	}
	return 0
}

// trackPosition resolves the current position in ms.
func (p *Player) trackPosition() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if reg := p.registryFor(p.playbackType); reg != nil {
		if pos := reg.Position().Milliseconds(); pos > 0 {
			return pos
		}
	}
	return p.now.PositionMS
}

// handleInboundMediaState syncs a media.state event from backends or
// skills: assign without re-emitting, forward to the registries' load
// hooks, and drive autoplay on end-of-media.
func (p *Player) handleInboundMediaState(state media.MediaState) {
	for _, reg := range p.registries {
		reg.HandleMediaState(state)
	}

	p.mu.Lock()
	changed := p.mediaState != state
	p.mediaState = state
	if changed {
		p.notifyLocked(EventMediaState)
	}

	autoplay := p.cfg.OCP.Autoplay && p.playbackType != media.PlaybackMPRIS
	switch {
	case state == media.MediaStateLoadedMedia:
		p.failStreak = 0
	// changed filters the echo of the player's own media.state
	// announcements arriving back over the shared bus; backends report a
	// LOADED transition between tracks, so a genuine report always changes
	// the state.
	case state == media.MediaStateEndOfMedia && changed:
		p.failStreak = 0
		if autoplay {
			p.playNextLocked()
		}
	case state == media.MediaStateInvalidMedia && autoplay && changed:
		p.failStreak++
		budget := p.playlist.Len()
		if budget < 1 {
			budget = 1
		}
		if p.failStreak <= budget {
			p.playNextLocked()
		} else {
			logging.Warn().
				Str("component", "player").
				Int("failures", p.failStreak).
				Msg("repeated invalid media, stopping")
			p.stopLocked()
		}
	}
	p.mu.Unlock()

	if changed && state == media.MediaStateEndOfMedia && !autoplay {
		logging.Debug().Str("component", "player").Msg("end of media")
	}
}

func (p *Player) handleInboundPlayerState(state media.PlayerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == state {
		return
	}
	prev := p.state
	p.state = state
	if p.metrics != nil {
		p.metrics.StateTransitions.WithLabelValues(prev.String(), state.String()).Inc()
	}
	p.notifyLocked(EventPlayerState)
}

func (p *Player) handleInboundTrackState(state media.TrackState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now.Entry.Status = state
}

// PlayEntries replaces the playlist with the given entries and starts at
// the first. Used by liked/featured track playback and the HTTP surface.
func (p *Player) PlayEntries(entries []media.MediaEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no playable entries: %w", media.ErrBadMessage)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playlist.Replace(entries)
	p.playlist.SetPosition(0)
	entry, _ := p.playlist.CurrentTrack()
	p.setNowPlayingLocked(entry)
	p.playLocked()
	p.notifyLocked(EventPlaylist)
	return nil
}
