// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/commonplay/ocpd/internal/backends"
	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/catalog"
	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/metrics"
)

type fakeBridge struct {
	mu     sync.Mutex
	calls  []string
	active bool
}

func (b *fakeBridge) record(call string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	return nil
}

func (b *fakeBridge) StopCurrent() error  { return b.record("stop") }
func (b *fakeBridge) PauseCurrent() error { return b.record("pause") }
func (b *fakeBridge) PlayCurrent() error  { return b.record("play") }
func (b *fakeBridge) Next() error         { return b.record("next") }
func (b *fakeBridge) Previous() error     { return b.record("previous") }
func (b *fakeBridge) PauseAll() error     { return b.record("pause_all") }

func (b *fakeBridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *fakeBridge) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}

type testRig struct {
	player  *Player
	conn    bus.Conn
	audio   *backends.MockBackend
	bridge  *fakeBridge
	catalog *catalog.Catalog
}

func newTestRig(t *testing.T, mutate func(*config.Config)) *testRig {
	t.Helper()

	cfg := config.Default()
	cfg.Media.AudioPlayers = map[string]config.PlayerSpec{
		"test_audio": {Module: "player-test-mock"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	audio := backends.NewMockBackend("test_audio")
	backends.RegisterFactory("player-test-mock", func(spec backends.FactorySpec) (backends.Backend, error) {
		return audio, nil
	})

	conn := bus.NewInProc()
	t.Cleanup(func() { conn.Close() })

	m := metrics.New()
	regs := map[media.Family]*backends.Registry{
		media.FamilyAudio: backends.NewRegistry(media.FamilyAudio, conn, cfg.Media, m),
	}

	store, err := catalog.OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	liked, err := catalog.LoadLikedSongs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cat := catalog.New(conn, store, liked, m)

	bridge := &fakeBridge{}
	p := New(conn, cfg, cat, regs, bridge, m)
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Shutdown)

	return &testRig{player: p, conn: conn, audio: audio, bridge: bridge, catalog: cat}
}

func audioEntry(uri, title string) media.MediaEntry {
	e := media.NewMediaEntry(uri)
	e.Title = title
	e.Playback = media.PlaybackAudio
	return e
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPlayRoutesAudioEntry(t *testing.T) {
	rig := newTestRig(t, nil)

	err := rig.player.PlayEntries([]media.MediaEntry{audioEntry("http://x/a.mp3", "A")})
	if err != nil {
		t.Fatal(err)
	}

	if rig.audio.Loaded() != "http://x/a.mp3" {
		t.Errorf("Loaded = %q", rig.audio.Loaded())
	}
	snap := rig.player.Snapshot()
	if snap.PlayerState != "PLAYING" {
		t.Errorf("state = %s, want PLAYING", snap.PlayerState)
	}
	if snap.PlaybackType != "AUDIO" {
		t.Errorf("playback = %s, want AUDIO", snap.PlaybackType)
	}
	if snap.NowPlaying.Title != "A" {
		t.Errorf("now playing = %+v", snap.NowPlaying)
	}
	if snap.TrackHistory["http://x/a.mp3"] != 1 {
		t.Errorf("history = %v", snap.TrackHistory)
	}
}

func TestForceAudioCoercesVideoEntries(t *testing.T) {
	rig := newTestRig(t, func(cfg *config.Config) {
		cfg.OCP.PlaybackMode = "force_audio"
	})

	e := audioEntry("http://x/v.mp4", "V")
	e.Playback = media.PlaybackVideo
	if err := rig.player.PlayEntries([]media.MediaEntry{e}); err != nil {
		t.Fatal(err)
	}

	if rig.audio.Loaded() != "http://x/v.mp4" {
		t.Errorf("video entry must land on the audio backend, Loaded = %q", rig.audio.Loaded())
	}
	if snap := rig.player.Snapshot(); snap.PlaybackType != "AUDIO" {
		t.Errorf("playback = %s, want AUDIO", snap.PlaybackType)
	}
}

func TestFileURIStripsScheme(t *testing.T) {
	rig := newTestRig(t, nil)

	if err := rig.player.PlayEntries([]media.MediaEntry{audioEntry("file:///music/a.ogg", "A")}); err != nil {
		t.Fatal(err)
	}
	if rig.audio.Loaded() != "/music/a.ogg" {
		t.Errorf("Loaded = %q, want plain path", rig.audio.Loaded())
	}
}

func TestPlayNextAdvancesThroughPlaylist(t *testing.T) {
	rig := newTestRig(t, nil)

	err := rig.player.PlayEntries([]media.MediaEntry{
		audioEntry("http://x/1.mp3", "One"),
		audioEntry("http://x/2.mp3", "Two"),
	})
	if err != nil {
		t.Fatal(err)
	}

	rig.player.PlayNext()
	snap := rig.player.Snapshot()
	if snap.NowPlaying.URI != "http://x/2.mp3" {
		t.Errorf("now playing = %q, want track two", snap.NowPlaying.URI)
	}
	if snap.PlaylistPos != 1 {
		t.Errorf("playlist position = %d", snap.PlaylistPos)
	}

	rig.player.PlayNext()
	snap = rig.player.Snapshot()
	if snap.MediaState != "END_OF_MEDIA" {
		t.Errorf("media state = %s, want END_OF_MEDIA at exhaustion", snap.MediaState)
	}
}

func TestRepeatTrackReplaysSame(t *testing.T) {
	rig := newTestRig(t, nil)

	err := rig.player.PlayEntries([]media.MediaEntry{
		audioEntry("http://x/1.mp3", "One"),
		audioEntry("http://x/2.mp3", "Two"),
	})
	if err != nil {
		t.Fatal(err)
	}
	rig.player.SetLoop(media.LoopRepeatTrack)

	rig.player.PlayNext()
	if snap := rig.player.Snapshot(); snap.NowPlaying.URI != "http://x/1.mp3" {
		t.Errorf("now playing = %q, repeat-track must stay", snap.NowPlaying.URI)
	}
}

func TestRepeatPlaylistWraps(t *testing.T) {
	rig := newTestRig(t, nil)

	err := rig.player.PlayEntries([]media.MediaEntry{
		audioEntry("http://x/1.mp3", "One"),
		audioEntry("http://x/2.mp3", "Two"),
	})
	if err != nil {
		t.Fatal(err)
	}
	rig.player.SetLoop(media.LoopRepeatPlaylist)

	rig.player.PlayNext()
	rig.player.PlayNext()
	if snap := rig.player.Snapshot(); snap.NowPlaying.URI != "http://x/1.mp3" {
		t.Errorf("now playing = %q, want wrap to first", snap.NowPlaying.URI)
	}
}

func TestMergeSearchAppendsUnplayedResults(t *testing.T) {
	rig := newTestRig(t, nil)

	played := audioEntry("http://x/1.mp3", "One")
	if err := rig.player.PlayEntries([]media.MediaEntry{played}); err != nil {
		t.Fatal(err)
	}

	extra := audioEntry("http://x/2.mp3", "Two")
	rig.catalog.SetSearchResults([]media.MediaEntry{played, extra})

	rig.player.PlayNext()
	snap := rig.player.Snapshot()
	if snap.NowPlaying.URI != "http://x/2.mp3" {
		t.Errorf("now playing = %q, want merged search result", snap.NowPlaying.URI)
	}
	if snap.PlaylistSize != 2 {
		t.Errorf("playlist size = %d, played result must not duplicate", snap.PlaylistSize)
	}
}

func TestPlayPrevAtFirstTrackIsNoop(t *testing.T) {
	rig := newTestRig(t, nil)

	err := rig.player.PlayEntries([]media.MediaEntry{
		audioEntry("http://x/1.mp3", "One"),
		audioEntry("http://x/2.mp3", "Two"),
	})
	if err != nil {
		t.Fatal(err)
	}

	rig.player.PlayPrev()
	if snap := rig.player.Snapshot(); snap.NowPlaying.URI != "http://x/1.mp3" {
		t.Errorf("now playing = %q, prev at first track must not move", snap.NowPlaying.URI)
	}

	rig.player.PlayNext()
	rig.player.PlayPrev()
	if snap := rig.player.Snapshot(); snap.NowPlaying.URI != "http://x/1.mp3" {
		t.Errorf("now playing = %q, want back at first", snap.NowPlaying.URI)
	}
}

func TestDuckOnlyWhilePlaying(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.player.Duck()
	if rig.audio.Ducked() {
		t.Error("duck while stopped must be a no-op")
	}

	if err := rig.player.PlayEntries([]media.MediaEntry{audioEntry("http://x/1.mp3", "One")}); err != nil {
		t.Fatal(err)
	}
	rig.player.Duck()
	if !rig.audio.Ducked() {
		t.Error("duck while playing must lower volume")
	}
	rig.player.Unduck()
	if rig.audio.Ducked() {
		t.Error("unduck must restore volume")
	}
}

func TestCorkUncorkCycle(t *testing.T) {
	rig := newTestRig(t, nil)

	if err := rig.player.PlayEntries([]media.MediaEntry{audioEntry("http://x/1.mp3", "One")}); err != nil {
		t.Fatal(err)
	}

	rig.player.Cork()
	if snap := rig.player.Snapshot(); snap.PlayerState != "PAUSED" {
		t.Fatalf("state = %s after cork", snap.PlayerState)
	}
	rig.player.Uncork()
	if snap := rig.player.Snapshot(); snap.PlayerState != "PLAYING" {
		t.Errorf("state = %s, uncork must resume a corked pause", snap.PlayerState)
	}

	// A user pause is not released by uncork.
	rig.player.Pause()
	rig.player.Uncork()
	if snap := rig.player.Snapshot(); snap.PlayerState != "PAUSED" {
		t.Errorf("state = %s, uncork must not release a user pause", snap.PlayerState)
	}
}

func TestMPRISTakeoverYields(t *testing.T) {
	rig := newTestRig(t, nil)

	external := media.MediaEntry{Title: "External Song", Artist: "Peer", SkillID: "spotify"}
	rig.player.HandleMPRISTakeover(external)

	snap := rig.player.Snapshot()
	if snap.PlaybackType != "MPRIS" {
		t.Errorf("playback = %s, want MPRIS", snap.PlaybackType)
	}
	if snap.PlayerState != "PLAYING" {
		t.Errorf("state = %s, want PLAYING", snap.PlayerState)
	}
	if snap.NowPlaying.Title != "External Song" {
		t.Errorf("now playing = %+v, want external metadata", snap.NowPlaying)
	}

	// Transport commands now go to the bridge, not the registries.
	rig.player.PlayNext()
	calls := rig.bridge.Calls()
	if len(calls) == 0 || calls[len(calls)-1] != "next" {
		t.Errorf("bridge calls = %v, want next routed externally", calls)
	}
}

func TestSyncExternalStateIgnoredWithoutMPRIS(t *testing.T) {
	rig := newTestRig(t, nil)

	if err := rig.player.PlayEntries([]media.MediaEntry{audioEntry("http://x/1.mp3", "One")}); err != nil {
		t.Fatal(err)
	}
	rig.player.SyncExternalState(media.PlayerPaused)
	if snap := rig.player.Snapshot(); snap.PlayerState != "PLAYING" {
		t.Errorf("state = %s, external sync must not apply to local playback", snap.PlayerState)
	}
}

func TestPlayOverBus(t *testing.T) {
	rig := newTestRig(t, nil)

	err := rig.conn.Emit(bus.New(bus.TypePlay, map[string]any{
		"media": map[string]any{
			"uri":      "http://x/a.mp3",
			"title":    "A",
			"playback": int(media.PlaybackAudio),
		},
	}))
	if err != nil {
		t.Fatal(err)
	}

	waitUntil(t, "play routed", func() bool { return rig.audio.Loaded() == "http://x/a.mp3" })

	// The backend reports LOADED over the bus; rendering starts.
	if err := rig.conn.Emit(bus.New(bus.TypeMediaState, map[string]int{
		"state": int(media.MediaStateLoadedMedia),
	})); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "backend playing", rig.audio.Playing)
}

func TestStopReplyOverBus(t *testing.T) {
	rig := newTestRig(t, nil)

	resp, err := rig.conn.WaitForResponse(t.Context(), bus.New(bus.TypeStop, nil), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Stopped bool `json:"stopped"`
	}
	if err := resp.DecodeData(&body); err != nil {
		t.Fatal(err)
	}
	if body.Stopped {
		t.Error("stop with nothing playing must report stopped=false")
	}
}

func TestStatusQueryOverBus(t *testing.T) {
	rig := newTestRig(t, nil)

	if err := rig.player.PlayEntries([]media.MediaEntry{audioEntry("http://x/a.mp3", "A")}); err != nil {
		t.Fatal(err)
	}

	resp, err := rig.conn.WaitForResponse(t.Context(), bus.New(bus.TypeStatus, nil), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := resp.DecodeData(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.PlayerState != "PLAYING" || snap.NowPlaying.URI != "http://x/a.mp3" {
		t.Errorf("status = %+v", snap)
	}
}

func TestLikedTracksPlayOverBus(t *testing.T) {
	rig := newTestRig(t, nil)

	song := audioEntry("http://x/liked.mp3", "Liked")
	if err := rig.catalog.Liked().Like(song); err != nil {
		t.Fatal(err)
	}

	if err := rig.conn.Emit(bus.New(bus.TypeLikedTracksPlay, nil)); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "liked track routed", func() bool {
		return rig.audio.Loaded() == "http://x/liked.mp3"
	})
}

func TestShuffleAndLoopToggles(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.player.ToggleShuffle()
	if snap := rig.player.Snapshot(); !snap.Shuffle {
		t.Error("shuffle should be on")
	}

	rig.player.ToggleLoop()
	if snap := rig.player.Snapshot(); snap.LoopState != "REPEAT_PLAYLIST" {
		t.Errorf("loop = %s", snap.LoopState)
	}
	rig.player.ToggleLoop()
	if snap := rig.player.Snapshot(); snap.LoopState != "REPEAT_TRACK" {
		t.Errorf("loop = %s", snap.LoopState)
	}
	rig.player.ToggleLoop()
	if snap := rig.player.Snapshot(); snap.LoopState != "NONE" {
		t.Errorf("loop = %s", snap.LoopState)
	}
}

func TestListenerReceivesEvents(t *testing.T) {
	rig := newTestRig(t, nil)

	var mu sync.Mutex
	var kinds []string
	rig.player.AddListener(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	if err := rig.player.PlayEntries([]media.MediaEntry{audioEntry("http://x/a.mp3", "A")}); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	seen := map[string]bool{}
	for _, k := range kinds {
		seen[k] = true
	}
	if !seen[EventPlayerState] || !seen[EventTrack] {
		t.Errorf("kinds = %v, want state and track events", kinds)
	}
}

// eventRecorder collects listener event kinds for assertions.
type eventRecorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *eventRecorder) listen(ev Event) {
	r.mu.Lock()
	r.kinds = append(r.kinds, ev.Kind)
	r.mu.Unlock()
}

func (r *eventRecorder) has(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (r *eventRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.kinds))
	copy(out, r.kinds)
	return out
}

func TestUnroutableURILeavesPlayerUntouched(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.player.SetLoop(media.LoopRepeatTrack)

	rec := &eventRecorder{}
	rig.player.AddListener(rec.listen)

	err := rig.player.PlayEntries([]media.MediaEntry{
		audioEntry("spotify://track/abc123", "Unroutable"),
	})
	if err != nil {
		t.Fatal(err)
	}

	snap := rig.player.Snapshot()
	if snap.PlayerState != "STOPPED" {
		t.Errorf("state = %s, an unroutable uri must not start playback", snap.PlayerState)
	}
	if snap.MediaState != "NO_MEDIA" {
		t.Errorf("media state = %s, want NO_MEDIA", snap.MediaState)
	}
	if rig.audio.Loaded() != "" {
		t.Errorf("Loaded = %q, nothing should reach the backend", rig.audio.Loaded())
	}
	if rec.has(EventError) || rec.has(EventEndOfMedia) {
		t.Errorf("kinds = %v, want neither error nor end-of-media", rec.all())
	}
}

func TestAutoplayStopsAfterFailingPass(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.audio.FailLoad = errors.New("device gone")
	rig.player.SetLoop(media.LoopRepeatTrack)

	err := rig.player.PlayEntries([]media.MediaEntry{
		audioEntry("http://x/1.mp3", "One"),
		audioEntry("http://x/2.mp3", "Two"),
	})
	if err != nil {
		t.Fatal(err)
	}

	waitUntil(t, "player giving up", func() bool {
		snap := rig.player.Snapshot()
		return snap.PlayerState == "STOPPED" && snap.MediaState == "END_OF_MEDIA"
	})
}

func TestPlayNextOnFreshPlayerIsSilent(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := &eventRecorder{}
	rig.player.AddListener(rec.listen)

	rig.player.PlayNext()

	snap := rig.player.Snapshot()
	if snap.PlayerState != "STOPPED" || snap.MediaState != "NO_MEDIA" {
		t.Errorf("state = %s/%s, next with nothing queued must change nothing",
			snap.PlayerState, snap.MediaState)
	}
	if snap.NowPlaying.URI != "" {
		t.Errorf("now playing = %+v, want empty", snap.NowPlaying)
	}
	if kinds := rec.all(); len(kinds) != 0 {
		t.Errorf("kinds = %v, want no events", kinds)
	}
	if calls := rig.bridge.Calls(); len(calls) != 0 {
		t.Errorf("bridge calls = %v, want none", calls)
	}
}

func TestPlayRequestWithoutPlaylistKeepsQueue(t *testing.T) {
	rig := newTestRig(t, nil)

	err := rig.player.PlayEntries([]media.MediaEntry{
		audioEntry("http://x/1.mp3", "One"),
		audioEntry("http://x/2.mp3", "Two"),
	})
	if err != nil {
		t.Fatal(err)
	}

	err = rig.conn.Emit(bus.New(bus.TypePlay, map[string]any{
		"media": map[string]any{
			"uri":      "http://x/3.mp3",
			"title":    "Three",
			"playback": int(media.PlaybackAudio),
		},
	}))
	if err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "requested track routed", func() bool {
		return rig.audio.Loaded() == "http://x/3.mp3"
	})

	snap := rig.player.Snapshot()
	if snap.PlaylistSize != 3 {
		t.Errorf("playlist size = %d, the queued tracks must survive", snap.PlaylistSize)
	}
	if snap.PlaylistPos != 0 {
		t.Errorf("playlist position = %d, want requested track up front", snap.PlaylistPos)
	}

	// Requesting a track already in the queue jumps to it instead of
	// duplicating it.
	err = rig.conn.Emit(bus.New(bus.TypePlay, map[string]any{
		"media": map[string]any{
			"uri":      "http://x/2.mp3",
			"title":    "Two",
			"playback": int(media.PlaybackAudio),
		},
	}))
	if err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "queued track routed", func() bool {
		return rig.audio.Loaded() == "http://x/2.mp3"
	})
	if snap := rig.player.Snapshot(); snap.PlaylistSize != 3 {
		t.Errorf("playlist size = %d after replay, want 3", snap.PlaylistSize)
	}
}

func TestInvalidMediaReportAdvancesToNextTrack(t *testing.T) {
	rig := newTestRig(t, nil)

	err := rig.player.PlayEntries([]media.MediaEntry{
		audioEntry("http://x/1.mp3", "One"),
		audioEntry("http://x/2.mp3", "Two"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// The backend rejects the stream after routing.
	err = rig.conn.Emit(bus.New(bus.TypeMediaState, map[string]int{
		"state": int(media.MediaStateInvalidMedia),
	}))
	if err != nil {
		t.Fatal(err)
	}

	waitUntil(t, "advance to the next track", func() bool {
		return rig.player.Snapshot().NowPlaying.URI == "http://x/2.mp3"
	})
	if rig.audio.Loaded() != "http://x/2.mp3" {
		t.Errorf("Loaded = %q, want the next track routed", rig.audio.Loaded())
	}
}
