// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

//go:build linux

package mpris

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/media"
)

func TestDecodeMetadata(t *testing.T) {
	md := map[string]dbus.Variant{
		"xesam:url":    dbus.MakeVariant("https://radio.example/stream"),
		"xesam:title":  dbus.MakeVariant("Morning Show"),
		"xesam:album":  dbus.MakeVariant("Live"),
		"xesam:artist": dbus.MakeVariant([]string{"Host A", "Host B"}),
		"mpris:artUrl": dbus.MakeVariant("https://radio.example/art.png"),
		"mpris:length": dbus.MakeVariant(int64(183_000_000)),
	}

	e := decodeMetadata(md, "Firefox")
	if e.URI != "https://radio.example/stream" {
		t.Errorf("URI = %q", e.URI)
	}
	if e.Title != "Morning Show" || e.Album != "Live" {
		t.Errorf("title/album = %q/%q", e.Title, e.Album)
	}
	if e.Artist != "Host A, Host B" {
		t.Errorf("Artist = %q, want joined list", e.Artist)
	}
	if e.Image != "https://radio.example/art.png" {
		t.Errorf("Image = %q", e.Image)
	}
	if e.Length != 183_000 {
		t.Errorf("Length = %d ms, want microseconds converted", e.Length)
	}
	if e.SkillID != "Firefox" {
		t.Errorf("SkillID = %q, want player identity", e.SkillID)
	}
	if e.Playback != media.PlaybackMPRIS || e.Status != media.TrackPlayingMPRIS {
		t.Errorf("playback/status = %v/%v", e.Playback, e.Status)
	}
}

func TestDecodeMetadataSparse(t *testing.T) {
	e := decodeMetadata(map[string]dbus.Variant{
		"xesam:artist": dbus.MakeVariant("Solo Act"),
	}, "vlc")
	if e.Artist != "Solo Act" {
		t.Errorf("Artist = %q, plain string must be accepted", e.Artist)
	}
	if e.URI != "" || e.Length != 0 {
		t.Errorf("missing keys must stay zero: uri=%q length=%d", e.URI, e.Length)
	}
}

func TestStatusAndLoopMaps(t *testing.T) {
	if statusToState("Playing") != media.PlayerPlaying ||
		statusToState("Paused") != media.PlayerPaused ||
		statusToState("Stopped") != media.PlayerStopped ||
		statusToState("garbage") != media.PlayerStopped {
		t.Error("statusToState mapping broken")
	}

	for _, tc := range []struct {
		mpris string
		loop  media.LoopState
	}{
		{"None", media.LoopNone},
		{"Playlist", media.LoopRepeatPlaylist},
		{"Track", media.LoopRepeatTrack},
	} {
		if loopFromMPRIS(tc.mpris) != tc.loop {
			t.Errorf("loopFromMPRIS(%q) = %v", tc.mpris, loopFromMPRIS(tc.mpris))
		}
		if loopToMPRIS(tc.loop) != tc.mpris {
			t.Errorf("loopToMPRIS(%v) = %q", tc.loop, loopToMPRIS(tc.loop))
		}
	}
}

func TestIgnoredName(t *testing.T) {
	for name, want := range map[string]bool{
		exportName: true,
		"org.mpris.MediaPlayer2.plasma-browser-integration": true,
		"org.mpris.MediaPlayer2.kdeconnect.mpris_000123":    true,
		"org.mpris.MediaPlayer2.firefox.instance123":        false,
		"org.mpris.MediaPlayer2.vlc":                        false,
	} {
		if got := ignoredName(name); got != want {
			t.Errorf("ignoredName(%q) = %v, want %v", name, got, want)
		}
	}
}

// recordingCoordinator captures bridge callbacks.
type recordingCoordinator struct {
	calls    []string
	takeover media.MediaEntry
	state    media.PlayerState
	metadata media.MediaEntry
	shuffle  bool
	loop     media.LoopState
}

func (r *recordingCoordinator) HandleMPRISTakeover(e media.MediaEntry) {
	r.calls = append(r.calls, "takeover")
	r.takeover = e
}

func (r *recordingCoordinator) SyncExternalState(s media.PlayerState) {
	r.calls = append(r.calls, "state")
	r.state = s
}

func (r *recordingCoordinator) SyncExternalMetadata(e media.MediaEntry) {
	r.calls = append(r.calls, "metadata")
	r.metadata = e
}

func (r *recordingCoordinator) ClearExternal() {
	r.calls = append(r.calls, "clear")
}

func (r *recordingCoordinator) SetShuffle(on bool) {
	r.calls = append(r.calls, "shuffle")
	r.shuffle = on
}

func (r *recordingCoordinator) SetLoop(s media.LoopState) {
	r.calls = append(r.calls, "loop")
	r.loop = s
}

func newTestBridge(t *testing.T) (*Bridge, *recordingCoordinator) {
	t.Helper()
	cfg := config.Default()
	b := NewBridge(cfg, nil)
	coord := &recordingCoordinator{}
	b.Bind(coord)
	return b, coord
}

func trackPlayer(b *Bridge, name, identity string) *externalPlayer {
	p := &externalPlayer{busName: name, owner: ":1.99", identity: identity, status: "Stopped"}
	b.mu.Lock()
	b.players[name] = p
	b.owners[p.owner] = name
	b.mu.Unlock()
	return p
}

func TestPlayingPromotesToMainAndTakesOver(t *testing.T) {
	b, coord := newTestBridge(t)
	p := trackPlayer(b, mprisPrefix+"vlc", "VLC")
	p.entry = media.MediaEntry{URI: "file:///song.mp3", Title: "Song", SkillID: "VLC"}

	b.applyStatus(p, "Playing")

	if !b.Active() {
		t.Fatal("bridge must track a main player")
	}
	if len(coord.calls) != 1 || coord.calls[0] != "takeover" {
		t.Fatalf("calls = %v, want single takeover", coord.calls)
	}
	if coord.takeover.Title != "Song" {
		t.Errorf("takeover entry = %+v", coord.takeover)
	}

	// Playing again from the same main player syncs, no second takeover.
	b.applyStatus(p, "Playing")
	if coord.calls[len(coord.calls)-1] != "state" || coord.state != media.PlayerPlaying {
		t.Errorf("repeat Playing: calls = %v state = %v", coord.calls, coord.state)
	}
}

func TestPausedSyncsOnlyMainPlayer(t *testing.T) {
	b, coord := newTestBridge(t)
	main := trackPlayer(b, mprisPrefix+"vlc", "VLC")
	other := &externalPlayer{busName: mprisPrefix + "firefox", owner: ":1.50", identity: "Firefox", status: "Stopped"}
	b.mu.Lock()
	b.players[other.busName] = other
	b.owners[other.owner] = other.busName
	b.mu.Unlock()

	b.applyStatus(main, "Playing")
	coord.calls = nil

	b.applyStatus(other, "Paused")
	if len(coord.calls) != 0 {
		t.Errorf("non-main pause must not reach the coordinator: %v", coord.calls)
	}

	b.applyStatus(main, "Paused")
	if coord.state != media.PlayerPaused {
		t.Errorf("state = %v, want PAUSED", coord.state)
	}
}

func TestStoppedClearsMainPlayer(t *testing.T) {
	b, coord := newTestBridge(t)
	p := trackPlayer(b, mprisPrefix+"vlc", "VLC")

	b.applyStatus(p, "Playing")
	b.applyStatus(p, "Stopped")

	if b.Active() {
		t.Error("stopped main player must clear Active")
	}
	if coord.calls[len(coord.calls)-1] != "clear" {
		t.Errorf("calls = %v, want trailing clear", coord.calls)
	}
}

func TestMetadataPromotesPlayingPlayerWithoutMain(t *testing.T) {
	b, coord := newTestBridge(t)
	p := trackPlayer(b, mprisPrefix+"vlc", "VLC")
	p.status = "Playing"

	b.applyMetadata(p, media.MediaEntry{URI: "https://x/a.mp3", Title: "A", SkillID: "VLC"})

	if !b.Active() {
		t.Fatal("playing player with fresh metadata must become main")
	}
	if coord.calls[len(coord.calls)-1] != "takeover" {
		t.Errorf("calls = %v", coord.calls)
	}
}

func TestMetadataSyncsMainPlayer(t *testing.T) {
	b, coord := newTestBridge(t)
	p := trackPlayer(b, mprisPrefix+"vlc", "VLC")
	b.applyStatus(p, "Playing")
	coord.calls = nil

	b.applyMetadata(p, media.MediaEntry{URI: "https://x/b.mp3", Title: "B"})
	if len(coord.calls) != 1 || coord.calls[0] != "metadata" {
		t.Fatalf("calls = %v, want metadata sync", coord.calls)
	}
	if coord.metadata.Title != "B" {
		t.Errorf("metadata = %+v", coord.metadata)
	}
}

func TestLostMainPlayerClearsExternal(t *testing.T) {
	b, coord := newTestBridge(t)
	p := trackPlayer(b, mprisPrefix+"vlc", "VLC")
	b.applyStatus(p, "Playing")
	coord.calls = nil

	b.lostPlayer(p.busName)
	if b.Active() {
		t.Error("lost main player must clear Active")
	}
	if len(coord.calls) != 1 || coord.calls[0] != "clear" {
		t.Errorf("calls = %v, want clear", coord.calls)
	}

	// Losing it twice is harmless.
	b.lostPlayer(p.busName)
	if len(coord.calls) != 1 {
		t.Errorf("second loss must be a no-op: %v", coord.calls)
	}
}

func TestCallMainWithoutMainIsNoop(t *testing.T) {
	b, _ := newTestBridge(t)
	if err := b.StopCurrent(); err != nil {
		t.Errorf("StopCurrent without main = %v, want nil", err)
	}
	if err := b.PauseAll(); err != nil {
		t.Errorf("PauseAll without players = %v, want nil", err)
	}
}
