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
	"github.com/commonplay/ocpd/internal/player"
)

func TestPlaybackStatusFor(t *testing.T) {
	if playbackStatusFor("PLAYING") != "Playing" ||
		playbackStatusFor("PAUSED") != "Paused" ||
		playbackStatusFor("STOPPED") != "Stopped" ||
		playbackStatusFor("") != "Stopped" {
		t.Error("playbackStatusFor mapping broken")
	}
}

func TestExportMetadataEmptyEntry(t *testing.T) {
	md := exportMetadata(player.Snapshot{})
	id, ok := md["mpris:trackid"].Value().(dbus.ObjectPath)
	if !ok || id != noTrackPath {
		t.Errorf("trackid = %v, want NoTrack sentinel", md["mpris:trackid"])
	}
	if len(md) != 1 {
		t.Errorf("empty entry must export only the trackid: %v", md)
	}
}

func TestExportMetadataFullEntry(t *testing.T) {
	md := exportMetadata(player.Snapshot{
		NowPlaying: media.MediaEntry{
			URI:    "https://x/a.mp3",
			Title:  "A",
			Album:  "Best Of",
			Artist: "Someone",
			Image:  "https://x/a.png",
		},
		Length:      200_000,
		PlaylistPos: 2,
	})

	if got := md["xesam:url"].Value(); got != "https://x/a.mp3" {
		t.Errorf("url = %v", got)
	}
	if got := md["xesam:title"].Value(); got != "A" {
		t.Errorf("title = %v", got)
	}
	artists, ok := md["xesam:artist"].Value().([]string)
	if !ok || len(artists) != 1 || artists[0] != "Someone" {
		t.Errorf("artist = %v, want string list", md["xesam:artist"])
	}
	if got := md["mpris:length"].Value(); got != int64(200_000_000) {
		t.Errorf("length = %v, want ms converted to microseconds", got)
	}
	id, _ := md["mpris:trackid"].Value().(dbus.ObjectPath)
	if !id.IsValid() {
		t.Errorf("trackid %q must be a valid object path", id)
	}
}

func TestExportPushBeforeServeIsQuiet(t *testing.T) {
	cfg := config.Default()
	e := &Export{cfg: cfg}

	// No props exported yet; pushes must not panic.
	e.push(player.Snapshot{PlayerState: "PLAYING"}, true)
	e.setProp("Position", int64(1000))
}
