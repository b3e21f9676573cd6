// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

//go:build linux

package mpris

import (
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/commonplay/ocpd/internal/media"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	dbusPropsIface   = "org.freedesktop.DBus.Properties"

	// exportName is the well-known name OCP claims for its own export and
	// that the discovery loop must never track as an external player.
	exportName = "org.mpris.MediaPlayer2.OCP"
)

// ignoredName reports whether a well-known MPRIS bus name should be skipped
// by discovery. kdeconnect mirrors phones and plasma-browser-integration
// duplicates the browser's own player; tracking either causes double
// takeovers.
func ignoredName(name string) bool {
	switch {
	case name == exportName:
		return true
	case name == mprisPrefix+"plasma-browser-integration":
		return true
	case strings.HasPrefix(name, mprisPrefix+"kdeconnect"):
		return true
	}
	return false
}

// decodeMetadata maps an MPRIS metadata dictionary onto a MediaEntry. The
// entry is tagged for MPRIS playback with the player identity as skill id;
// mpris:length arrives in microseconds and is converted to milliseconds.
func decodeMetadata(md map[string]dbus.Variant, identity string) media.MediaEntry {
	e := media.NewMediaEntry(variantString(md["xesam:url"]))
	e.Playback = media.PlaybackMPRIS
	e.Status = media.TrackPlayingMPRIS
	e.SkillID = identity
	e.Title = variantString(md["xesam:title"])
	e.Album = variantString(md["xesam:album"])
	e.Artist = variantStrings(md["xesam:artist"])
	e.Image = variantString(md["mpris:artUrl"])
	if us := variantInt(md["mpris:length"]); us > 0 {
		e.Length = us / 1000
	}
	return e
}

// statusToState maps an MPRIS PlaybackStatus string onto a player state.
func statusToState(status string) media.PlayerState {
	switch status {
	case "Playing":
		return media.PlayerPlaying
	case "Paused":
		return media.PlayerPaused
	default:
		return media.PlayerStopped
	}
}

// loopFromMPRIS maps an MPRIS LoopStatus string onto a loop state.
func loopFromMPRIS(status string) media.LoopState {
	switch status {
	case "Track":
		return media.LoopRepeatTrack
	case "Playlist":
		return media.LoopRepeatPlaylist
	default:
		return media.LoopNone
	}
}

// loopToMPRIS is the inverse mapping for the exported LoopStatus property.
func loopToMPRIS(s media.LoopState) string {
	switch s {
	case media.LoopRepeatTrack:
		return "Track"
	case media.LoopRepeatPlaylist:
		return "Playlist"
	default:
		return "None"
	}
}

func variantString(v dbus.Variant) string {
	if s, ok := v.Value().(string); ok {
		return s
	}
	return ""
}

// variantStrings flattens a string-array variant (xesam:artist) into one
// comma separated string, accepting a plain string from sloppy players.
func variantStrings(v dbus.Variant) string {
	switch val := v.Value().(type) {
	case []string:
		return strings.Join(val, ", ")
	case string:
		return val
	}
	return ""
}

func variantInt(v dbus.Variant) int64 {
	switch val := v.Value().(type) {
	case int64:
		return val
	case uint64:
		return int64(val)
	case int32:
		return int64(val)
	case uint32:
		return int64(val)
	case int:
		return int64(val)
	case float64:
		return int64(val)
	}
	return 0
}
