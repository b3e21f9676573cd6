// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package player implements the playback coordinator: the single state
// machine over the backend registries, the skill playback namespace, and
// the external MPRIS player bridge. It owns the playlist and the NowPlaying
// model and answers the ovos.common_play.* bus surface.
package player
