// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package gui streams player changes to GUI clients over websockets. The
// daemon does no rendering itself; clients get view hints, now-playing
// metadata, playlist snapshots and throttled position updates and draw
// whatever they want with them.
package gui
