// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package mpris bridges the player to the desktop's MPRIS D-Bus world,
// in both directions: it watches external media players (browsers, desktop
// players) on the session or system bus and mirrors their state into the
// coordinator, and it exports OCP itself as org.mpris.MediaPlayer2.OCP so
// desktop controls work on our playback. Everything D-Bus is Linux-gated;
// other platforms get a disabled bridge.
package mpris
