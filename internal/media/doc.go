// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package media defines the domain model shared by every ocpd component:
// the playback state enums carried on the bus, media entries and playlists,
// and the domain error kinds.
//
// Enum values are part of the wire protocol. Skills, GUI clients and backend
// plugins exchange them as integers, so the numeric values here are frozen;
// renaming a Go constant is safe, renumbering is a protocol break.
package media
