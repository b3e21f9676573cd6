// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package catalog tracks what can be played: the skills registered over the
// bus, their featured media, the liked-songs store, the badger-backed search
// index with play-count history, and the result list of the last search.
package catalog
