// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package logging provides centralized zerolog-based logging for ocpd.
//
// Every component logs through the global logger configured here, tagged
// with a "component" field. The package also ships two adapters so that
// libraries with their own logging contracts write into the same pipeline:
//
//   - SlogHandler bridges log/slog consumers (sutureslog supervision logs)
//   - WatermillAdapter bridges the Watermill pub/sub internals
//
// Initialize once from main:
//
//	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
//
// and log with the package-level starters:
//
//	logging.Info().Str("component", "player").Msg("state changed")
//
// Always terminate chains with .Msg() or .Send(); an unterminated chain is
// silently dropped by zerolog.
package logging
