// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package config loads the daemon configuration through Koanf v2 with
// layered sources: struct defaults, an optional YAML file, then OCPD_*
// environment variables. The loaded Config is validated once and passed
// explicitly into every component at construction.
package config
