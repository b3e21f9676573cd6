// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package metrics defines the Prometheus instrument set of the daemon on a
// dedicated registry: play routings, state transitions, bus traffic, bridge
// failures, search latency, and GUI client counts.
package metrics
