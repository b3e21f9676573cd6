// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package httpapi is the operational HTTP surface: liveness and readiness
// probes, Prometheus metrics, read-only player status, a debug play
// endpoint and the GUI websocket upgrade. It is an ops convenience, not a
// public API; the real control surface is the message bus.
package httpapi
