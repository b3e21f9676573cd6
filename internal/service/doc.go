// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package service assembles and runs the daemon. It owns startup order,
// the process lifecycle state other OVOS processes query over the bus,
// signal handling, and ordered shutdown. Everything long-running goes into
// the supervision tree; this package only builds and wires.
package service
