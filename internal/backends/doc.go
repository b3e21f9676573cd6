// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package backends implements the three backend registries (audio, video,
// web). A registry loads its configured rendering plugins, routes play
// requests by URI scheme with locals preferred over remotes, proxies
// transport commands to the selected backend, and answers the family's
// ovos.<family>.service.* bus surface behind the native-source gate.
package backends
