// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package main is the entry point for the ocpd daemon.
//
// Ocpd is a headless, event-driven media playback daemon for voice
// assistant stacks. It owns the player state machine, routes playback to
// audio, video, and web backend families, bridges MPRIS players in both
// directions over D-Bus, and exposes a websocket event stream for GUIs.
//
// # Startup Order
//
// The daemon initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, and OCPD_* environment
//     variables (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Message bus: in-process fanout or NATS, optionally with an embedded
//     NATS server
//  4. Catalog: badger-backed skill and media registry plus liked songs
//  5. Backend registries: audio, video, and web player families
//  6. Player: the playback state machine
//  7. MPRIS bridge and export (Linux, unless disabled)
//  8. GUI hub and operational HTTP surface
//  9. Supervision tree: everything long-running under suture
//
// Once the tree is serving, the daemon reports READY on the bus and to
// /readyz.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - OCPD_* environment variables
//   - Config file (ocpd.yaml, or OCPD_CONFIG)
//   - Built-in defaults
//
// The defaults run a standalone, loopback-only daemon with no config file.
//
// # Signal Handling
//
// The daemon shuts down gracefully on SIGINT and SIGTERM:
//   - Reports STOPPING on the bus
//   - Cancels the supervision tree and waits for services to stop
//   - Stops rendering, detaches bus handlers, closes the catalog store
//
// # Example Usage
//
// Standalone with defaults:
//
//	./ocpd
//
// Against a shared OVOS bus broker:
//
//	export OCPD_BUS_TRANSPORT=nats
//	export OCPD_NATS_URL=nats://127.0.0.1:4222
//	./ocpd
//
// Headless audio-only deployment:
//
//	export OCPD_PLAYBACK_MODE=force_audio
//	export OCPD_DISABLE_MPRIS=true
//	./ocpd
package main

import (
	"context"

	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/service"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	logging.Info().
		Str("bus_transport", cfg.Bus.Transport).
		Str("data_dir", cfg.ExpandedDataDir()).
		Bool("mpris", !cfg.OCP.DisableMPRIS).
		Bool("http", cfg.HTTP.Enabled).
		Msg("Starting ocpd")

	daemon, err := service.New(cfg, service.Hooks{})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build daemon")
	}

	if err := daemon.Run(context.Background()); err != nil {
		logging.Fatal().Err(err).Msg("Daemon exited with error")
	}
	logging.Info().Msg("ocpd stopped")
}
