// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

//go:build !linux

package mpris

import (
	"context"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/metrics"
	"github.com/commonplay/ocpd/internal/player"
)

// Coordinator is the bridge's view of the playback coordinator. Satisfied
// by *player.Player.
type Coordinator interface {
	HandleMPRISTakeover(entry media.MediaEntry)
	SyncExternalState(s media.PlayerState)
	SyncExternalMetadata(entry media.MediaEntry)
	ClearExternal()
	SetShuffle(on bool)
	SetLoop(s media.LoopState)
}

// Bridge is the disabled MPRIS bridge for platforms without D-Bus. Every
// transport method is a no-op and no external player is ever tracked.
type Bridge struct{}

// NewBridge returns the disabled bridge.
func NewBridge(_ *config.Config, _ *metrics.Metrics) *Bridge {
	logging.Info().Str("component", "mpris").Msg("MPRIS unavailable on this platform, bridge disabled")
	return &Bridge{}
}

// Bind is a no-op on the disabled bridge.
func (b *Bridge) Bind(_ Coordinator) {}

// Serve waits for shutdown.
func (b *Bridge) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (b *Bridge) String() string { return "mpris-bridge" }

func (b *Bridge) StopCurrent() error  { return nil }
func (b *Bridge) PauseCurrent() error { return nil }
func (b *Bridge) PlayCurrent() error  { return nil }
func (b *Bridge) Next() error         { return nil }
func (b *Bridge) Previous() error     { return nil }
func (b *Bridge) PauseAll() error     { return nil }
func (b *Bridge) Active() bool        { return false }

// Export is the disabled MPRIS export for platforms without D-Bus.
type Export struct{}

// NewExport returns the disabled export.
func NewExport(_ bus.Conn, _ *player.Player, _ *config.Config) *Export {
	return &Export{}
}

// Serve waits for shutdown.
func (e *Export) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (e *Export) String() string { return "mpris-export" }
