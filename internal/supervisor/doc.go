// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

/*
Package supervisor provides process supervision for ocpd using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running services in the daemon. It provides
Erlang/OTP-style supervision with automatic restart, failure isolation,
and graceful shutdown.

# Overview

The supervisor tree organizes services into three layers for failure
isolation:

	RootSupervisor ("ocpd")
	├── PlaybackSupervisor ("playback-layer")
	│   ├── Player state machine
	│   ├── Backend registries (audio, video, web)
	│   └── Catalog store janitor
	├── BridgeSupervisor ("bridge-layer")
	│   ├── MPRIS discovery bridge (Linux only)
	│   └── MPRIS export (Linux only)
	└── GatewaySupervisor ("gateway-layer")
	    ├── GUI websocket hub
	    └── HTTP server (if enabled)

This hierarchy ensures that:
  - A misbehaving external MPRIS player can't take down local playback
  - An HTTP listener failure doesn't restart the player
  - Each layer can restart independently

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via sutureslog adapter

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/commonplay/ocpd/internal/logging"
	    "github.com/commonplay/ocpd/internal/supervisor"
	)

	func main() {
	    logger := logging.NewSlogLogger()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        log.Fatal(err)
	    }

	    // Add services to appropriate layers
	    tree.AddPlaybackService(player)
	    tree.AddBridgeService(bridge)
	    tree.AddGatewayService(hub)
	    tree.AddGatewayService(httpServer)

	    // Start the tree (blocks until context canceled)
	    ctx := context.Background()
	    if err := tree.Serve(ctx); err != nil {
	        log.Printf("Supervisor stopped: %v", err)
	    }
	}

Background operation:

	// Start in background
	errChan := tree.ServeBackground(ctx)

	// Do other setup...

	// Wait for shutdown
	if err := <-errChan; err != nil {
	    log.Printf("Supervisor error: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,          // Failures before backoff
	    FailureDecay:     30.0,         // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Default values match suture's production-ready defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# What Is NOT Supervised

The message bus connection is intentionally not supervised:
  - Every service holds a reference to the one shared connection
  - Restarting it would silently orphan all their subscriptions
  - Reconnection is handled inside the bus package itself

The process status tracker is not supervised either; it is a passive
state holder mutated by the service orchestrator, not a run loop.

# Debugging Shutdown Issues

If services don't stop within the timeout:

	// Get report of unstopped services
	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("Service didn't stop: %v", svc)
	}

Common causes:
  - Goroutines not respecting context cancellation
  - Blocked network I/O without deadlines
  - Mutex deadlocks during shutdown

# Thread Safety

The SupervisorTree is safe for concurrent use:
  - Services can be added from any goroutine
  - Remove operations are synchronized
  - Multiple services can crash simultaneously

# See Also

  - internal/service: Daemon orchestration and lifecycle
  - github.com/thejerf/suture/v4: Underlying library
*/
package supervisor
