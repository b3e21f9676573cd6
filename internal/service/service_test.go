// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package service

import (
	"context"
	"testing"
	"time"

	"github.com/commonplay/ocpd/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.DataDir = t.TempDir()
	cfg.HTTP.Enabled = false
	cfg.OCP.DisableMPRIS = true
	return cfg
}

func TestServiceBuildsAndReachesReady(t *testing.T) {
	s, err := New(testConfig(t), Hooks{})
	if err != nil {
		t.Fatal(err)
	}

	if s.Status().State() != StateAlive {
		t.Errorf("state after New = %v, want ALIVE", s.Status().State())
	}
	if s.Player() == nil {
		t.Fatal("player not built")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !s.Status().IsReady() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("never reached READY")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if s.Status().State() != StateStopping {
		t.Errorf("state after Run = %v, want STOPPING", s.Status().State())
	}
}

func TestServiceLifecycleHooksFire(t *testing.T) {
	type firedSet struct {
		started, alive, ready, stopping bool
	}
	var fired firedSet

	s, err := New(testConfig(t), Hooks{
		OnStarted:  func() { fired.started = true },
		OnAlive:    func() { fired.alive = true },
		OnReady:    func() { fired.ready = true },
		OnStopping: func() { fired.stopping = true },
	})
	if err != nil {
		t.Fatal(err)
	}

	if !fired.started || !fired.alive {
		t.Errorf("after New: fired = %+v", fired)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !s.Status().IsReady() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("never reached READY")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if !fired.ready || !fired.stopping {
		t.Errorf("after Run: fired = %+v", fired)
	}
}

func TestConnectBusInproc(t *testing.T) {
	conn, embedded, err := connectBus(config.Default().Bus)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if embedded != nil {
		t.Error("inproc transport should not start an embedded server")
	}
}
