// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package backends

import (
	"context"
	"sync"
	"time"
)

// MockBackend is an in-memory backend used by tests and by deployments that
// want a silent placeholder player. It records every call and tracks a fake
// playback position.
type MockBackend struct {
	name    string
	schemes []string

	mu       sync.Mutex
	loaded   string
	playing  bool
	paused   bool
	position time.Duration
	length   time.Duration
	ducked   bool
	stopped  int
	calls    []string

	// FailLoad makes Load return an error, for backend-failure paths.
	FailLoad error
}

// NewMockBackend builds a mock claiming the given schemes. With no schemes
// it claims file/http/https.
func NewMockBackend(name string, schemes ...string) *MockBackend {
	if len(schemes) == 0 {
		schemes = []string{"file", "http", "https"}
	}
	return &MockBackend{name: name, schemes: schemes, length: 3 * time.Minute}
}

func init() {
	RegisterFactory("mock", func(spec FactorySpec) (Backend, error) {
		return NewMockBackend(spec.Name), nil
	})
}

func (m *MockBackend) record(call string) {
	m.calls = append(m.calls, call)
}

// Calls returns the recorded call sequence.
func (m *MockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Loaded returns the last loaded URI.
func (m *MockBackend) Loaded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Playing reports the fake transport state.
func (m *MockBackend) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.paused
}

// Ducked reports whether the volume is lowered.
func (m *MockBackend) Ducked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ducked
}

// StopCount returns how many times Stop ran.
func (m *MockBackend) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *MockBackend) Name() string { return m.name }

func (m *MockBackend) SupportedURIs() []string { return m.schemes }

func (m *MockBackend) Load(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("load:" + uri)
	if m.FailLoad != nil {
		return m.FailLoad
	}
	m.loaded = uri
	m.position = 0
	return nil
}

func (m *MockBackend) Play(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("play")
	m.playing = true
	m.paused = false
	return nil
}

func (m *MockBackend) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("stop")
	m.playing = false
	m.paused = false
	m.stopped++
	return nil
}

func (m *MockBackend) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("pause")
	m.paused = true
	return nil
}

func (m *MockBackend) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("resume")
	m.paused = false
	return nil
}

func (m *MockBackend) Seek(ms int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("seek")
	m.position = time.Duration(ms) * time.Millisecond
	return nil
}

func (m *MockBackend) TrackInfo() (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{"uri": m.loaded}, nil
}

func (m *MockBackend) Length() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.length, nil
}

func (m *MockBackend) Position() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position, nil
}

func (m *MockBackend) LowerVolume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("lower_volume")
	m.ducked = true
	return nil
}

func (m *MockBackend) RestoreVolume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("restore_volume")
	m.ducked = false
	return nil
}

func (m *MockBackend) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("shutdown")
	return nil
}
