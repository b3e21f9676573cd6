// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package service

import (
	"sync"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/logging"
)

// State is the daemon lifecycle state.
type State int

const (
	// StateStarted means the process exists but the bus is not up yet.
	StateStarted State = iota

	// StateAlive means the bus connection is established.
	StateAlive

	// StateReady means all components are constructed and supervised.
	StateReady

	// StateStopping means shutdown has begun.
	StateStopping

	// StateError means startup failed.
	StateError
)

// String returns the protocol name of the state.
func (s State) String() string {
	switch s {
	case StateStarted:
		return "STARTED"
	case StateAlive:
		return "ALIVE"
	case StateReady:
		return "READY"
	case StateStopping:
		return "STOPPING"
	case StateError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Hooks are optional callbacks fired on lifecycle transitions. Nil hooks
// are skipped. Hooks run synchronously on the transitioning goroutine.
type Hooks struct {
	OnStarted  func()
	OnAlive    func()
	OnReady    func()
	OnStopping func()
	OnError    func(error)
}

// ProcessStatus tracks the daemon lifecycle and answers the status queries
// other OVOS processes use to wait for the media service.
type ProcessStatus struct {
	conn  bus.Conn
	hooks Hooks

	mu      sync.RWMutex
	state   State
	lastErr error
	subs    []*bus.Subscription
}

// NewProcessStatus creates the tracker in the STARTED state and fires
// OnStarted.
func NewProcessStatus(conn bus.Conn, hooks Hooks) *ProcessStatus {
	ps := &ProcessStatus{conn: conn, hooks: hooks, state: StateStarted}
	if hooks.OnStarted != nil {
		hooks.OnStarted()
	}
	return ps
}

// Attach registers the bus query handlers.
func (ps *ProcessStatus) Attach() error {
	handlers := map[string]bus.Handler{
		bus.TypeIsAlive:     ps.handleIsAlive,
		bus.TypeIsReady:     ps.handleIsReady,
		bus.TypeMediaStatus: ps.handleStatus,
	}
	for msgType, h := range handlers {
		sub, err := ps.conn.On(msgType, h)
		if err != nil {
			ps.Detach()
			return err
		}
		ps.mu.Lock()
		ps.subs = append(ps.subs, sub)
		ps.mu.Unlock()
	}
	return nil
}

// Detach removes the bus query handlers.
func (ps *ProcessStatus) Detach() {
	ps.mu.Lock()
	subs := ps.subs
	ps.subs = nil
	ps.mu.Unlock()
	for _, sub := range subs {
		ps.conn.Remove(sub)
	}
}

// State returns the current lifecycle state.
func (ps *ProcessStatus) State() State {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.state
}

// Err returns the error recorded by SetError, if any.
func (ps *ProcessStatus) Err() error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.lastErr
}

// IsAlive reports whether the bus is up. READY implies alive.
func (ps *ProcessStatus) IsAlive() bool {
	s := ps.State()
	return s == StateAlive || s == StateReady
}

// IsReady reports whether startup completed.
func (ps *ProcessStatus) IsReady() bool {
	return ps.State() == StateReady
}

// SetAlive records that the bus connection is established.
func (ps *ProcessStatus) SetAlive() {
	ps.transition(StateAlive, nil)
	if ps.hooks.OnAlive != nil {
		ps.hooks.OnAlive()
	}
}

// SetReady records that all components are constructed and supervised.
func (ps *ProcessStatus) SetReady() {
	ps.transition(StateReady, nil)
	if ps.hooks.OnReady != nil {
		ps.hooks.OnReady()
	}
}

// SetStopping records that shutdown has begun.
func (ps *ProcessStatus) SetStopping() {
	ps.transition(StateStopping, nil)
	if ps.hooks.OnStopping != nil {
		ps.hooks.OnStopping()
	}
}

// SetError records a startup failure.
func (ps *ProcessStatus) SetError(err error) {
	ps.transition(StateError, err)
	if ps.hooks.OnError != nil {
		ps.hooks.OnError(err)
	}
}

func (ps *ProcessStatus) transition(to State, err error) {
	ps.mu.Lock()
	from := ps.state
	ps.state = to
	ps.lastErr = err
	ps.mu.Unlock()
	logging.Info().
		Str("component", "service").
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("lifecycle transition")
}

func (ps *ProcessStatus) handleIsAlive(msg *bus.Message) {
	ps.reply(msg, map[string]any{"status": ps.IsAlive()})
}

func (ps *ProcessStatus) handleIsReady(msg *bus.Message) {
	ps.reply(msg, map[string]any{"status": ps.IsReady()})
}

func (ps *ProcessStatus) handleStatus(msg *bus.Message) {
	ps.reply(msg, map[string]any{"state": ps.State().String()})
}

func (ps *ProcessStatus) reply(msg *bus.Message, data any) {
	if err := ps.conn.Emit(msg.Response(data)); err != nil {
		logging.Warn().Str("component", "service").Err(err).Msg("status reply failed")
	}
}
