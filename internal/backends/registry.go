// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package backends

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/metrics"
)

// staleStopWindow is how long after a play request stop commands are
// treated as stale and dropped. Protects a fresh play against stop messages
// that were already in flight.
const staleStopWindow = time.Second

// defaultLoadTimeout bounds WaitForLoad when the caller passes zero.
const defaultLoadTimeout = 3 * time.Minute

// Registry holds the loaded backends of one family, routes play requests by
// URI scheme, and proxies transport commands to the selected backend.
type Registry struct {
	family  media.Family
	conn    bus.Conn
	metrics *metrics.Metrics

	nativeSources []string

	// mu serializes selection and stop so a stop cannot race a routing
	// decision.
	mu       sync.Mutex
	services []*loadedBackend
	current  *loadedBackend

	playStart   time.Time
	pendingLoad bool
	volumeIsLow bool

	loadDone chan media.MediaState

	trackStart func(entry *media.MediaEntry)

	subs []*bus.Subscription
}

// NewRegistry constructs the registry of one family from its configured
// player specs. A backend that fails to load is logged and skipped; it
// never aborts construction.
func NewRegistry(family media.Family, conn bus.Conn, cfg config.MediaConfig, m *metrics.Metrics) *Registry {
	r := &Registry{
		family:        family,
		conn:          conn,
		metrics:       m,
		nativeSources: cfg.NativeSources,
		loadDone:      make(chan media.MediaState, 1),
	}
	r.loadServices(cfg.PlayersFor(family))
	return r
}

// loadServices instantiates configured backends: locals first, then
// remotes, names sorted inside each group for deterministic routing.
func (r *Registry) loadServices(specs map[string]config.PlayerSpec) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := isRemoteModule(specs[names[i]].Module), isRemoteModule(specs[names[j]].Module)
		if ri != rj {
			return !ri
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		spec := specs[name]
		if !spec.IsActive() {
			logging.Debug().
				Str("component", r.component()).
				Str("player", name).
				Msg("backend disabled in config")
			continue
		}

		factory, ok := lookupFactory(spec.Module)
		if !ok {
			logging.Error().
				Str("component", r.component()).
				Str("player", name).
				Str("module", spec.Module).
				Msg("unknown backend module")
			r.countLoadFailure()
			continue
		}

		backend, err := factory(FactorySpec{
			Name:    name,
			Family:  r.family,
			Aliases: spec.Aliases,
			Emit: func(msgType string, data any) error {
				return r.conn.Emit(bus.New(msgType, data))
			},
		})
		if err != nil {
			logging.Error().
				Str("component", r.component()).
				Str("player", name).
				Str("module", spec.Module).
				Err(err).
				Msgf("backend construction failed: %v", media.ErrBackendLoadFailure)
			r.countLoadFailure()
			continue
		}

		r.services = append(r.services, &loadedBackend{
			backend: backend,
			name:    name,
			aliases: spec.Aliases,
			remote:  isRemoteModule(spec.Module),
		})
		logging.Info().
			Str("component", r.component()).
			Str("player", name).
			Str("module", spec.Module).
			Bool("remote", isRemoteModule(spec.Module)).
			Msg("backend loaded")
	}
}

func (r *Registry) countLoadFailure() {
	if r.metrics != nil {
		r.metrics.BackendLoadFailures.WithLabelValues(r.family.String()).Inc()
	}
}

func (r *Registry) component() string {
	return r.family.String() + "-registry"
}

// Family returns the registry's backend family.
func (r *Registry) Family() media.Family {
	return r.family
}

// Backends lists the loaded backend names in routing order.
func (r *Registry) Backends() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, s.name)
	}
	return out
}

// Current returns the name of the selected backend, or "".
func (r *Registry) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ""
	}
	return r.current.name
}

// SetTrackStartCallback installs the hook invoked when a track starts
// playing (with the entry) or the queue ends (with nil).
func (r *Registry) SetTrackStartCallback(cb func(entry *media.MediaEntry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackStart = cb
}

// Play routes a URI to a backend and begins the asynchronous load. The
// preferred names (from a spoken utterance) win when one of them supports
// the scheme; the currently selected backend is kept when it does; else the
// first supporting backend in routing order is chosen.
func (r *Registry) Play(uri string, preferred []string) error {
	scheme, err := uriScheme(uri)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	selected := r.selectLocked(scheme, preferred)
	if selected == nil {
		logging.Info().
			Str("component", r.component()).
			Str("uri", uri).
			Str("scheme", scheme).
			Msg("no backend for scheme")
		return fmt.Errorf("scheme %q: %w", scheme, media.ErrNoBackend)
	}

	r.current = selected
	r.playStart = time.Now()
	r.pendingLoad = true
	drainLoadSignal(r.loadDone)

	if err := selected.backend.Load(uri); err != nil {
		r.pendingLoad = false
		return fmt.Errorf("load %s on %s: %w", uri, selected.name, err)
	}

	if r.metrics != nil {
		r.metrics.PlaysTotal.WithLabelValues(r.family.String()).Inc()
	}
	logging.Debug().
		Str("component", r.component()).
		Str("uri", uri).
		Str("player", selected.name).
		Msg("track loading")
	return nil
}

func (r *Registry) selectLocked(scheme string, preferred []string) *loadedBackend {
	for _, want := range preferred {
		for _, s := range r.services {
			if s.matchesName(want) && s.supportsScheme(scheme) {
				return s
			}
		}
	}
	if r.current != nil && r.current.supportsScheme(scheme) {
		return r.current
	}
	for _, s := range r.services {
		if s.supportsScheme(scheme) {
			return s
		}
	}
	return nil
}

// HandleMediaState is the registry's hook into the shared media.state
// event stream. A LOADED state for this family starts actual playback on
// the selected backend; INVALID abandons the pending load.
func (r *Registry) HandleMediaState(state media.MediaState) {
	r.mu.Lock()
	if !r.pendingLoad || r.current == nil {
		r.mu.Unlock()
		return
	}

	switch state {
	case media.MediaStateLoadedMedia:
		r.pendingLoad = false
		current := r.current
		cb := r.trackStart
		r.mu.Unlock()

		if err := current.backend.Play(context.Background()); err != nil {
			logging.Error().
				Str("component", r.component()).
				Str("player", current.name).
				Err(err).
				Msg("backend play failed")
			return
		}
		r.announceTrackState(r.playingState())
		if cb != nil {
			if info, err := current.backend.TrackInfo(); err == nil {
				entry := media.EntryFromMap(info)
				cb(&entry)
			} else {
				cb(nil)
			}
		}
		signalLoad(r.loadDone, state)

	case media.MediaStateInvalidMedia:
		r.pendingLoad = false
		r.mu.Unlock()
		signalLoad(r.loadDone, state)

	default:
		r.mu.Unlock()
	}
}

// WaitForLoad blocks until the pending load resolves to LOADED or INVALID,
// the timeout passes, or ctx is canceled.
func (r *Registry) WaitForLoad(ctx context.Context, timeout time.Duration) (media.MediaState, error) {
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case state := <-r.loadDone:
		return state, nil
	case <-timer.C:
		return media.MediaStateNoMedia, fmt.Errorf("backend did not finish loading within %s", timeout)
	case <-ctx.Done():
		return media.MediaStateNoMedia, ctx.Err()
	}
}

func drainLoadSignal(ch chan media.MediaState) {
	select {
	case <-ch:
	default:
	}
}

func signalLoad(ch chan media.MediaState, state media.MediaState) {
	select {
	case ch <- state:
	default:
	}
}

func (r *Registry) playingState() media.TrackState {
	switch r.family {
	case media.FamilyVideo:
		return media.TrackPlayingVideo
	case media.FamilyWeb:
		return media.TrackPlayingWebview
	default:
		return media.TrackPlayingAudio
	}
}

func (r *Registry) announceTrackState(state media.TrackState) {
	if err := r.conn.Emit(bus.New(bus.TypeTrackState, map[string]any{"state": int(state)})); err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("track state announce failed")
	}
}

// Stop halts the current backend. Stops inside the stale window after a
// play are dropped with ErrStaleStop. Returns true when something actually
// stopped.
func (r *Registry) Stop() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Registry) stopLocked() (bool, error) {
	if !r.playStart.IsZero() && time.Since(r.playStart) < staleStopWindow {
		logging.Debug().
			Str("component", r.component()).
			Dur("since_play", time.Since(r.playStart)).
			Msg("dropping stale stop")
		return false, media.ErrStaleStop
	}
	if r.current == nil {
		return false, nil
	}

	err := r.current.backend.Stop()
	r.current = nil
	r.pendingLoad = false
	if err != nil {
		return true, fmt.Errorf("stop: %w", err)
	}
	return true, nil
}

// Pause forwards to the selected backend.
func (r *Registry) Pause() error {
	if b := r.currentBackend(); b != nil {
		return b.Pause()
	}
	return nil
}

// Resume forwards to the selected backend.
func (r *Registry) Resume() error {
	if b := r.currentBackend(); b != nil {
		return b.Resume()
	}
	return nil
}

// Seek jumps to an absolute position in milliseconds.
func (r *Registry) Seek(ms int64) error {
	if b := r.currentBackend(); b != nil {
		return b.Seek(ms)
	}
	return nil
}

// SeekRelative moves by the given offset from the current position.
func (r *Registry) SeekRelative(offset time.Duration) error {
	b := r.currentBackend()
	if b == nil {
		return nil
	}
	pos, err := b.Position()
	if err != nil {
		return err
	}
	target := pos + offset
	if target < 0 {
		target = 0
	}
	return b.Seek(target.Milliseconds())
}

// TrackInfo returns the selected backend's metadata, or nil.
func (r *Registry) TrackInfo() (map[string]any, error) {
	if b := r.currentBackend(); b != nil {
		return b.TrackInfo()
	}
	return nil, nil
}

// Length returns the current track length, zero when idle or unknown.
func (r *Registry) Length() time.Duration {
	if b := r.currentBackend(); b != nil {
		if length, err := b.Length(); err == nil {
			return length
		}
	}
	return 0
}

// Position returns the current playback position, zero when idle.
func (r *Registry) Position() time.Duration {
	if b := r.currentBackend(); b != nil {
		if pos, err := b.Position(); err == nil {
			return pos
		}
	}
	return 0
}

// LowerVolume ducks the selected backend once; repeated ducks are no-ops
// until RestoreVolume.
func (r *Registry) LowerVolume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.volumeIsLow || r.current == nil {
		return nil
	}
	if err := r.current.backend.LowerVolume(); err != nil {
		return err
	}
	r.volumeIsLow = true
	return nil
}

// RestoreVolume undoes LowerVolume once.
func (r *Registry) RestoreVolume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.volumeIsLow {
		return nil
	}
	r.volumeIsLow = false
	if r.current == nil {
		return nil
	}
	return r.current.backend.RestoreVolume()
}

func (r *Registry) currentBackend() Backend {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	return r.current.backend
}

// Shutdown stops and shuts down every backend. Per-backend errors are
// logged, never propagated; the loop always completes.
func (r *Registry) Shutdown() {
	r.DetachBus()

	r.mu.Lock()
	services := r.services
	r.current = nil
	r.pendingLoad = false
	r.mu.Unlock()

	for _, s := range services {
		if err := s.backend.Stop(); err != nil {
			logging.Warn().
				Str("component", r.component()).
				Str("player", s.name).
				Err(err).
				Msg("backend stop on shutdown failed")
		}
		if err := s.backend.Shutdown(); err != nil {
			logging.Warn().
				Str("component", r.component()).
				Str("player", s.name).
				Err(err).
				Msg("backend shutdown failed")
		}
	}
}
