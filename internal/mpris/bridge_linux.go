// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

//go:build linux

package mpris

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/metrics"
)

// discoverInterval is how often the bridge rescans the bus for players
// appearing or going away.
const discoverInterval = time.Second

// breakerTrips is how many consecutive failed D-Bus calls a player gets
// before it is treated as lost.
const breakerTrips = 3

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

// externalPlayer is one tracked MPRIS peer.
type externalPlayer struct {
	busName  string
	owner    string // unique bus name, the sender on its signals
	identity string
	status   string // MPRIS PlaybackStatus string
	entry    media.MediaEntry
	breaker  *gobreaker.CircuitBreaker[any]
}

// Bridge watches MPRIS players on the session or system bus, mirrors the
// main one into the coordinator, and carries the coordinator's transport
// commands back out as D-Bus calls.
type Bridge struct {
	cfg     *config.Config
	metrics *metrics.Metrics

	mu      sync.Mutex
	coord   Coordinator
	conn    *dbus.Conn
	players map[string]*externalPlayer // by well-known name
	owners  map[string]string          // unique name -> well-known name
	main    string
}

// NewBridge builds an unconnected bridge. Bind must be called before Serve.
func NewBridge(cfg *config.Config, m *metrics.Metrics) *Bridge {
	return &Bridge{
		cfg:     cfg,
		metrics: m,
		players: make(map[string]*externalPlayer),
		owners:  make(map[string]string),
	}
}

// Bind attaches the playback coordinator. Separate from the constructor
// because the player is built with the bridge as a dependency.
func (b *Bridge) Bind(c Coordinator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coord = c
}

func connectBus(dbusType string) (*dbus.Conn, error) {
	if dbusType == "system" {
		return dbus.ConnectSystemBus()
	}
	return dbus.ConnectSessionBus()
}

// Serve runs the discovery loop and signal pump until ctx is canceled.
// Implements the supervision tree service contract.
func (b *Bridge) Serve(ctx context.Context) error {
	conn, err := connectBus(b.cfg.Media.DBusType)
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(dbusPropsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("dbus match: %w", err)
	}

	signals := make(chan *dbus.Signal, 32)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.conn = nil
		b.players = make(map[string]*externalPlayer)
		b.owners = make(map[string]string)
		b.main = ""
		b.mu.Unlock()
	}()

	logging.Info().
		Str("component", "mpris").
		Str("bus", b.cfg.Media.DBusType).
		Msg("external player discovery started")

	ticker := time.NewTicker(discoverInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.scan(conn)
		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("dbus signal channel closed: %w", media.ErrBridgeFatal)
			}
			b.handleSignal(sig)
		}
	}
}

// String names the service in supervisor logs.
func (b *Bridge) String() string {
	return "mpris-bridge"
}

// scan reconciles the tracked player set against the names currently on
// the bus.
func (b *Bridge) scan(conn *dbus.Conn) {
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		logging.Warn().Str("component", "mpris").Err(err).Msg("ListNames failed")
		return
	}

	seen := make(map[string]bool)
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) || ignoredName(name) {
			continue
		}
		seen[name] = true
		b.mu.Lock()
		_, known := b.players[name]
		b.mu.Unlock()
		if !known {
			b.addPlayer(conn, name)
		}
	}

	b.mu.Lock()
	var lost []string
	for name := range b.players {
		if !seen[name] {
			lost = append(lost, name)
		}
	}
	b.mu.Unlock()
	for _, name := range lost {
		b.lostPlayer(name)
	}
}

// addPlayer registers a newly appeared peer and pulls its initial state. A
// peer that is already playing takes over immediately.
func (b *Bridge) addPlayer(conn *dbus.Conn, name string) {
	var owner string
	if err := conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner); err != nil {
		logging.Debug().Str("component", "mpris").Str("player", name).Err(err).Msg("owner lookup failed")
		return
	}

	obj := conn.Object(name, mprisPath)
	identity := name
	if v, err := obj.GetProperty(mprisRootIface + ".Identity"); err == nil {
		if s := variantString(v); s != "" {
			identity = s
		}
	}

	p := &externalPlayer{
		busName:  name,
		owner:    owner,
		identity: identity,
		status:   "Stopped",
	}
	p.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.lostPlayer(name)
			}
		},
	})

	if v, err := obj.GetProperty(mprisPlayerIface + ".Metadata"); err == nil {
		if md, ok := v.Value().(map[string]dbus.Variant); ok {
			p.entry = decodeMetadata(md, identity)
		}
	}

	b.mu.Lock()
	b.players[name] = p
	b.owners[owner] = name
	b.mu.Unlock()
	logging.Info().
		Str("component", "mpris").
		Str("player", name).
		Str("identity", identity).
		Msg("external player appeared")

	if v, err := obj.GetProperty(mprisPlayerIface + ".PlaybackStatus"); err == nil {
		b.applyStatus(p, variantString(v))
	}
}

// lostPlayer drops a peer, clearing external playback when it was the main
// player.
func (b *Bridge) lostPlayer(name string) {
	b.mu.Lock()
	p, ok := b.players[name]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.players, name)
	delete(b.owners, p.owner)
	wasMain := b.main == name
	if wasMain {
		b.main = ""
	}
	coord := b.coord
	b.mu.Unlock()

	logging.Info().Str("component", "mpris").Str("player", name).Msg("external player lost")
	if wasMain && coord != nil {
		coord.ClearExternal()
	}
}

// handleSignal processes a PropertiesChanged signal from a tracked peer.
func (b *Bridge) handleSignal(sig *dbus.Signal) {
	if sig.Name != dbusPropsIface+".PropertiesChanged" || len(sig.Body) < 2 {
		return
	}
	iface, _ := sig.Body[0].(string)
	if iface != mprisPlayerIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	b.mu.Lock()
	name := b.owners[sig.Sender]
	p := b.players[name]
	coord := b.coord
	b.mu.Unlock()
	if p == nil {
		return
	}

	// Metadata before status so a takeover carries the fresh entry.
	if v, ok := changed["Metadata"]; ok {
		if md, ok := v.Value().(map[string]dbus.Variant); ok {
			b.applyMetadata(p, decodeMetadata(md, p.identity))
		}
	}
	if v, ok := changed["PlaybackStatus"]; ok {
		b.applyStatus(p, variantString(v))
	}
	if coord != nil && b.cfg.OCP.ManageExternalPlayers {
		if v, ok := changed["Shuffle"]; ok {
			if on, ok := v.Value().(bool); ok {
				coord.SetShuffle(on)
			}
		}
		if v, ok := changed["LoopStatus"]; ok {
			coord.SetLoop(loopFromMPRIS(variantString(v)))
		}
	}
}

// applyStatus mirrors a peer's transport state. A peer starting to play
// becomes the main player and takes over the coordinator.
func (b *Bridge) applyStatus(p *externalPlayer, status string) {
	b.mu.Lock()
	p.status = status
	wasMain := b.main == p.busName
	if status == "Playing" {
		b.main = p.busName
	} else if status == "Stopped" && wasMain {
		b.main = ""
	}
	entry := p.entry
	coord := b.coord
	b.mu.Unlock()
	if coord == nil {
		return
	}

	switch status {
	case "Playing":
		if wasMain {
			coord.SyncExternalState(media.PlayerPlaying)
			return
		}
		if entry.IsEmpty() {
			entry = decodeMetadata(nil, p.identity)
		}
		coord.HandleMPRISTakeover(entry)
	case "Paused":
		if wasMain {
			coord.SyncExternalState(media.PlayerPaused)
		}
	case "Stopped":
		if wasMain {
			coord.ClearExternal()
		}
	}
}

// applyMetadata caches a peer's entry and mirrors it when the peer is (or
// becomes) the main player.
func (b *Bridge) applyMetadata(p *externalPlayer, entry media.MediaEntry) {
	b.mu.Lock()
	p.entry = entry
	isMain := b.main == p.busName
	playing := p.status == "Playing"
	noMain := b.main == ""
	if noMain && playing {
		b.main = p.busName
	}
	coord := b.coord
	b.mu.Unlock()
	if coord == nil {
		return
	}

	switch {
	case noMain && playing:
		coord.HandleMPRISTakeover(entry)
	case isMain:
		coord.SyncExternalMetadata(entry)
	}
}

// call invokes one MPRIS transport method on a peer through its breaker.
// A tripped breaker means the peer stopped answering and has been dropped.
func (b *Bridge) call(p *externalPlayer, method string) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bridge not connected: %w", media.ErrBridgeTransient)
	}

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, conn.Object(p.busName, mprisPath).Call(mprisPlayerIface+"."+method, 0).Err
	})
	if err == nil {
		return nil
	}
	if b.metrics != nil {
		b.metrics.BridgeFailures.WithLabelValues(p.busName).Inc()
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%s unresponsive: %w", p.busName, media.ErrBridgeFatal)
	}
	logging.Warn().
		Str("component", "mpris").
		Str("player", p.busName).
		Str("method", method).
		Err(err).
		Msg("dbus call failed")
	return fmt.Errorf("%s %s: %w", p.busName, method, media.ErrBridgeTransient)
}

func (b *Bridge) mainPlayer() *externalPlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.players[b.main]
}

func (b *Bridge) callMain(method string) error {
	p := b.mainPlayer()
	if p == nil {
		return nil
	}
	return b.call(p, method)
}

// StopCurrent stops the main external player.
func (b *Bridge) StopCurrent() error { return b.callMain("Stop") }

// PauseCurrent pauses the main external player.
func (b *Bridge) PauseCurrent() error { return b.callMain("Pause") }

// PlayCurrent starts or resumes the main external player.
func (b *Bridge) PlayCurrent() error { return b.callMain("Play") }

// Next skips the main external player forward.
func (b *Bridge) Next() error { return b.callMain("Next") }

// Previous skips the main external player back.
func (b *Bridge) Previous() error { return b.callMain("Previous") }

// Active reports whether an external player is tracked as the main player.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.main != ""
}

// PauseAll pauses every playing external player. Used in manage mode when
// OCP starts its own rendering.
func (b *Bridge) PauseAll() error {
	b.mu.Lock()
	var playing []*externalPlayer
	for _, p := range b.players {
		if p.status == "Playing" {
			playing = append(playing, p)
		}
	}
	b.mu.Unlock()

	var firstErr error
	for _, p := range playing {
		if err := b.call(p, "Pause"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
