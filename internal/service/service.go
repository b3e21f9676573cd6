// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package service

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/commonplay/ocpd/internal/backends"
	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/catalog"
	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/gui"
	"github.com/commonplay/ocpd/internal/httpapi"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
	"github.com/commonplay/ocpd/internal/metrics"
	"github.com/commonplay/ocpd/internal/mpris"
	"github.com/commonplay/ocpd/internal/player"
	"github.com/commonplay/ocpd/internal/supervisor"
)

const (
	embeddedShutdownTimeout = 5 * time.Second
	janitorInterval         = time.Hour
)

// Service owns the whole daemon: it builds every component in dependency
// order, runs the supervision tree, and tears everything down again in
// reverse order on shutdown.
type Service struct {
	cfg      *config.Config
	conn     bus.Conn
	status   *ProcessStatus
	metrics  *metrics.Metrics
	embedded *bus.EmbeddedServer

	store   *catalog.Store
	catalog *catalog.Catalog

	registries map[media.Family]*backends.Registry
	player     *player.Player
	bridge     *mpris.Bridge
	export     *mpris.Export
	hub        *gui.Hub
	http       *httpapi.Server

	tree *supervisor.SupervisorTree
}

// New builds the daemon. Components come up in dependency order: bus,
// catalog, backend registries, player, MPRIS bridge, GUI hub, HTTP. Any
// failure tears down what was already built and reports ERROR through the
// hooks.
func New(cfg *config.Config, hooks Hooks) (*Service, error) {
	s := &Service{cfg: cfg, metrics: metrics.New()}

	if err := s.build(hooks); err != nil {
		if s.status != nil {
			s.status.SetError(err)
		} else if hooks.OnError != nil {
			hooks.OnError(err)
		}
		s.teardown()
		return nil, err
	}
	return s, nil
}

func (s *Service) build(hooks Hooks) error {
	conn, embedded, err := connectBus(s.cfg.Bus)
	if err != nil {
		return fmt.Errorf("connect bus: %w", err)
	}
	s.conn = conn
	s.embedded = embedded

	s.status = NewProcessStatus(conn, hooks)
	if err := s.status.Attach(); err != nil {
		return fmt.Errorf("attach status handlers: %w", err)
	}
	s.status.SetAlive()

	store, err := catalog.OpenStore(s.cfg.ExpandedDataDir())
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	s.store = store

	liked, err := catalog.LoadLikedSongs(s.cfg.ExpandedDataDir())
	if err != nil {
		return fmt.Errorf("load liked songs: %w", err)
	}

	s.catalog = catalog.New(conn, store, liked, s.metrics)
	if err := s.catalog.Attach(); err != nil {
		return fmt.Errorf("attach catalog handlers: %w", err)
	}

	s.registries = make(map[media.Family]*backends.Registry, 3)
	for _, family := range []media.Family{media.FamilyAudio, media.FamilyVideo, media.FamilyWeb} {
		s.registries[family] = backends.NewRegistry(family, conn, s.cfg.Media, s.metrics)
	}

	s.bridge = mpris.NewBridge(s.cfg, s.metrics)
	s.player = player.New(conn, s.cfg, s.catalog, s.registries, s.bridge, s.metrics)
	s.bridge.Bind(s.player)
	if err := s.player.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}

	s.hub = gui.NewHub(s.metrics)
	s.hub.Attach(s.player)

	s.export = mpris.NewExport(conn, s.player, s.cfg)

	if s.cfg.HTTP.Enabled {
		s.http = httpapi.NewServer(s.cfg, conn, s.player, s.hub, s.metrics, s.status.IsReady)
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("build supervisor tree: %w", err)
	}
	tree.AddPlaybackService(s.player)
	for _, reg := range s.registries {
		tree.AddPlaybackService(reg)
	}
	tree.AddPlaybackService(catalog.NewJanitor(store, janitorInterval))
	if !s.cfg.OCP.DisableMPRIS {
		tree.AddBridgeService(s.bridge)
		tree.AddBridgeService(s.export)
	}
	tree.AddGatewayService(s.hub)
	if s.http != nil {
		tree.AddGatewayService(s.http)
	}
	s.tree = tree
	return nil
}

// connectBus builds the configured transport, starting an embedded NATS
// server first when asked to.
func connectBus(cfg config.BusConfig) (bus.Conn, *bus.EmbeddedServer, error) {
	if cfg.Transport != "nats" {
		return bus.NewInProc(), nil, nil
	}

	var embedded *bus.EmbeddedServer
	url := cfg.NATSURL
	if cfg.Embedded {
		srv, err := bus.StartEmbeddedServer("127.0.0.1", 4222)
		if err != nil {
			return nil, nil, err
		}
		embedded = srv
		url = srv.ClientURL()
	}

	conn, err := bus.NewNATS(bus.DefaultNATSConfig(url))
	if err != nil {
		if embedded != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), embeddedShutdownTimeout)
			defer cancel()
			_ = embedded.Shutdown(shutdownCtx)
		}
		return nil, nil, err
	}
	return conn, embedded, nil
}

// Status exposes the lifecycle tracker.
func (s *Service) Status() *ProcessStatus {
	return s.status
}

// Player exposes the player, mainly for tests.
func (s *Service) Player() *player.Player {
	return s.player
}

// Run starts the supervision tree and blocks until ctx is canceled or
// SIGINT/SIGTERM arrives, then shuts everything down in reverse order.
func (s *Service) Run(ctx context.Context) error {
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := s.tree.ServeBackground(runCtx)
	s.status.SetReady()
	logging.Info().Str("component", "service").Msg("daemon ready")

	var treeErr error
	select {
	case <-runCtx.Done():
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	stop()

	s.status.SetStopping()
	s.teardown()

	if treeErr != nil && runCtx.Err() != nil {
		// Shutdown was requested; the canceled-context error is expected.
		return nil
	}
	return treeErr
}

// teardown releases resources in reverse construction order. Every step is
// nil-safe so it can run after a partial build.
func (s *Service) teardown() {
	if s.player != nil {
		s.player.Shutdown()
	}
	for _, reg := range s.registries {
		reg.DetachBus()
	}
	if s.catalog != nil {
		s.catalog.Detach()
	}
	if s.status != nil {
		s.status.Detach()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logging.Warn().Str("component", "service").Err(err).Msg("store close failed")
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			logging.Warn().Str("component", "service").Err(err).Msg("bus close failed")
		}
	}
	if s.embedded != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), embeddedShutdownTimeout)
		_ = s.embedded.Shutdown(shutdownCtx)
		cancel()
	}
}
