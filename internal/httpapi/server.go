// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/config"
	"github.com/commonplay/ocpd/internal/gui"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/metrics"
	"github.com/commonplay/ocpd/internal/player"
)

const shutdownTimeout = 10 * time.Second

// Server is the operational HTTP surface: health, metrics, player status
// and the GUI websocket. It binds loopback by default and carries no auth.
type Server struct {
	cfg      *config.Config
	conn     bus.Conn
	player   *player.Player
	hub      *gui.Hub
	metrics  *metrics.Metrics
	ready    func() bool
	validate *validator.Validate
	handler  http.Handler
}

// NewServer wires the router. ready gates /readyz; nil means always ready.
func NewServer(cfg *config.Config, conn bus.Conn, p *player.Player, hub *gui.Hub, m *metrics.Metrics, ready func() bool) *Server {
	s := &Server{
		cfg:      cfg,
		conn:     conn,
		player:   p,
		hub:      hub,
		metrics:  m,
		ready:    ready,
		validate: validator.New(),
	}
	s.handler = s.router()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logRequests)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	if s.cfg.HTTP.RateLimitRPS > 0 {
		r.Use(httprate.LimitByIP(s.cfg.HTTP.RateLimitRPS, time.Second))
	}
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/playlist", s.handlePlaylist)
		r.Post("/play", s.handlePlay)
	})

	if s.hub != nil {
		r.Get("/ws", s.hub.ServeWS)
	}
	return r
}

// Serve runs the listener until ctx is canceled, then drains connections.
// Implements the supervision tree service contract.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logging.Info().Str("component", "http").Str("listen", s.cfg.HTTP.Listen).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Str("component", "http").Err(err).Msg("shutdown incomplete, closing")
			_ = srv.Close()
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string {
	return "http"
}

// logRequests writes one structured line per request.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("component", "http").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
