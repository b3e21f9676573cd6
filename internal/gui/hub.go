// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package gui

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/metrics"
)

// Hub fans player events out to connected GUI clients. One goroutine owns
// the client set; registration and broadcast go through channels.
type Hub struct {
	metrics *metrics.Metrics

	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	upgrader websocket.Upgrader
}

// NewHub builds the hub. metrics may be nil in tests.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		metrics:    m,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The ops listener binds loopback by default and the GUI
			// protocol carries no credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve runs the hub loop until ctx is canceled. Client lifecycle events
// take priority over broadcasts so the client set is settled before a
// message fans out. Implements the supervision tree service contract.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			continue
		case client := <-h.unregister:
			h.dropClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.dropClient(client)
		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

// String names the service in supervisor logs.
func (h *Hub) String() string {
	return "gui-hub"
}

// Notify queues an event for all clients. A full queue drops the event
// rather than blocking the player.
func (h *Hub) Notify(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		logging.Warn().Str("component", "gui").Str("event", ev.Type).Msg("broadcast queue full, event dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WebsocketClients.Set(float64(n))
	}
	logging.Info().Str("component", "gui").Int("clients", n).Msg("gui client connected")
}

func (h *Hub) dropClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WebsocketClients.Set(float64(n))
	}
	logging.Info().Str("component", "gui").Int("clients", n).Msg("gui client disconnected")
}

// fanOut delivers an event to every client in id order. A client whose
// send buffer is full gets dropped; a stuck GUI must not stall the rest.
func (h *Hub) fanOut(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		select {
		case c.send <- ev:
		default:
			logging.Warn().Str("component", "gui").Uint64("client", c.id).Msg("client send buffer full, dropping client")
			close(c.send)
			delete(h.clients, c)
		}
	}
	if h.metrics != nil {
		h.metrics.WebsocketClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WebsocketClients.Set(0)
	}
	logging.Info().Str("component", "gui").Int("clients_closed", n).Msg("gui hub stopped")
}

// ServeWS upgrades an HTTP request into a GUI client connection. Mounted
// on GET /ws by the ops router.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Str("component", "gui").Err(err).Msg("websocket upgrade failed")
		return
	}
	client := newClient(h, conn)
	h.register <- client
	client.start()
}
