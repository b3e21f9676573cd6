// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package bus

import (
	"context"
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/commonplay/ocpd/internal/logging"
)

// NATSConfig configures the NATS bus transport.
type NATSConfig struct {
	// URL of the NATS server, e.g. "nats://127.0.0.1:4222".
	URL string

	// MaxReconnects before the client gives up. -1 retries forever.
	MaxReconnects int

	// ReconnectWait between reconnect attempts.
	ReconnectWait time.Duration

	// BreakerTrips is the consecutive publish failure count that opens the
	// publish circuit breaker. 0 disables the breaker.
	BreakerTrips uint32
}

// DefaultNATSConfig returns production defaults for the NATS transport.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		BreakerTrips:  5,
	}
}

// NewNATS creates a bus connection over core NATS subjects. Message types
// map directly to subjects; JetStream is disabled because the bus carries
// live coordination state, not a replayable log.
func NewNATS(cfg NATSConfig) (Conn, error) {
	logger := logging.NewWatermillAdapter()

	natsOpts := []natsgo.Option{
		natsgo.Name("ocpd"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Str("component", "bus").Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("component", "bus").Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			evt := logging.Error().Str("component", "bus").Err(err)
			if sub != nil {
				evt = evt.Str("subject", sub.Subject)
			}
			evt.Msg("NATS error")
		}),
	}

	marshaler := &wmNats.NATSMarshaler{}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   marshaler,
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Unmarshaler: marshaler,
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	var publisher message.Publisher = pub
	if cfg.BreakerTrips > 0 {
		publisher = newBreakerPublisher(pub, cfg.BreakerTrips)
	}

	return newConn(publisher, sub, false), nil
}

// breakerPublisher wraps a publisher with a circuit breaker so a dead
// broker fails fast instead of stacking up blocked emitters.
type breakerPublisher struct {
	inner   message.Publisher
	breaker *gobreaker.CircuitBreaker[any]
}

func newBreakerPublisher(inner message.Publisher, trips uint32) *breakerPublisher {
	settings := gobreaker.Settings{
		Name:        "bus-publish",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("component", "bus").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publish circuit breaker state changed")
		},
	}
	return &breakerPublisher{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Publish sends through the breaker.
func (p *breakerPublisher) Publish(topic string, messages ...*message.Message) error {
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.inner.Publish(topic, messages...)
	})
	return err
}

// Close closes the wrapped publisher.
func (p *breakerPublisher) Close() error {
	return p.inner.Close()
}

// EmbeddedServer runs a NATS server inside the daemon for standalone
// deployments where no external broker exists.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// StartEmbeddedServer starts an in-process core NATS server and waits for
// it to accept connections.
func StartEmbeddedServer(host string, port int) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "ocpd-bus",
		Host:       host,
		Port:       port,
		// Plugins and GUI processes connect over TCP.
		DontListen: false,
		JetStream:  false,
		NoLog:      false,
		MaxPayload: 8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string { return s.clientURL }

// Running reports whether the server accepts connections.
func (s *EmbeddedServer) Running() bool { return s.server.Running() }

// Shutdown stops the server, waiting for completion or ctx cancellation.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
