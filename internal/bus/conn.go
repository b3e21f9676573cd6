// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/commonplay/ocpd/internal/logging"
)

// ErrNoResponse is returned by WaitForResponse when no reply arrives in time.
var ErrNoResponse = errors.New("no response on bus")

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("bus connection closed")

// Handler processes one bus message. Handlers for the same subscription run
// sequentially; handlers of different subscriptions run concurrently.
type Handler func(*Message)

// Subscription identifies one registered handler for removal.
type Subscription struct {
	msgType string
	cancel  context.CancelFunc
}

// Type returns the message type the subscription listens on.
func (s *Subscription) Type() string { return s.msgType }

// Conn is a connection to the message bus.
type Conn interface {
	// Emit publishes a message.
	Emit(m *Message) error

	// On registers a handler for an exact message type.
	On(msgType string, h Handler) (*Subscription, error)

	// Once registers a handler removed after its first invocation.
	Once(msgType string, h Handler) (*Subscription, error)

	// Remove unregisters a subscription. Safe to call twice.
	Remove(sub *Subscription)

	// WaitForResponse emits m and waits for the first <type>.response
	// message, up to the given timeout.
	WaitForResponse(ctx context.Context, m *Message, timeout time.Duration) (*Message, error)

	// Close tears down all subscriptions and the transport.
	Close() error
}

// conn implements Conn over any watermill publisher/subscriber pair.
type conn struct {
	pub message.Publisher
	sub message.Subscriber

	// shared marks transports where pub and sub are one object (gochannel),
	// which must only be closed once.
	shared bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	observe func(direction, msgType string)
}

// newConn wires a Conn over the given transport pair.
func newConn(pub message.Publisher, sub message.Subscriber, shared bool) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{pub: pub, sub: sub, shared: shared, ctx: ctx, cancel: cancel}
}

// SetObserver installs a callback invoked for every message in ("in") and
// out ("out") of this connection, for metrics.
func (c *conn) SetObserver(f func(direction, msgType string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observe = f
}

func (c *conn) observed(direction, msgType string) {
	c.mu.Lock()
	f := c.observe
	c.mu.Unlock()
	if f != nil {
		f(direction, msgType)
	}
}

// Emit publishes m on the topic named by its type.
func (c *conn) Emit(m *Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	payload, err := m.Encode()
	if err != nil {
		return fmt.Errorf("emit %s: %w", m.Type, err)
	}

	wm := message.NewMessage(uuid.NewString(), payload)
	wm.Metadata.Set("message_type", m.Type)

	if err := c.pub.Publish(m.Type, wm); err != nil {
		return fmt.Errorf("emit %s: %w", m.Type, err)
	}
	c.observed("out", m.Type)
	return nil
}

// On subscribes h to msgType.
func (c *conn) On(msgType string, h Handler) (*Subscription, error) {
	return c.subscribe(msgType, h, false)
}

// Once subscribes h to msgType for a single invocation.
func (c *conn) Once(msgType string, h Handler) (*Subscription, error) {
	return c.subscribe(msgType, h, true)
}

func (c *conn) subscribe(msgType string, h Handler, once bool) (*Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	subCtx, cancel := context.WithCancel(c.ctx)
	ch, err := c.sub.Subscribe(subCtx, msgType)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", msgType, err)
	}

	sub := &Subscription{msgType: msgType, cancel: cancel}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for wm := range ch {
			m, err := Decode(wm.Payload)
			if err != nil {
				logging.Warn().
					Str("component", "bus").
					Str("topic", msgType).
					Err(err).
					Msg("dropping undecodable message")
				wm.Ack()
				continue
			}
			c.observed("in", m.Type)
			dispatch(h, m)
			wm.Ack()
			if once {
				cancel()
				return
			}
		}
	}()

	return sub, nil
}

// dispatch runs a handler with panic isolation: a panicking handler must
// not take down the bus loop.
func dispatch(h Handler, m *Message) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("component", "bus").
				Str("type", m.Type).
				Interface("panic", r).
				Msg("handler panicked")
		}
	}()
	h(m)
}

// Remove cancels the subscription.
func (c *conn) Remove(sub *Subscription) {
	if sub != nil {
		sub.cancel()
	}
}

// WaitForResponse emits m and returns the first <m.Type>.response received.
// The response subscription is registered before emitting so a fast
// responder cannot win the race.
func (c *conn) WaitForResponse(ctx context.Context, m *Message, timeout time.Duration) (*Message, error) {
	replyType := ResponseType(m.Type)

	subCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	ch, err := c.sub.Subscribe(subCtx, replyType)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", replyType, err)
	}

	if err := c.Emit(m); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case wm, ok := <-ch:
			if !ok {
				return nil, ErrClosed
			}
			reply, err := Decode(wm.Payload)
			wm.Ack()
			if err != nil {
				continue
			}
			c.observed("in", reply.Type)
			return reply, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("%w: %s after %s", ErrNoResponse, m.Type, timeout)
		}
	}
}

// Close cancels every subscription and closes the transport.
func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	var errs []error
	if err := c.pub.Close(); err != nil {
		errs = append(errs, err)
	}
	if !c.shared {
		if err := c.sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
