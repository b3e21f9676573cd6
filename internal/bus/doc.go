// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

// Package bus implements the message bus every ocpd component speaks over.
//
// A message is a typed JSON envelope: a dotted type string
// ("ovos.common_play.play"), a data object, and a routing context. Replies
// are messages whose type is the request type plus ".response". Handlers
// subscribe by exact type.
//
// Two transports back the Conn interface, both built on Watermill:
//
//   - in-process: a gochannel pub/sub, the default for single-binary
//     deployments and the transport every test uses
//   - NATS: core NATS subjects (subject = message type) for multi-process
//     voice stacks, optionally with an embedded NATS server
//
// The transports broadcast: every subscriber of a type sees every message
// of that type. There are no queue groups and no persistence; the bus is
// live coordination state, not a log.
package bus
