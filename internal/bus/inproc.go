// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package bus

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/commonplay/ocpd/internal/logging"
)

// inprocBuffer is the per-subscriber channel depth. A slow handler buffers
// this many messages before publishers block on it.
const inprocBuffer = 256

// NewInProc creates an in-process bus connection backed by a watermill
// gochannel pub/sub. Messages reach only subscriptions registered at emit
// time; there is no persistence.
func NewInProc() Conn {
	ps := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            inprocBuffer,
			BlockPublishUntilSubscriberAck: false,
		},
		logging.NewWatermillAdapter(),
	)
	return newConn(ps, ps, true)
}
