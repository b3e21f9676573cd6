// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package media

import (
	"errors"
	"fmt"
)

// Domain error kinds. Call sites wrap these with fmt.Errorf("...: %w", err)
// and consumers branch with errors.Is.
var (
	// ErrInvalidStream marks a URI that resolved to nothing playable.
	ErrInvalidStream = errors.New("invalid stream")

	// ErrNoBackend marks a play request no configured backend can serve.
	ErrNoBackend = errors.New("no backend available")

	// ErrStaleStop marks a stop arriving within the post-play guard window.
	ErrStaleStop = errors.New("stop ignored: playback just started")

	// ErrBadMessage marks a bus payload the handler could not use.
	ErrBadMessage = errors.New("malformed bus message")

	// ErrBridgeTransient marks a recoverable external player call failure.
	ErrBridgeTransient = errors.New("external player call failed")

	// ErrBridgeFatal marks an external player given up on.
	ErrBridgeFatal = errors.New("external player unavailable")

	// ErrBackendLoadFailure marks a configured backend that failed to load.
	ErrBackendLoadFailure = errors.New("backend failed to load")

	// ErrFatal marks an unrecoverable player condition.
	ErrFatal = errors.New("fatal player error")
)

// ValidationError reports a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}
