// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package catalog

import (
	"context"
	"time"

	"github.com/commonplay/ocpd/internal/logging"
)

// Janitor is the supervised maintenance loop of the catalog store: it runs
// badger value-log garbage collection on a fixed interval.
type Janitor struct {
	store    *Store
	interval time.Duration
}

// NewJanitor builds a janitor for the given store. A zero interval defaults
// to one hour.
func NewJanitor(store *Store, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{store: store, interval: interval}
}

// Serve implements suture.Service.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.store.RunGC(); err != nil {
				logging.Warn().Str("component", "catalog").Err(err).Msg("store GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (j *Janitor) String() string {
	return "catalog-janitor"
}
