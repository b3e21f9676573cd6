// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package backends

import (
	"context"
	"fmt"
	"time"

	"github.com/commonplay/ocpd/internal/media"
)

// busProxyBackend delegates rendering to an out-of-process plugin over its
// own bus namespace, ovos.<family>.<name>.<op>. The plugin is expected to
// answer with the standard media.state / playback_time events, which flow
// back through the registry's shared hooks.
type busProxyBackend struct {
	name    string
	family  media.Family
	schemes []string
	emit    func(msgType string, data any) error
}

func init() {
	RegisterFactory("busproxy", func(spec FactorySpec) (Backend, error) {
		if spec.Emit == nil {
			return nil, fmt.Errorf("busproxy %s: no bus emitter", spec.Name)
		}
		return &busProxyBackend{
			name:   spec.Name,
			family: spec.Family,
			// Out-of-process plugins declare broad scheme support; the
			// plugin itself rejects what it cannot render.
			schemes: []string{"file", "http", "https", "rtsp", "rtmp"},
			emit:    spec.Emit,
		}, nil
	})
}

func (b *busProxyBackend) topic(op string) string {
	return "ovos." + b.family.String() + "." + b.name + "." + op
}

func (b *busProxyBackend) send(op string, data any) error {
	if err := b.emit(b.topic(op), data); err != nil {
		return fmt.Errorf("%s %s: %w", b.name, op, err)
	}
	return nil
}

func (b *busProxyBackend) Name() string { return b.name }

func (b *busProxyBackend) SupportedURIs() []string { return b.schemes }

func (b *busProxyBackend) Load(uri string) error {
	return b.send("load_track", map[string]string{"uri": uri})
}

func (b *busProxyBackend) Play(ctx context.Context) error {
	return b.send("play", nil)
}

func (b *busProxyBackend) Stop() error {
	return b.send("stop", nil)
}

func (b *busProxyBackend) Pause() error {
	return b.send("pause", nil)
}

func (b *busProxyBackend) Resume() error {
	return b.send("resume", nil)
}

func (b *busProxyBackend) Seek(ms int64) error {
	return b.send("set_track_position", map[string]int64{"position": ms})
}

// TrackInfo is not available synchronously over the proxy; the plugin
// publishes its metadata on the play event instead.
func (b *busProxyBackend) TrackInfo() (map[string]any, error) {
	return nil, nil
}

func (b *busProxyBackend) Length() (time.Duration, error) {
	return 0, nil
}

func (b *busProxyBackend) Position() (time.Duration, error) {
	return 0, nil
}

func (b *busProxyBackend) LowerVolume() error {
	return b.send("lower_volume", nil)
}

func (b *busProxyBackend) RestoreVolume() error {
	return b.send("restore_volume", nil)
}

func (b *busProxyBackend) Shutdown() error {
	return b.send("shutdown", nil)
}
