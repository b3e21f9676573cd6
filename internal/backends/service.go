// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package backends

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/commonplay/ocpd/internal/bus"
	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
)

// AttachBus registers the family's service handler surface
// (ovos.<family>.service.*). Every handler is source-gated: messages whose
// destination does not intersect the configured native sources are ignored,
// so one bus shared between hosts cannot cross-trigger playback.
func (r *Registry) AttachBus() error {
	handlers := map[string]bus.Handler{
		"play":               r.handlePlay,
		"pause":              r.handlePause,
		"resume":             r.handleResume,
		"stop":               r.handleStop,
		"track_info":         r.handleTrackInfo,
		"list_backends":      r.handleListBackends,
		"set_track_position": r.handleSetTrackPosition,
		"get_track_position": r.handleGetTrackPosition,
		"get_track_length":   r.handleGetTrackLength,
		"seek_forward":       r.handleSeekForward,
		"seek_backward":      r.handleSeekBackward,
		"duck":               r.handleDuck,
		"unduck":             r.handleUnduck,
	}
	for op, h := range handlers {
		sub, err := r.conn.On(bus.FamilyType(r.family, op), r.gated(h))
		if err != nil {
			return err
		}
		r.subs = append(r.subs, sub)
	}
	return nil
}

// DetachBus removes the service handlers.
func (r *Registry) DetachBus() {
	for _, sub := range r.subs {
		r.conn.Remove(sub)
	}
	r.subs = nil
}

// Serve keeps the bus surface attached while the service runs. Implements
// the supervision tree service contract; a restart re-registers the
// handlers.
func (r *Registry) Serve(ctx context.Context) error {
	if err := r.AttachBus(); err != nil {
		return err
	}
	defer r.DetachBus()
	<-ctx.Done()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (r *Registry) String() string {
	return r.component()
}

func (r *Registry) gated(h bus.Handler) bus.Handler {
	return func(msg *bus.Message) {
		if !bus.ValidateContext(msg, r.nativeSources) {
			logging.Debug().
				Str("component", r.component()).
				Str("type", msg.Type).
				Strs("destination", msg.Context.Destination).
				Msg("ignoring non-native message")
			return
		}
		h(msg)
	}
}

// playPayload is the family service play request. Tracks arrive either as
// URI strings, as [uri, mimetype] pairs, or as entry objects.
type playPayload struct {
	Tracks    []json.RawMessage `json:"tracks"`
	Utterance string            `json:"utterance"`
	Repeat    bool              `json:"repeat"`
}

func (r *Registry) handlePlay(msg *bus.Message) {
	var payload playPayload
	if err := msg.DecodeData(&payload); err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("bad play payload")
		return
	}
	if len(payload.Tracks) == 0 {
		logging.Warn().Str("component", r.component()).Msgf("play without tracks: %v", media.ErrBadMessage)
		return
	}

	uri := decodeTrackURI(payload.Tracks[0])
	if uri == "" {
		logging.Warn().Str("component", r.component()).Msgf("play with undecodable track: %v", media.ErrBadMessage)
		return
	}

	var preferred []string
	if payload.Utterance != "" {
		preferred = []string{payload.Utterance}
	}

	if err := r.Play(uri, preferred); err != nil {
		if errors.Is(err, media.ErrNoBackend) {
			return
		}
		logging.Error().Str("component", r.component()).Str("uri", uri).Err(err).Msg("play failed")
	}
}

// decodeTrackURI accepts "uri", ["uri", "mime"], and {"uri": ...} forms.
func decodeTrackURI(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var pair []string
	if err := json.Unmarshal(raw, &pair); err == nil && len(pair) > 0 {
		return pair[0]
	}
	var obj struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URI
	}
	return ""
}

func (r *Registry) handlePause(msg *bus.Message) {
	if err := r.Pause(); err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("pause failed")
	}
}

func (r *Registry) handleResume(msg *bus.Message) {
	if err := r.Resume(); err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("resume failed")
	}
}

func (r *Registry) handleStop(msg *bus.Message) {
	stopped, err := r.Stop()
	if errors.Is(err, media.ErrStaleStop) {
		return
	}
	if err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("stop failed")
	}
	if stopped {
		if err := r.conn.Emit(bus.NewWithContext(bus.TypeMycroftStopHandled, map[string]string{"by": "OCP"}, msg.Context)); err != nil {
			logging.Warn().Str("component", r.component()).Err(err).Msg("stop.handled announce failed")
		}
	}
}

func (r *Registry) handleTrackInfo(msg *bus.Message) {
	info, err := r.TrackInfo()
	if err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("track_info failed")
		return
	}
	if info == nil {
		info = map[string]any{}
	}
	r.reply(msg, info)
}

func (r *Registry) handleListBackends(msg *bus.Message) {
	r.reply(msg, map[string]any{"backends": r.Backends()})
}

func (r *Registry) handleSetTrackPosition(msg *bus.Message) {
	var payload struct {
		Position int64 `json:"position"`
	}
	if err := msg.DecodeData(&payload); err != nil {
		return
	}
	if err := r.Seek(payload.Position); err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("set_track_position failed")
	}
}

func (r *Registry) handleGetTrackPosition(msg *bus.Message) {
	r.reply(msg, map[string]int64{"position": r.Position().Milliseconds()})
}

func (r *Registry) handleGetTrackLength(msg *bus.Message) {
	r.reply(msg, map[string]int64{"length": r.Length().Milliseconds()})
}

func (r *Registry) handleSeekForward(msg *bus.Message) {
	r.seekBy(msg, 1)
}

func (r *Registry) handleSeekBackward(msg *bus.Message) {
	r.seekBy(msg, -1)
}

func (r *Registry) seekBy(msg *bus.Message, direction time.Duration) {
	var payload struct {
		Seconds float64 `json:"seconds"`
	}
	if err := msg.DecodeData(&payload); err != nil {
		return
	}
	if payload.Seconds == 0 {
		payload.Seconds = 1
	}
	offset := time.Duration(payload.Seconds*float64(time.Second)) * direction
	if err := r.SeekRelative(offset); err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("seek failed")
	}
}

func (r *Registry) handleDuck(msg *bus.Message) {
	if err := r.LowerVolume(); err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("duck failed")
	}
}

func (r *Registry) handleUnduck(msg *bus.Message) {
	if err := r.RestoreVolume(); err != nil {
		logging.Warn().Str("component", r.component()).Err(err).Msg("unduck failed")
	}
}

func (r *Registry) reply(msg *bus.Message, data any) {
	if err := r.conn.Emit(msg.Response(data)); err != nil {
		logging.Warn().
			Str("component", r.component()).
			Str("type", msg.Type).
			Err(err).
			Msg("reply failed")
	}
}
