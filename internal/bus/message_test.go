// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package bus

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestMessageEncodeDecode(t *testing.T) {
	m := New(TypePlay, map[string]any{"uri": "file:///a.mp3"})
	m.Context.Source = "audio"

	b, err := m.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	back, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Type != TypePlay {
		t.Errorf("type = %q, want %q", back.Type, TypePlay)
	}
	if back.Context.Source != "audio" {
		t.Errorf("source = %q, want audio", back.Context.Source)
	}

	var data struct {
		URI string `json:"uri"`
	}
	if err := back.DecodeData(&data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.URI != "file:///a.mp3" {
		t.Errorf("uri = %q", data.URI)
	}
}

func TestDecodeRejectsMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"data":{}}`)); err == nil {
		t.Error("Decode accepted message without type")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("Decode accepted invalid JSON")
	}
}

func TestContextDestinationForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "string destination",
			raw:  `{"type":"x","data":{},"context":{"destination":"audio"}}`,
			want: []string{"audio"},
		},
		{
			name: "array destination",
			raw:  `{"type":"x","data":{},"context":{"destination":["audio","gui"]}}`,
			want: []string{"audio", "gui"},
		},
		{
			name: "absent destination",
			raw:  `{"type":"x","data":{},"context":{}}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(m.Context.Destination) != len(tt.want) {
				t.Fatalf("destination = %v, want %v", m.Context.Destination, tt.want)
			}
			for i := range tt.want {
				if m.Context.Destination[i] != tt.want[i] {
					t.Errorf("destination[%d] = %q, want %q", i, m.Context.Destination[i], tt.want[i])
				}
			}
		})
	}
}

func TestContextPreservesUnknownKeys(t *testing.T) {
	raw := `{"type":"x","data":{},"context":{"source":"s","lang":"en-us","ident":42}}`

	m, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	out, err := m.Response(nil).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"lang":"en-us"`) {
		t.Errorf("reply lost unknown context key lang: %s", s)
	}
	if !strings.Contains(s, `"ident":42`) {
		t.Errorf("reply lost unknown context key ident: %s", s)
	}
	if !strings.Contains(s, `"source":"s"`) {
		t.Errorf("reply lost source: %s", s)
	}
}

func TestResponseTypeAndContext(t *testing.T) {
	m := New(TypeStop, nil)
	m.Context.Source = "cli"
	m.Context.Destination = []string{"audio"}

	r := m.Response(map[string]bool{"stopped": true})

	if r.Type != "ovos.common_play.stop.response" {
		t.Errorf("reply type = %q", r.Type)
	}
	if r.Context.Source != "cli" || len(r.Context.Destination) != 1 {
		t.Errorf("reply context not carried: %+v", r.Context)
	}
}

func TestForward(t *testing.T) {
	m := New(TypePause, json.RawMessage(`{"k":1}`))
	m.Context.SkillID = "skill-x"

	f := m.Forward(SkillType("skill-x", "pause"))

	if f.Type != "ovos.common_play.skill-x.pause" {
		t.Errorf("forward type = %q", f.Type)
	}
	if string(f.Data) != `{"k":1}` {
		t.Errorf("forward data = %s", f.Data)
	}
	if f.Context.SkillID != "skill-x" {
		t.Errorf("forward context lost: %+v", f.Context)
	}
}

func TestValidateContext(t *testing.T) {
	native := []string{"debug_cli", "audio"}

	tests := []struct {
		name        string
		destination []string
		want        bool
	}{
		{name: "no destination is native", destination: nil, want: true},
		{name: "native destination", destination: []string{"audio"}, want: true},
		{name: "one of many native", destination: []string{"remote", "debug_cli"}, want: true},
		{name: "foreign destination", destination: []string{"remote-tv"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("x", nil)
			m.Context.Destination = tt.destination
			if got := ValidateContext(m, native); got != tt.want {
				t.Errorf("ValidateContext(%v) = %v, want %v", tt.destination, got, tt.want)
			}
		})
	}
}

func TestTypeHelpers(t *testing.T) {
	if got := ResponseType(TypeTrackInfo); got != "ovos.common_play.track_info.response" {
		t.Errorf("ResponseType = %q", got)
	}
	if got := SkillType("skill-news.openvoiceos", "play"); got != "ovos.common_play.skill-news.openvoiceos.play" {
		t.Errorf("SkillType = %q", got)
	}
}

func TestNilDataEncodesAsEmptyObject(t *testing.T) {
	b, err := New("x", nil).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(b), `"data":{}`) {
		t.Errorf("nil data should encode as {}: %s", b)
	}
}
