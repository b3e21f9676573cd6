// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package media

import "testing"

func TestLoopStateCycle(t *testing.T) {
	tests := []struct {
		name string
		from LoopState
		want LoopState
	}{
		{name: "none to repeat playlist", from: LoopNone, want: LoopRepeatPlaylist},
		{name: "repeat playlist to repeat track", from: LoopRepeatPlaylist, want: LoopRepeatTrack},
		{name: "repeat track back to none", from: LoopRepeatTrack, want: LoopNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.Next(); got != tt.want {
				t.Errorf("%v.Next() = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestFamilyFor(t *testing.T) {
	tests := []struct {
		name     string
		playback PlaybackType
		want     Family
		wantOK   bool
	}{
		{name: "audio", playback: PlaybackAudio, want: FamilyAudio, wantOK: true},
		{name: "video", playback: PlaybackVideo, want: FamilyVideo, wantOK: true},
		{name: "webview", playback: PlaybackWebview, want: FamilyWeb, wantOK: true},
		{name: "skill has no family", playback: PlaybackSkill, wantOK: false},
		{name: "mpris has no family", playback: PlaybackMPRIS, wantOK: false},
		{name: "undefined has no family", playback: PlaybackUndefined, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FamilyFor(tt.playback)
			if ok != tt.wantOK {
				t.Fatalf("FamilyFor(%v) ok = %v, want %v", tt.playback, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FamilyFor(%v) = %v, want %v", tt.playback, got, tt.want)
			}
		})
	}
}

func TestFamilyString(t *testing.T) {
	if FamilyAudio.String() != "audio" || FamilyVideo.String() != "video" || FamilyWeb.String() != "web" {
		t.Error("family names must match bus namespace segments")
	}
}

func TestTrackStatePlaying(t *testing.T) {
	playing := []TrackState{TrackPlayingSkill, TrackPlayingAudio, TrackPlayingVideo, TrackPlayingMPRIS, TrackPlayingWebview}
	for _, s := range playing {
		if !s.Playing() {
			t.Errorf("%d.Playing() = false, want true", s)
		}
	}

	notPlaying := []TrackState{TrackDisambiguation, TrackQueuedSkill, TrackQueuedAudio, TrackQueuedVideo, TrackQueuedWebview}
	for _, s := range notPlaying {
		if s.Playing() {
			t.Errorf("%d.Playing() = true, want false", s)
		}
	}
}

func TestMediaTypeAdult(t *testing.T) {
	if !MediaAdult.Adult() || !MediaHentai.Adult() {
		t.Error("adult media types must report Adult() = true")
	}
	if MediaMusic.Adult() || MediaGeneric.Adult() {
		t.Error("non-adult media types must report Adult() = false")
	}
}

func TestProtocolValuesFrozen(t *testing.T) {
	// These integers are the wire protocol; a change here breaks every
	// skill and GUI client.
	tests := []struct {
		name string
		got  int
		want int
	}{
		{name: "PlayerStopped", got: int(PlayerStopped), want: 0},
		{name: "PlayerPlaying", got: int(PlayerPlaying), want: 1},
		{name: "PlayerPaused", got: int(PlayerPaused), want: 2},
		{name: "MediaStateEndOfMedia", got: int(MediaStateEndOfMedia), want: 5},
		{name: "MediaStateInvalidMedia", got: int(MediaStateInvalidMedia), want: 6},
		{name: "TrackPlayingSkill", got: int(TrackPlayingSkill), want: 20},
		{name: "TrackPlayingMPRIS", got: int(TrackPlayingMPRIS), want: 24},
		{name: "TrackQueuedWebview", got: int(TrackQueuedWebview), want: 35},
		{name: "PlaybackMPRIS", got: int(PlaybackMPRIS), want: 4},
		{name: "PlaybackUndefined", got: int(PlaybackUndefined), want: 100},
		{name: "PlaybackModeForceAudio", got: int(PlaybackModeForceAudio), want: 30},
		{name: "LoopRepeatTrack", got: int(LoopRepeatTrack), want: 2},
		{name: "MediaHentai", got: int(MediaHentai), want: 25},
		{name: "MediaAudiobook", got: int(MediaAudiobook), want: 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("value = %d, want %d", tt.got, tt.want)
			}
		})
	}
}
