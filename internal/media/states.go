// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package media

// PlayerState is the coarse transport state of the player, mirroring the
// states a renderer reports (stopped, playing, paused).
type PlayerState int

const (
	PlayerStopped PlayerState = 0
	PlayerPlaying PlayerState = 1
	PlayerPaused  PlayerState = 2
)

// String returns the protocol name of the state.
func (s PlayerState) String() string {
	switch s {
	case PlayerStopped:
		return "STOPPED"
	case PlayerPlaying:
		return "PLAYING"
	case PlayerPaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// MediaState describes what the current media stream is doing, independent
// of the transport state.
type MediaState int

const (
	MediaStateNoMedia        MediaState = 0
	MediaStateLoadingMedia   MediaState = 1
	MediaStateLoadedMedia    MediaState = 2
	MediaStateBufferingMedia MediaState = 3
	MediaStateBufferedMedia  MediaState = 4
	MediaStateEndOfMedia     MediaState = 5
	MediaStateInvalidMedia   MediaState = 6
)

// String returns the protocol name of the state.
func (s MediaState) String() string {
	switch s {
	case MediaStateNoMedia:
		return "NO_MEDIA"
	case MediaStateLoadingMedia:
		return "LOADING_MEDIA"
	case MediaStateLoadedMedia:
		return "LOADED_MEDIA"
	case MediaStateBufferingMedia:
		return "BUFFERING_MEDIA"
	case MediaStateBufferedMedia:
		return "BUFFERED_MEDIA"
	case MediaStateEndOfMedia:
		return "END_OF_MEDIA"
	case MediaStateInvalidMedia:
		return "INVALID_MEDIA"
	default:
		return "UNKNOWN"
	}
}

// TrackState is the lifecycle state of an individual entry: still a search
// candidate, queued to a renderer family, or actively playing on one.
type TrackState int

const (
	TrackDisambiguation TrackState = 1

	TrackPlayingSkill   TrackState = 20
	TrackPlayingAudio   TrackState = 21
	TrackPlayingVideo   TrackState = 22
	TrackPlayingMPRIS   TrackState = 24
	TrackPlayingWebview TrackState = 25

	TrackQueuedSkill   TrackState = 30
	TrackQueuedAudio   TrackState = 31
	TrackQueuedVideo   TrackState = 32
	TrackQueuedWebview TrackState = 35
)

// Playing reports whether the state is one of the active playback states.
func (s TrackState) Playing() bool {
	return s >= TrackPlayingSkill && s < TrackQueuedSkill
}

// PlaybackType selects which rendering path an entry takes.
type PlaybackType int

const (
	PlaybackSkill     PlaybackType = 0
	PlaybackVideo     PlaybackType = 1
	PlaybackAudio     PlaybackType = 2
	PlaybackMPRIS     PlaybackType = 4
	PlaybackWebview   PlaybackType = 5
	PlaybackUndefined PlaybackType = 100
)

// String returns the protocol name of the playback type.
func (p PlaybackType) String() string {
	switch p {
	case PlaybackSkill:
		return "SKILL"
	case PlaybackVideo:
		return "VIDEO"
	case PlaybackAudio:
		return "AUDIO"
	case PlaybackMPRIS:
		return "MPRIS"
	case PlaybackWebview:
		return "WEBVIEW"
	case PlaybackUndefined:
		return "UNDEFINED"
	default:
		return "UNKNOWN"
	}
}

// PlaybackMode constrains how playback types are resolved.
type PlaybackMode int

const (
	PlaybackModeAuto              PlaybackMode = 0
	PlaybackModeAudioOnly         PlaybackMode = 10
	PlaybackModeVideoOnly         PlaybackMode = 20
	PlaybackModeForceAudio        PlaybackMode = 30
	PlaybackModeForceAudioservice PlaybackMode = 40
)

// LoopState is the playlist repeat mode.
// Toggle cycles NONE -> REPEAT_PLAYLIST -> REPEAT_TRACK -> NONE.
type LoopState int

const (
	LoopNone           LoopState = 0
	LoopRepeatPlaylist LoopState = 1
	LoopRepeatTrack    LoopState = 2
)

// Next returns the loop state following s in the toggle cycle.
func (s LoopState) Next() LoopState {
	switch s {
	case LoopNone:
		return LoopRepeatPlaylist
	case LoopRepeatPlaylist:
		return LoopRepeatTrack
	default:
		return LoopNone
	}
}

// String returns the protocol name of the loop state.
func (s LoopState) String() string {
	switch s {
	case LoopNone:
		return "NONE"
	case LoopRepeatPlaylist:
		return "REPEAT_PLAYLIST"
	case LoopRepeatTrack:
		return "REPEAT_TRACK"
	default:
		return "UNKNOWN"
	}
}

// MediaType classifies the content of an entry. Skills tag search results
// with these; the ADULT and HENTAI types are filtered from featured media
// unless explicitly allowed.
type MediaType int

const (
	MediaGeneric          MediaType = 0
	MediaAudio            MediaType = 1
	MediaMusic            MediaType = 2
	MediaVideo            MediaType = 3
	MediaAudioDescription MediaType = 4
	MediaGame             MediaType = 5
	MediaPodcast          MediaType = 6
	MediaRadio            MediaType = 7
	MediaNews             MediaType = 8
	MediaTV               MediaType = 9
	MediaMovie            MediaType = 10
	MediaTrailer          MediaType = 11
	MediaAdult            MediaType = 12
	MediaVisualStory      MediaType = 13
	MediaBehindScenes     MediaType = 14
	MediaDocumentary      MediaType = 15
	MediaRadioTheatre     MediaType = 16
	MediaShortFilm        MediaType = 17
	MediaSilentMovie      MediaType = 18
	MediaVideoEpisodes    MediaType = 19
	MediaBlackWhiteMovie  MediaType = 20
	MediaCartoon          MediaType = 21
	MediaAnime            MediaType = 22
	MediaASMR             MediaType = 23
	MediaHentai           MediaType = 25
	MediaAudiobook        MediaType = 26
)

// Adult reports whether the media type is filtered from featured media by
// default.
func (t MediaType) Adult() bool {
	return t == MediaAdult || t == MediaHentai
}

// Family identifies one of the three backend registry families.
type Family int

const (
	FamilyAudio Family = iota
	FamilyVideo
	FamilyWeb
)

// String returns the family name used in bus namespaces
// (ovos.<family>.service.*).
func (f Family) String() string {
	switch f {
	case FamilyAudio:
		return "audio"
	case FamilyVideo:
		return "video"
	case FamilyWeb:
		return "web"
	default:
		return "unknown"
	}
}

// FamilyFor maps a playback type to the registry family that renders it.
// Skill and MPRIS playback have no local family; ok is false for those.
func FamilyFor(p PlaybackType) (Family, bool) {
	switch p {
	case PlaybackAudio:
		return FamilyAudio, true
	case PlaybackVideo:
		return FamilyVideo, true
	case PlaybackWebview:
		return FamilyWeb, true
	default:
		return 0, false
	}
}
