// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package bus

import "github.com/commonplay/ocpd/internal/media"

// Player surface (ovos.common_play.*).
const (
	TypePlay     = "ovos.common_play.play"
	TypePause    = "ovos.common_play.pause"
	TypeResume   = "ovos.common_play.resume"
	TypeStop     = "ovos.common_play.stop"
	TypeNext     = "ovos.common_play.next"
	TypePrevious = "ovos.common_play.previous"
	TypeSeek     = "ovos.common_play.seek"

	TypeGetTrackLength   = "ovos.common_play.get_track_length"
	TypeGetTrackPosition = "ovos.common_play.get_track_position"
	TypeSetTrackPosition = "ovos.common_play.set_track_position"
	TypeTrackInfo        = "ovos.common_play.track_info"
	TypeListBackends     = "ovos.common_play.list_backends"
	TypeStatus           = "ovos.common_play.status"

	TypePlayerState = "ovos.common_play.player.state"
	TypeMediaState  = "ovos.common_play.media.state"
	TypeTrackState  = "ovos.common_play.track.state"

	TypePlaylistSet   = "ovos.common_play.playlist.set"
	TypePlaylistQueue = "ovos.common_play.playlist.queue"
	TypePlaylistClear = "ovos.common_play.playlist.clear"
	TypePlaylistPlay  = "ovos.common_play.playlist.play"

	TypeShuffleSet    = "ovos.common_play.shuffle.set"
	TypeShuffleUnset  = "ovos.common_play.shuffle.unset"
	TypeShuffleToggle = "ovos.common_play.shuffle.toggle"
	TypeRepeatSet     = "ovos.common_play.repeat.set"
	TypeRepeatUnset   = "ovos.common_play.repeat.unset"
	TypeRepeatToggle  = "ovos.common_play.repeat.toggle"

	TypeDuck   = "ovos.common_play.duck"
	TypeUnduck = "ovos.common_play.unduck"
	TypeCork   = "ovos.common_play.cork"
	TypeUncork = "ovos.common_play.uncork"

	TypeSearchStart = "ovos.common_play.search.start"
	TypeSearchEnd   = "ovos.common_play.search.end"
	TypeSearchStop  = "ovos.common_play.search.stop"
	TypeQuery       = "ovos.common_play.query"

	TypePlaybackTime   = "ovos.common_play.playback_time"
	TypeSEIGetResponse = "ovos.common_play.SEI.get.response"
)

// Catalog surface.
const (
	TypeAnnounce           = "ovos.common_play.announce"
	TypeSkillDetach        = "ovos.common_play.skill.detach"
	TypeSkillsGet          = "ovos.common_play.skills.get"
	TypeFeaturedTracksPlay = "ovos.common_play.featured_tracks.play"
	TypeLike               = "ovos.common_play.like"
	TypeUnlike             = "ovos.common_play.unlike"
	TypeLikedTracksPlay    = "ovos.common_play.liked_tracks.play"
)

// Core assistant namespace.
const (
	TypeMycroftStop        = "mycroft.stop"
	TypeMycroftStopHandled = "mycroft.stop.handled"
	TypeVolumeGet          = "mycroft.volume.get"
	TypeVolumeSet          = "mycroft.volume.set"
)

// Process lifecycle queries.
const (
	TypeIsAlive     = "ovos.media.is_alive"
	TypeIsReady     = "ovos.media.is_ready"
	TypeMediaStatus = "ovos.media.status"
)

// ResponseType returns the reply type for a request type.
func ResponseType(msgType string) string {
	return msgType + ".response"
}

// SkillType returns the skill-directed player message type,
// e.g. SkillType("skill-news", "play") -> "ovos.common_play.skill-news.play".
func SkillType(skillID, op string) string {
	return "ovos.common_play." + skillID + "." + op
}

// FamilyType returns a backend-family service message type,
// e.g. FamilyType(media.FamilyAudio, "play") -> "ovos.audio.service.play".
func FamilyType(f media.Family, op string) string {
	return "ovos." + f.String() + ".service." + op
}

// FamilyEvent returns a backend-family event type outside the service
// namespace, e.g. FamilyEvent(media.FamilyVideo, "playing_track").
func FamilyEvent(f media.Family, event string) string {
	return "ovos." + f.String() + "." + event
}
