// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"

	"github.com/commonplay/ocpd/internal/media"
)

// likedFileName is the JSON document under the data directory.
const likedFileName = "liked_songs.json"

// LikedSong is one persisted liked track, keyed by URI in the store file.
type LikedSong struct {
	URI     string `json:"uri"`
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
	Image   string `json:"image,omitempty"`
	AddedAt int64  `json:"added_at,omitempty"`
}

// LikedSongs is the liked-tracks map persisted as a single JSON object.
// Every mutation rewrites the whole file atomically (temp file + rename) so
// a crash mid-write never corrupts the store.
type LikedSongs struct {
	mu    sync.RWMutex
	path  string
	songs map[string]LikedSong
	now   func() time.Time
}

// LoadLikedSongs reads the store file under dataDir, tolerating a missing
// file (fresh install).
func LoadLikedSongs(dataDir string) (*LikedSongs, error) {
	l := &LikedSongs{
		path:  filepath.Join(dataDir, likedFileName),
		songs: map[string]LikedSong{},
		now:   time.Now,
	}

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	if err := json.Unmarshal(data, &l.songs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.path, err)
	}
	return l, nil
}

// Like inserts or refreshes a liked track and persists. Liking twice is
// idempotent in membership; it refreshes metadata, not counters.
func (l *LikedSongs) Like(entry media.MediaEntry) error {
	if entry.URI == "" {
		return fmt.Errorf("like: %w", media.ErrBadMessage)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	song := LikedSong{
		URI:     entry.URI,
		Title:   entry.Title,
		Artist:  entry.Artist,
		Image:   entry.Image,
		AddedAt: l.now().Unix(),
	}
	if prev, ok := l.songs[entry.URI]; ok {
		song.AddedAt = prev.AddedAt
	}
	l.songs[entry.URI] = song
	return l.persistLocked()
}

// Unlike removes a track and persists. Removing an absent URI is a no-op.
func (l *LikedSongs) Unlike(uri string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.songs[uri]; !ok {
		return nil
	}
	delete(l.songs, uri)
	return l.persistLocked()
}

// IsLiked reports membership.
func (l *LikedSongs) IsLiked(uri string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.songs[uri]
	return ok
}

// Len returns the number of liked tracks.
func (l *LikedSongs) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.songs)
}

// Snapshot returns a copy of the liked map.
func (l *LikedSongs) Snapshot() map[string]LikedSong {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]LikedSong, len(l.songs))
	for k, v := range l.songs {
		out[k] = v
	}
	return out
}

// Entries converts the liked tracks into playable media entries tagged as
// audio music.
func (l *LikedSongs) Entries() []media.MediaEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]media.MediaEntry, 0, len(l.songs))
	for _, song := range l.songs {
		e := media.NewMediaEntry(song.URI)
		e.Title = song.Title
		e.Artist = song.Artist
		e.Image = song.Image
		e.Playback = media.PlaybackAudio
		e.MediaType = media.MediaMusic
		out = append(out, e)
	}
	return out
}

func (l *LikedSongs) persistLocked() error {
	data, err := json.MarshalIndent(l.songs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode liked songs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := renameio.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	return nil
}
