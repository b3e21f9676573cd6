// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/commonplay/ocpd/internal/media"
)

// Config is the full daemon configuration, loaded once at startup and passed
// explicitly to every component. Nothing re-reads configuration at command
// time.
type Config struct {
	OCP   OCPConfig   `koanf:"ocp"`
	Media MediaConfig `koanf:"media"`
	Bus   BusConfig   `koanf:"bus"`
	HTTP  HTTPConfig  `koanf:"http"`
	Store StoreConfig `koanf:"store"`
	Log   LogConfig   `koanf:"log"`
}

// OCPConfig holds player behavior switches.
type OCPConfig struct {
	// ManageExternalPlayers pauses other MPRIS players when OCP starts its
	// own playback, and allows OCP to control the active external player.
	ManageExternalPlayers bool `koanf:"manage_external_players"`

	// DisableMPRIS turns off the whole D-Bus bridge: no discovery of
	// external players and no exported OCP player.
	DisableMPRIS bool `koanf:"disable_mpris"`

	// ForceAudioservice is the legacy alias for PlaybackMode "force_audio".
	ForceAudioservice bool `koanf:"force_audioservice"`

	// PlaybackMode is "auto" or "force_audio". Forced audio coerces video
	// and webview entries onto the audio backends (headless deployments).
	PlaybackMode string `koanf:"playback_mode" validate:"oneof=auto force_audio"`

	// Autoplay advances to the next track on end-of-media and on invalid
	// streams.
	Autoplay bool `koanf:"autoplay"`

	// MergeSearch lets next-track fall through from an exhausted playlist
	// into the unplayed remainder of the last search.
	MergeSearch bool `koanf:"merge_search"`

	// SearchTimeout bounds how long a search session stays open.
	SearchTimeout time.Duration `koanf:"search_timeout"`
}

// PlayerSpec configures one named backend inside a family.
type PlayerSpec struct {
	// Module selects the registered backend factory.
	Module string `koanf:"module"`

	// Aliases are the spoken names users may call this backend by.
	Aliases []string `koanf:"aliases"`

	// Active disables the backend without removing its config when false.
	Active *bool `koanf:"active"`
}

// IsActive treats a missing active key as enabled.
func (s PlayerSpec) IsActive() bool {
	return s.Active == nil || *s.Active
}

// MediaConfig holds backend and bus-scoping configuration.
type MediaConfig struct {
	AudioPlayers map[string]PlayerSpec `koanf:"audio_players"`
	VideoPlayers map[string]PlayerSpec `koanf:"video_players"`
	WebPlayers   map[string]PlayerSpec `koanf:"web_players"`

	// NativeSources is the source-gate allowlist: bus messages carrying a
	// destination are only handled when it intersects this list.
	NativeSources []string `koanf:"native_sources"`

	// DBusType selects the session or system bus for MPRIS.
	DBusType string `koanf:"dbus_type" validate:"oneof=session system"`
}

// PlayersFor returns the player map of one backend family.
func (m MediaConfig) PlayersFor(f media.Family) map[string]PlayerSpec {
	switch f {
	case media.FamilyVideo:
		return m.VideoPlayers
	case media.FamilyWeb:
		return m.WebPlayers
	default:
		return m.AudioPlayers
	}
}

// BusConfig selects and tunes the message bus transport.
type BusConfig struct {
	// Transport is "inproc" (single process) or "nats" (multi-process OVOS
	// stack sharing one broker).
	Transport string `koanf:"transport" validate:"oneof=inproc nats"`

	NATSURL string `koanf:"nats_url"`

	// Embedded starts an in-process NATS server before connecting. Only
	// meaningful with the nats transport.
	Embedded bool `koanf:"embedded"`

	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// HTTPConfig tunes the operational HTTP surface.
type HTTPConfig struct {
	Enabled      bool     `koanf:"enabled"`
	Listen       string   `koanf:"listen"`
	CORSOrigins  []string `koanf:"cors_origins"`
	RateLimitRPS int      `koanf:"rate_limit_rps" validate:"min=0"`
}

// StoreConfig locates persisted state.
type StoreConfig struct {
	// DataDir holds the badger catalog store and liked_songs.json.
	// A leading ~ expands to the user home directory.
	DataDir string `koanf:"data_dir"`
}

// LogConfig mirrors logging.Config for the koanf layer.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the built-in configuration: a standalone, headless,
// loopback-only deployment that needs no config file to run.
func Default() *Config {
	return &Config{
		OCP: OCPConfig{
			ManageExternalPlayers: false,
			DisableMPRIS:          false,
			ForceAudioservice:     false,
			PlaybackMode:          "auto",
			Autoplay:              true,
			MergeSearch:           true,
			SearchTimeout:         5 * time.Second,
		},
		Media: MediaConfig{
			AudioPlayers:  map[string]PlayerSpec{},
			VideoPlayers:  map[string]PlayerSpec{},
			WebPlayers:    map[string]PlayerSpec{},
			NativeSources: []string{"debug_cli", "audio"},
			DBusType:      "session",
		},
		Bus: BusConfig{
			Transport:      "inproc",
			NATSURL:        "nats://127.0.0.1:4222",
			Embedded:       false,
			RequestTimeout: 10 * time.Second,
		},
		HTTP: HTTPConfig{
			Enabled:      true,
			Listen:       "127.0.0.1:8337",
			CORSOrigins:  []string{},
			RateLimitRPS: 100,
		},
		Store: StoreConfig{
			DataDir: "~/.local/share/ocpd",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// EffectivePlaybackMode resolves the playback mode, honoring the legacy
// force_audioservice alias.
func (c *Config) EffectivePlaybackMode() media.PlaybackMode {
	if c.OCP.ForceAudioservice || c.OCP.PlaybackMode == "force_audio" {
		return media.PlaybackModeForceAudio
	}
	return media.PlaybackModeAuto
}

// ExpandedDataDir returns the store directory with ~ expanded.
func (c *Config) ExpandedDataDir() string {
	dir := c.Store.DataDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return dir
}
