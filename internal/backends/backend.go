// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package backends

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/commonplay/ocpd/internal/media"
)

// Backend is one rendering plugin inside a family registry. Load stages a
// URI without starting playback; the backend reports readiness through the
// bus media.state event and the registry then calls Play.
type Backend interface {
	Name() string

	// SupportedURIs returns the URI schemes the backend can render,
	// e.g. ["file", "http", "https"].
	SupportedURIs() []string

	Play(ctx context.Context) error
	Load(uri string) error
	Stop() error
	Pause() error
	Resume() error

	// Seek jumps to an absolute position in milliseconds.
	Seek(ms int64) error

	TrackInfo() (map[string]any, error)
	Length() (time.Duration, error)
	Position() (time.Duration, error)

	LowerVolume() error
	RestoreVolume() error

	Shutdown() error
}

// Factory constructs a backend from its config entry.
type Factory func(spec FactorySpec) (Backend, error)

// FactorySpec is what a factory gets to work with.
type FactorySpec struct {
	// Name is the configured player name, e.g. "local_mpv".
	Name string

	// Family the backend will serve.
	Family media.Family

	// Aliases are the spoken names from config.
	Aliases []string

	// Emit publishes on the message bus (bus-proxied backends).
	Emit func(msgType string, data any) error
}

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// RegisterFactory installs a backend factory under a module name. Later
// registrations replace earlier ones.
func RegisterFactory(module string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[module] = f
}

// lookupFactory distinguishes unknown modules from construction failures.
func lookupFactory(module string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[baseModule(module)]
	return f, ok
}

// RegisteredModules lists the installed factory names, sorted.
func RegisteredModules() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// remotePrefix marks modules that render on another device. Remote backends
// sort after local ones during routing.
const remotePrefix = "remote-"

// isRemoteModule reports whether the module name declares a remote backend.
func isRemoteModule(module string) bool {
	return strings.HasPrefix(module, remotePrefix)
}

// baseModule strips the remote prefix so "remote-mock" resolves the "mock"
// factory.
func baseModule(module string) string {
	return strings.TrimPrefix(module, remotePrefix)
}

// loadedBackend pairs a constructed backend with its routing metadata.
type loadedBackend struct {
	backend Backend
	name    string
	aliases []string
	remote  bool
}

// matchesName reports whether the utterance names this backend, by name or
// by any alias, case-insensitive substring.
func (b *loadedBackend) matchesName(utterance string) bool {
	utterance = strings.ToLower(utterance)
	if strings.Contains(utterance, strings.ToLower(b.name)) {
		return true
	}
	for _, alias := range b.aliases {
		if alias != "" && strings.Contains(utterance, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

// supportsScheme reports whether the backend claims the URI scheme.
func (b *loadedBackend) supportsScheme(scheme string) bool {
	for _, s := range b.backend.SupportedURIs() {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}

// uriScheme extracts the scheme of a URI; bare absolute paths count as
// "file".
func uriScheme(uri string) (string, error) {
	if strings.HasPrefix(uri, "/") {
		return "file", nil
	}
	idx := strings.Index(uri, "://")
	if idx <= 0 {
		// SEI-style logical URIs ("youtube//...") keep their prefix as
		// the scheme so extractor-aware backends can claim them.
		if idx = strings.Index(uri, "//"); idx > 0 {
			return strings.ToLower(uri[:idx]), nil
		}
		return "", fmt.Errorf("uri %q has no scheme: %w", uri, media.ErrInvalidStream)
	}
	return strings.ToLower(uri[:idx]), nil
}
