// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched, in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"ocpd.yaml",
	"ocpd.yml",
	"/etc/ocpd/ocpd.yaml",
	"/etc/ocpd/ocpd.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "OCPD_CONFIG"

// Load builds the configuration from layered sources, lowest priority first:
//
//  1. Built-in defaults (Default()).
//  2. Optional YAML config file.
//  3. OCPD_* environment variables from the explicit mapping table.
//
// The result is validated before being returned.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path; path may be empty.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are the keys that accept comma-separated strings from the
// environment but must unmarshal as slices.
var sliceConfigPaths = []string{
	"media.native_sources",
	"http.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransform maps OCPD_* environment variables to config paths. Unmapped
// variables are skipped so unrelated environment noise cannot leak into the
// configuration.
func envTransform(key string) string {
	envMappings := map[string]string{
		"ocpd_manage_external_players": "ocp.manage_external_players",
		"ocpd_disable_mpris":           "ocp.disable_mpris",
		"ocpd_force_audioservice":      "ocp.force_audioservice",
		"ocpd_playback_mode":           "ocp.playback_mode",
		"ocpd_autoplay":                "ocp.autoplay",
		"ocpd_merge_search":            "ocp.merge_search",
		"ocpd_search_timeout":          "ocp.search_timeout",

		"ocpd_native_sources": "media.native_sources",
		"ocpd_dbus_type":      "media.dbus_type",

		"ocpd_bus_transport":       "bus.transport",
		"ocpd_nats_url":            "bus.nats_url",
		"ocpd_nats_embedded":       "bus.embedded",
		"ocpd_bus_request_timeout": "bus.request_timeout",

		"ocpd_http_enabled":        "http.enabled",
		"ocpd_http_listen":         "http.listen",
		"ocpd_cors_origins":        "http.cors_origins",
		"ocpd_http_rate_limit_rps": "http.rate_limit_rps",

		"ocpd_data_dir": "store.data_dir",

		"ocpd_log_level":  "log.level",
		"ocpd_log_format": "log.format",
	}

	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
