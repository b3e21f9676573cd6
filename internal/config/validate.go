// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks tag rules plus the cross-field constraints the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s: failed %q rule", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if c.HTTP.Enabled {
		if _, _, err := net.SplitHostPort(c.HTTP.Listen); err != nil {
			return fmt.Errorf("http.listen %q: %w", c.HTTP.Listen, err)
		}
	}

	if c.Bus.Transport == "nats" && !c.Bus.Embedded && c.Bus.NATSURL == "" {
		return fmt.Errorf("bus.nats_url required for the nats transport")
	}

	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir must not be empty")
	}

	for family, players := range map[string]map[string]PlayerSpec{
		"audio_players": c.Media.AudioPlayers,
		"video_players": c.Media.VideoPlayers,
		"web_players":   c.Media.WebPlayers,
	} {
		for name, spec := range players {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("media.%s: empty player name", family)
			}
			if spec.IsActive() && spec.Module == "" {
				return fmt.Errorf("media.%s.%s: module must not be empty", family, name)
			}
		}
	}

	return nil
}
