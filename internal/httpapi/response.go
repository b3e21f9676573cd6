// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/commonplay/ocpd/internal/logging"
)

// apiError is the error payload shape shared by all endpoints.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Str("component", "http").Err(err).Msg("response encode failed")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]apiError{"error": {Code: code, Message: message}})
}
