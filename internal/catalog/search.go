// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
)

// Confidence weights of the search scorer.
const (
	scoreMusicBonus    = 15
	scorePerEntity     = 30
	scoreExactTitle    = 35
	scoreTitleContains = 40
	scoreMax           = 100
)

// Search scans the persisted media index for entries matching the phrase.
// Scoring: a music bonus when the requested type is music, 30 per matched
// entity (artist/album/title token present in the phrase), 35 for an exact
// title match, 40 for a title substring hit, clamped to 100. Results come
// back sorted by confidence, highest first.
func (c *Catalog) Search(phrase string, mediaType media.MediaType) []media.MediaEntry {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.SearchDuration.Observe(time.Since(start).Seconds())
		}
	}()

	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return nil
	}

	indexed, err := c.store.Media()
	if err != nil {
		logging.Warn().Str("component", "catalog").Err(err).Msg("search index read failed")
		return nil
	}

	var out []media.MediaEntry
	for _, entry := range indexed {
		score := scoreEntry(entry, phrase, mediaType)
		if score <= 0 {
			continue
		}
		entry.MatchConfidence = score
		entry.Status = media.TrackDisambiguation
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchConfidence > out[j].MatchConfidence
	})
	return out
}

func scoreEntry(entry media.MediaEntry, phrase string, mediaType media.MediaType) int {
	score := 0

	matched := 0
	for _, entity := range []string{entry.Artist, entry.Album} {
		if entityMatches(entity, phrase) {
			matched++
		}
	}
	score += scorePerEntity * matched

	title := strings.ToLower(entry.Title)
	switch {
	case title != "" && title == phrase:
		score += scoreExactTitle + scoreTitleContains
	case title != "" && (strings.Contains(phrase, title) || strings.Contains(title, phrase)):
		score += scoreTitleContains
	}

	if score == 0 {
		return 0
	}

	if mediaType == media.MediaMusic && entry.MediaType == media.MediaMusic {
		score += scoreMusicBonus
	}
	if mediaType != media.MediaGeneric && entry.MediaType != mediaType && !(mediaType == media.MediaMusic && entry.MediaType == media.MediaAudio) {
		// Wrong-type candidates stay in but rank below same-type hits.
		score /= 2
	}

	if score > scoreMax {
		score = scoreMax
	}
	return score
}

// entityMatches reports whether every token of the entity appears in the
// phrase. Single-character tokens are ignored as noise.
func entityMatches(entity, phrase string) bool {
	entity = strings.ToLower(strings.TrimSpace(entity))
	if entity == "" {
		return false
	}
	tokens := strings.Fields(entity)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		if !strings.Contains(phrase, tok) {
			return false
		}
	}
	return true
}
