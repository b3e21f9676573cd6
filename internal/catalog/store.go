// Ocpd - Voice Assistant Media Playback Daemon
// Copyright 2026 The Ocpd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/commonplay/ocpd

package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/commonplay/ocpd/internal/logging"
	"github.com/commonplay/ocpd/internal/media"
)

const (
	mediaKeyPrefix   = "media/"
	historyKeyPrefix = "history/"
)

// Store is the badger-backed persistence layer of the catalog: the search
// index of media entries announced by skills, and per-track play counts.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) the badger database at dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open catalog store %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC reclaims value-log space. badger.ErrNoRewrite means nothing needed
// collecting and is not an error for callers.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

func mediaKey(skillID, uri string) []byte {
	sum := sha1.Sum([]byte(uri))
	return []byte(mediaKeyPrefix + skillID + "/" + hex.EncodeToString(sum[:]))
}

// RegisterMedia indexes one entry under its announcing skill.
func (s *Store) RegisterMedia(skillID string, entry media.MediaEntry) error {
	if entry.URI == "" {
		return fmt.Errorf("register media: %w", media.ErrBadMessage)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal media entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(mediaKey(skillID, entry.URI), data)
	})
}

// RemoveSkillMedia drops every indexed entry of one skill.
func (s *Store) RemoveSkillMedia(skillID string) error {
	prefix := []byte(mediaKeyPrefix + skillID + "/")
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Media returns every indexed entry, across all skills.
func (s *Store) Media() ([]media.MediaEntry, error) {
	var out []media.MediaEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(mediaKeyPrefix),
			PrefetchValues: true,
			PrefetchSize:   64,
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e media.MediaEntry
				if err := json.Unmarshal(val, &e); err != nil {
					logging.Warn().
						Str("component", "catalog").
						Str("key", string(it.Item().Key())).
						Err(err).
						Msg("skipping undecodable media entry")
					return nil
				}
				out = append(out, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// IncrementPlayCount bumps the persisted play count for a URI and returns
// the new value.
func (s *Store) IncrementPlayCount(uri string) (int, error) {
	if uri == "" {
		return 0, fmt.Errorf("increment play count: %w", media.ErrBadMessage)
	}
	key := []byte(historyKeyPrefix + uri)
	var count int
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			count = 0
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				count, _ = strconv.Atoi(string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		count++
		return txn.Set(key, []byte(strconv.Itoa(count)))
	})
	return count, err
}

// PlayCounts returns the full uri -> play count history.
func (s *Store) PlayCounts() (map[string]int, error) {
	out := map[string]int{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(historyKeyPrefix),
			PrefetchValues: true,
			PrefetchSize:   64,
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			uri := strings.TrimPrefix(string(it.Item().Key()), historyKeyPrefix)
			err := it.Item().Value(func(val []byte) error {
				if n, err := strconv.Atoi(string(val)); err == nil {
					out[uri] = n
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}
