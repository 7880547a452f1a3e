// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eventlog persists the append-only action lifecycle event stream.
//
// # Description
//
// Events are written once and never modified; the store rejects duplicate
// IDs and impure payloads at append time. The pipeline itself only reads:
// derived values never flow back into the log.
package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// Sentinel errors for the event log.
var (
	// ErrDuplicateEvent indicates an event ID already exists in the log.
	ErrDuplicateEvent = errors.New("duplicate event id")

	// ErrClosed indicates the store was already closed.
	ErrClosed = errors.New("event log is closed")
)

const keyPrefix = "evt/"

// Store is a badger-backed append-only event log.
//
// # Thread Safety
//
// Safe for concurrent use; badger serializes writes internally.
type Store struct {
	db     *badger.DB
	closed bool
}

// Open opens (or creates) an event log at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &Store{db: db}, nil
}

// Append writes one event.
//
// Description:
//
//	Validates the event schema and payload purity, rejects duplicate IDs,
//	and stores the event keyed by (timestamp, id) so scans come back in
//	time order.
//
// Outputs:
//
//	error - Validation, purity, duplicate, or storage failure.
func (s *Store) Append(e domain.Event) error {
	if s.closed {
		return ErrClosed
	}
	if err := domain.ValidateEvent(e); err != nil {
		return err
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", e.ID, err)
	}

	key := []byte(keyPrefix + e.Timestamp.UTC().Format("20060102T150405.000000000") + "/" + e.ID)
	idKey := []byte("id/" + e.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(idKey); err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateEvent, e.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(idKey, []byte{1}); err != nil {
			return err
		}
		return txn.Set(key, raw)
	})
}

// All returns every event ordered by (timestamp, id).
func (s *Store) All() ([]domain.Event, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var events []domain.Event
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e domain.Event
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("decoding event at %s: %w", it.Item().Key(), err)
				}
				events = append(events, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Key order is already (timestamp, id); the sort restores it when
	// older writers stored coarser timestamp precision.
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
