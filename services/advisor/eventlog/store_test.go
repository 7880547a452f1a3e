// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eventlog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func event(id string, ts time.Time) domain.Event {
	return domain.Event{
		ID:         id,
		ActionID:   "action/acme/RUNWAY_BREACH/acme",
		ActionType: "RUNWAY_BREACH",
		Type:       domain.EventOutcomeRecorded,
		Timestamp:  ts,
		Actor:      "partner@fund",
		Payload:    map[string]any{"outcome": "success"},
	}
}

// TestStore_AppendAndAll verifies events come back in timestamp order
// regardless of append order.
func TestStore_AppendAndAll(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(event("e2", base.Add(2*time.Hour))))
	require.NoError(t, s.Append(event("e1", base.Add(time.Hour))))
	require.NoError(t, s.Append(event("e3", base.Add(3*time.Hour))))

	events, err := s.All()
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "e2", events[1].ID)
	assert.Equal(t, "e3", events[2].ID)
	assert.Equal(t, "success", events[0].Payload["outcome"])
}

// TestStore_TieBreakByID verifies equal timestamps order by event ID.
func TestStore_TieBreakByID(t *testing.T) {
	s := openTestStore(t)
	ts := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(event("b", ts)))
	require.NoError(t, s.Append(event("a", ts)))

	events, err := s.All()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
}

// TestStore_RejectsDuplicates verifies the same ID cannot be appended twice.
func TestStore_RejectsDuplicates(t *testing.T) {
	s := openTestStore(t)
	ts := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(event("e1", ts)))

	err := s.Append(event("e1", ts.Add(time.Hour)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	events, err := s.All()
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

// TestStore_RejectsImpurePayload verifies derived scalars never reach disk.
func TestStore_RejectsImpurePayload(t *testing.T) {
	s := openTestStore(t)
	ev := event("e1", time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC))
	ev.Payload["rankScore"] = 42.0

	err := s.Append(ev)
	require.Error(t, err)

	var violation *domain.PurityViolation
	assert.True(t, errors.As(err, &violation))

	events, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, events)
}

// TestStore_RejectsInvalidEvent verifies schema validation runs at append.
func TestStore_RejectsInvalidEvent(t *testing.T) {
	s := openTestStore(t)
	ev := event("", time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC))

	err := s.Append(ev)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

// TestStore_Closed verifies operations fail after Close.
func TestStore_Closed(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Append(event("e1", time.Now())), ErrClosed)
	_, err = s.All()
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}
