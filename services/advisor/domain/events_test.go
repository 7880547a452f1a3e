// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() Event {
	return Event{
		ID:         "e1",
		ActionID:   "action/acme/RUNWAY_BREACH/acme",
		ActionType: "RUNWAY_BREACH",
		Type:       EventOutcomeRecorded,
		Timestamp:  time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
		Actor:      "partner@fund",
		Payload:    map[string]any{"outcome": "success"},
	}
}

// TestValidateEvent_Valid verifies a complete event passes.
func TestValidateEvent_Valid(t *testing.T) {
	require.NoError(t, ValidateEvent(validEvent()))
}

// TestValidateEvent_MissingFields verifies each required field is enforced.
func TestValidateEvent_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"empty id", func(e *Event) { e.ID = "" }},
		{"empty action id", func(e *Event) { e.ActionID = "" }},
		{"empty action type", func(e *Event) { e.ActionType = "" }},
		{"unknown type", func(e *Event) { e.Type = "invented_type" }},
		{"zero timestamp", func(e *Event) { e.Timestamp = time.Time{} }},
		{"empty actor", func(e *Event) { e.Actor = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(&ev)
			err := ValidateEvent(ev)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

// TestCheckPayloadPurity verifies derived scalars in payloads are named
// in the violation.
func TestCheckPayloadPurity(t *testing.T) {
	ev := validEvent()
	require.NoError(t, CheckPayloadPurity(ev))

	ev.Payload = map[string]any{
		"outcome":   "success",
		"rankScore": 42.5,
	}
	err := CheckPayloadPurity(ev)
	require.Error(t, err)

	var violation *PurityViolation
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "e1", violation.EventID)
	assert.Equal(t, "rankScore", violation.Key)
}

// TestValidateEvent_ImpurePayload verifies schema validation also rejects
// impure payloads.
func TestValidateEvent_ImpurePayload(t *testing.T) {
	ev := validEvent()
	ev.Payload["healthScore"] = 71.0
	err := ValidateEvent(ev)
	require.Error(t, err)

	var violation *PurityViolation
	assert.True(t, errors.As(err, &violation))
}

// TestValidateEvent_NilPayload verifies an absent payload is allowed.
func TestValidateEvent_NilPayload(t *testing.T) {
	ev := validEvent()
	ev.Payload = nil
	assert.NoError(t, ValidateEvent(ev))
}

// TestKnownEventTypes_Closed verifies the lifecycle type set.
func TestKnownEventTypes_Closed(t *testing.T) {
	for _, typ := range []EventType{
		EventActionCreated,
		EventStatusChanged,
		EventOutcomeRecorded,
		EventNoteAdded,
		EventFollowupCreated,
	} {
		assert.True(t, KnownEventTypes[typ], "type %s must be known", typ)
	}
	assert.Len(t, KnownEventTypes, 5)
}
