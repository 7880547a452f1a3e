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
	"fmt"
	"time"
)

// EventType classifies an action lifecycle event.
type EventType string

const (
	EventActionCreated   EventType = "action_created"
	EventStatusChanged   EventType = "status_changed"
	EventOutcomeRecorded EventType = "outcome_recorded"
	EventNoteAdded       EventType = "note_added"
	EventFollowupCreated EventType = "followup_created"
)

// KnownEventTypes is the closed set of valid event types.
var KnownEventTypes = map[EventType]bool{
	EventActionCreated:   true,
	EventStatusChanged:   true,
	EventOutcomeRecorded: true,
	EventNoteAdded:       true,
	EventFollowupCreated: true,
}

// Event is one immutable, append-only fact about an action's lifecycle.
//
// Events are the source of truth for pattern lift. The payload records raw
// observations only; it must never carry a derived scalar (see
// ForbiddenPayloadKeys).
type Event struct {
	ID         string         `json:"id" validate:"required"`
	ActionID   string         `json:"action_id" validate:"required"`
	ActionType string         `json:"action_type" validate:"required"`
	Type       EventType      `json:"type" validate:"required"`
	Timestamp  time.Time      `json:"timestamp" validate:"required"`
	Actor      string         `json:"actor" validate:"required"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// ForbiddenPayloadKeys is the denylist of derived-scalar keys that must
// never appear in an event payload. Storing any of these would let a stale
// derivation leak back into a future run through the event stream.
var ForbiddenPayloadKeys = map[string]bool{
	"rankScore":         true,
	"rank":              true,
	"upsideMagnitude":   true,
	"expectedNetImpact": true,
	"patternLift":       true,
	"priorityScore":     true,
	"runwayMonths":      true,
	"healthScore":       true,
	"probabilityOfHit":  true,
	"impactModel":       true,
}

// PurityViolation reports a forbidden derived-scalar key in an event payload.
type PurityViolation struct {
	EventID string
	Key     string
}

func (v *PurityViolation) Error() string {
	return fmt.Sprintf("event %s: payload carries derived key %q", v.EventID, v.Key)
}

// CheckPayloadPurity verifies an event payload carries no derived scalars.
//
// Outputs:
//
//	error - A *PurityViolation naming the offending key, or nil.
func CheckPayloadPurity(e Event) error {
	for key := range e.Payload {
		if ForbiddenPayloadKeys[key] {
			return &PurityViolation{EventID: e.ID, Key: key}
		}
	}
	return nil
}

// ValidateEvent checks one event's schema and payload purity.
func ValidateEvent(e Event) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: event id is empty", ErrInvalidEvent)
	case e.ActionID == "":
		return fmt.Errorf("%w: event %s has no action id", ErrInvalidEvent, e.ID)
	case e.ActionType == "":
		return fmt.Errorf("%w: event %s has no action type", ErrInvalidEvent, e.ID)
	case !KnownEventTypes[e.Type]:
		return fmt.Errorf("%w: event %s has unknown type %q", ErrInvalidEvent, e.ID, e.Type)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: event %s has zero timestamp", ErrInvalidEvent, e.ID)
	case e.Actor == "":
		return fmt.Errorf("%w: event %s has no actor", ErrInvalidEvent, e.ID)
	}
	return CheckPayloadPurity(e)
}
