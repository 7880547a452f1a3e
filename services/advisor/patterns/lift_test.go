// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patterns

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

var testNow = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

func outcomeEvent(id, actionType, outcome string, ageDays float64) domain.Event {
	return domain.Event{
		ID:         id,
		ActionID:   "a-" + id,
		ActionType: actionType,
		Type:       domain.EventOutcomeRecorded,
		Timestamp:  testNow.Add(-time.Duration(ageDays * 24 * float64(time.Hour))),
		Actor:      "operator",
		Payload:    map[string]any{"outcome": outcome},
	}
}

func outcomes(actionType, outcome string, n int) []domain.Event {
	out := make([]domain.Event, n)
	for i := range out {
		out[i] = outcomeEvent(fmt.Sprintf("%s-%d", actionType, i), actionType, outcome, float64(i))
	}
	return out
}

// TestLifts_ColdStart verifies fewer than MinObservations yields zero
// lift, never a noisy estimate.
func TestLifts_ColdStart(t *testing.T) {
	cfg := config.Default().Lift

	lifts := Lifts(outcomes("RUNWAY_BREACH", "success", cfg.MinObservations-1), cfg, testNow)

	assert.Zero(t, lifts["RUNWAY_BREACH"])
}

// TestLifts_PositiveAndBounded verifies consistent successes produce a
// positive lift that never exceeds the bound.
func TestLifts_PositiveAndBounded(t *testing.T) {
	cfg := config.Default().Lift

	lifts := Lifts(outcomes("RUNWAY_BREACH", "success", 10), cfg, testNow)

	assert.Greater(t, lifts["RUNWAY_BREACH"], 0.0)
	assert.LessOrEqual(t, lifts["RUNWAY_BREACH"], cfg.Max)
}

// TestLifts_NegativeForFailures verifies consistent failures pull the
// bucket below zero, bounded the same way.
func TestLifts_NegativeForFailures(t *testing.T) {
	cfg := config.Default().Lift

	lifts := Lifts(outcomes("DEAL_STALL", "failure", 10), cfg, testNow)

	assert.Less(t, lifts["DEAL_STALL"], 0.0)
	assert.GreaterOrEqual(t, lifts["DEAL_STALL"], -cfg.Max)
}

// TestLifts_PartialIsNeutral verifies all-partial outcomes sit at the
// neutral midpoint and produce no lift.
func TestLifts_PartialIsNeutral(t *testing.T) {
	cfg := config.Default().Lift

	lifts := Lifts(outcomes("GOAL_MISS", "partial", 8), cfg, testNow)

	assert.InDelta(t, 0.0, lifts["GOAL_MISS"], 1e-9)
}

// TestStats_RecencyDecay verifies old outcomes weigh less: a bucket of
// old failures plus recent successes nets positive.
func TestStats_RecencyDecay(t *testing.T) {
	cfg := config.Default().Lift

	var events []domain.Event
	for i := 0; i < 5; i++ {
		events = append(events, outcomeEvent(fmt.Sprintf("old-%d", i), "T", "failure", 180))
	}
	for i := 0; i < 5; i++ {
		events = append(events, outcomeEvent(fmt.Sprintf("new-%d", i), "T", "success", 1))
	}

	stats := Stats(events, cfg, testNow)

	require.Contains(t, stats, "T")
	assert.Greater(t, stats["T"].WeightedSignal, cfg.NeutralMidpoint)
	assert.Greater(t, stats["T"].Lift, 0.0)
}

// TestStats_ImpureEventsSkipped verifies events carrying derived scalars
// are excluded from the signal and counted as skipped.
func TestStats_ImpureEventsSkipped(t *testing.T) {
	cfg := config.Default().Lift

	events := outcomes("T", "failure", 3)
	impure := outcomeEvent("bad", "T", "success", 0)
	impure.Payload["rankScore"] = 97.5
	events = append(events, impure, impure, impure)

	stats := Stats(events, cfg, testNow)

	require.Contains(t, stats, "T")
	assert.Equal(t, 3, stats["T"].SkippedImpure)
	assert.Equal(t, 3, stats["T"].Observations)
	assert.Less(t, stats["T"].Lift, 0.0, "only the pure failures count")
}

// TestStats_NotedOutweighsUnnoted verifies noted outcomes carry more
// weight than unnoted ones.
func TestStats_NotedOutweighsUnnoted(t *testing.T) {
	cfg := config.Default().Lift

	noted := outcomeEvent("n1", "T", "success", 0)
	noted.Payload["notes"] = "closed the bridge round"

	events := []domain.Event{
		noted,
		outcomeEvent("u1", "T", "failure", 0),
		outcomeEvent("u2", "T", "failure", 0),
	}

	stats := Stats(events, cfg, testNow)

	// One noted success (weight 1.0) vs two unnoted failures (0.5 each):
	// the weighted signal lands at the midpoint exactly.
	assert.InDelta(t, 0.5, stats["T"].WeightedSignal, 1e-9)
}

// TestLifts_IgnoresNonOutcomeEvents verifies only outcome_recorded
// events feed the signal.
func TestLifts_IgnoresNonOutcomeEvents(t *testing.T) {
	cfg := config.Default().Lift

	var events []domain.Event
	for i := 0; i < 10; i++ {
		events = append(events, domain.Event{
			ID: fmt.Sprintf("n-%d", i), ActionID: "a", ActionType: "T",
			Type: domain.EventNoteAdded, Timestamp: testNow, Actor: "op",
		})
	}

	lifts := Lifts(events, cfg, testNow)
	assert.Zero(t, lifts["T"])
}
