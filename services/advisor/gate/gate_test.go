// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

var testNow = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

// sourceRoot points back at the repository root from this package.
const sourceRoot = "../../.."

func gateDataset() *domain.RawDataset {
	return &domain.RawDataset{
		Companies: []domain.Company{
			{
				ID:             "acme",
				Name:           "Acme Robotics",
				Stage:          domain.StageSeed,
				CashUSD:        125_000,
				MonthlyBurnUSD: 50_000,
				AsOf:           testNow.AddDate(0, 0, -5),
			},
			{
				ID:             "initech",
				Name:           "Initech",
				Stage:          domain.StageSeriesA,
				CashUSD:        6_000_000,
				MonthlyBurnUSD: 200_000,
				AsOf:           testNow.AddDate(0, 0, -3),
			},
		},
	}
}

func goodEvents() []domain.Event {
	return []domain.Event{{
		ID:         "e1",
		ActionID:   "action/acme/RUNWAY_BREACH/acme",
		ActionType: "RUNWAY_BREACH",
		Type:       domain.EventOutcomeRecorded,
		Timestamp:  testNow.AddDate(0, 0, -20),
		Actor:      "partner@fund",
		Payload:    map[string]any{"outcome": "success"},
	}}
}

func resultByName(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("check %s not found", name)
	return CheckResult{}
}

// TestRun_AllChecksPresent verifies all eight checks run in order,
// never skipped.
func TestRun_AllChecksPresent(t *testing.T) {
	results, _ := Run(context.Background(), Input{
		SourceRoot: sourceRoot,
		Dataset:    gateDataset(),
		Events:     goodEvents(),
		Now:        testNow,
	})

	want := []string{
		"layering",
		"no_stored_derivations",
		"dag_integrity",
		"ranking_correctness",
		"single_ranking_surface",
		"trace_integrity",
		"event_integrity",
		"followup_uniqueness",
	}
	require.Len(t, results, len(want))
	for i, name := range want {
		assert.Equal(t, name, results[i].Name)
	}
}

// TestRun_CleanInputPasses verifies a well-formed dataset and event
// stream pass every check.
func TestRun_CleanInputPasses(t *testing.T) {
	results, allPassed := Run(context.Background(), Input{
		SourceRoot: sourceRoot,
		Dataset:    gateDataset(),
		Events:     goodEvents(),
		Now:        testNow,
	})

	for _, r := range results {
		assert.True(t, r.Passed, "check %s failed: %s", r.Name, r.Diagnostic)
	}
	assert.True(t, allPassed)
}

// TestRun_ImpureEventFails verifies a derived scalar in an event payload
// fails event integrity and names the key.
func TestRun_ImpureEventFails(t *testing.T) {
	events := goodEvents()
	events[0].Payload["rankScore"] = 42.0

	results, allPassed := Run(context.Background(), Input{
		SourceRoot: sourceRoot,
		Dataset:    gateDataset(),
		Events:     events,
		Now:        testNow,
	})

	assert.False(t, allPassed)
	integrity := resultByName(t, results, "event_integrity")
	assert.False(t, integrity.Passed)
	assert.Contains(t, integrity.Diagnostic, "rankScore")
	assert.Contains(t, integrity.Diagnostic, "e1")
}

// TestRun_MissingDataset verifies the runtime checks fail with
// diagnostics instead of panicking.
func TestRun_MissingDataset(t *testing.T) {
	results, allPassed := Run(context.Background(), Input{
		SourceRoot: sourceRoot,
		Now:        testNow,
	})

	assert.False(t, allPassed)
	assert.False(t, resultByName(t, results, "no_stored_derivations").Passed)
	assert.False(t, resultByName(t, results, "ranking_correctness").Passed)
	// Static checks do not need a dataset.
	assert.True(t, resultByName(t, results, "layering").Passed)
	assert.True(t, resultByName(t, results, "single_ranking_surface").Passed)
}

// TestRun_MissingSourceRoot verifies the static checks fail closed when
// no source tree is supplied.
func TestRun_MissingSourceRoot(t *testing.T) {
	results, allPassed := Run(context.Background(), Input{
		Dataset: gateDataset(),
		Events:  goodEvents(),
		Now:     testNow,
	})

	assert.False(t, allPassed)
	assert.False(t, resultByName(t, results, "layering").Passed)
	assert.False(t, resultByName(t, results, "single_ranking_surface").Passed)
}

// TestCheckDAGIntegrity verifies the pipeline DAG probe passes on the
// canonical doctrine.
func TestCheckDAGIntegrity(t *testing.T) {
	res := checkDAGIntegrity(config.Default(), testNow)
	assert.True(t, res.Passed, res.Diagnostic)
	assert.Equal(t, "dag_integrity", res.Name)
}

// TestCheckEventIntegrity_Empty verifies an empty stream passes.
func TestCheckEventIntegrity_Empty(t *testing.T) {
	res := checkEventIntegrity(nil)
	assert.True(t, res.Passed)
}

// TestCheckEventIntegrity_DuplicateIDs verifies two valid events sharing
// an ID fail the check even though each validates in isolation.
func TestCheckEventIntegrity_DuplicateIDs(t *testing.T) {
	first := goodEvents()[0]
	second := first
	second.Timestamp = first.Timestamp.AddDate(0, 0, 1)

	res := checkEventIntegrity([]domain.Event{first, second})

	assert.False(t, res.Passed)
	assert.Contains(t, res.Diagnostic, "e1")
	assert.Contains(t, res.Diagnostic, "share id")
}

// TestCheckEventIntegrity_ActionTypeConflict verifies events that
// disagree on their shared action's type fail the check.
func TestCheckEventIntegrity_ActionTypeConflict(t *testing.T) {
	first := goodEvents()[0]
	second := first
	second.ID = "e2"
	second.ActionType = "GOAL_AT_RISK"

	res := checkEventIntegrity([]domain.Event{first, second})

	assert.False(t, res.Passed)
	assert.Contains(t, res.Diagnostic, first.ActionID)
	assert.Contains(t, res.Diagnostic, "RUNWAY_BREACH")
}

// liftEvents returns enough recent successes to clear the pattern-lift
// cold start for runway breach actions.
func liftEvents() []domain.Event {
	events := make([]domain.Event, 3)
	for i := range events {
		events[i] = domain.Event{
			ID:         fmt.Sprintf("lift-e%d", i+1),
			ActionID:   "action/acme/RUNWAY_BREACH/acme",
			ActionType: "RUNWAY_BREACH",
			Type:       domain.EventOutcomeRecorded,
			Timestamp:  testNow.AddDate(0, 0, -(i + 1)),
			Actor:      "partner@fund",
			Payload:    map[string]any{"outcome": "success"},
		}
	}
	return events
}

// TestRun_DeterminismWithoutHistory verifies ranking correctness holds
// for both the with-history and the bare runs when the history carries
// enough outcomes to move scores.
func TestRun_DeterminismWithoutHistory(t *testing.T) {
	results, _ := Run(context.Background(), Input{
		SourceRoot: sourceRoot,
		Dataset:    gateDataset(),
		Events:     liftEvents(),
		Now:        testNow,
	})

	ranking := resultByName(t, results, "ranking_correctness")
	assert.True(t, ranking.Passed, ranking.Diagnostic)
}

// TestCheckRankingCorrectness_HistoryMovesScores verifies the check
// distinguishes a run with event history from one without, so the bare
// pair is a genuinely separate determinism probe.
func TestCheckRankingCorrectness_HistoryMovesScores(t *testing.T) {
	doctrine := config.Default()
	withHistory := advisor.Options{Doctrine: &doctrine, Now: testNow, Events: liftEvents()}
	bare := advisor.Options{Doctrine: &doctrine, Now: testNow}

	lifted, liftedErr := advisor.Compute(context.Background(), gateDataset(), withHistory)
	require.NoError(t, liftedErr)
	plain, plainErr := advisor.Compute(context.Background(), gateDataset(), bare)
	require.NoError(t, plainErr)

	res := checkRankingCorrectness(lifted, nil, plain, nil, doctrine)
	assert.False(t, res.Passed, "pattern lift should separate the two runs")
	assert.Contains(t, res.Diagnostic, "drifted")
}
