// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gate runs the invariant checks that guard every release of the
// advisory pipeline.
//
// # Description
//
// Eight checks, always all of them: two static checks over the source
// tree (layer ordering, single ranking surface) and six runtime checks
// over a dataset run (stored derivations, DAG integrity, ranking
// correctness, trace integrity, event integrity, follow-up uniqueness).
// A failed check never short-circuits the rest; the caller gets the full
// picture in one pass.
package gate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/action"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/scan"
)

// CheckResult is the outcome of one invariant check.
type CheckResult struct {
	// Name identifies the check.
	Name string `json:"name"`

	// Passed is the verdict.
	Passed bool `json:"passed"`

	// Diagnostic explains a failure in terms of the specific violation.
	Diagnostic string `json:"diagnostic,omitempty"`

	// Warnings carries non-fatal findings.
	Warnings []string `json:"warnings,omitempty"`
}

// Input is everything the gate needs for one run.
type Input struct {
	// SourceRoot is the repository root for the static checks. Empty
	// skips nothing; the static checks fail with a diagnostic instead.
	SourceRoot string

	// Dataset is the raw portfolio the runtime checks execute against.
	Dataset *domain.RawDataset

	// Events is the historical event stream.
	Events []domain.Event

	// Doctrine supplies tolerances. Nil means config.Default().
	Doctrine *config.Doctrine

	// Now anchors the pipeline runs. Zero means time.Now().UTC().
	Now time.Time
}

// Run executes all eight checks in a fixed order and never skips one.
//
// Outputs:
//
//	[]CheckResult - One entry per check, in declaration order.
//	bool - True only when every check passed.
func Run(ctx context.Context, in Input) ([]CheckResult, bool) {
	doctrine := config.Default()
	if in.Doctrine != nil {
		doctrine = *in.Doctrine
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// The runtime checks share two pipeline runs over identical inputs.
	opts := advisor.Options{
		Doctrine: &doctrine,
		Now:      now,
		Events:   in.Events,
	}
	first, firstErr := advisor.Compute(ctx, in.Dataset, opts)
	second, secondErr := advisor.Compute(ctx, in.Dataset, opts)

	// Determinism must hold with and without event history. A second run
	// pair drops the events when a history was supplied.
	ranking := checkRankingCorrectness(first, firstErr, second, secondErr, doctrine)
	if ranking.Passed && len(in.Events) > 0 {
		bare := opts
		bare.Events = nil
		bareFirst, bareFirstErr := advisor.Compute(ctx, in.Dataset, bare)
		bareSecond, bareSecondErr := advisor.Compute(ctx, in.Dataset, bare)
		if r := checkRankingCorrectness(bareFirst, bareFirstErr, bareSecond, bareSecondErr, doctrine); !r.Passed {
			ranking = r
			ranking.Diagnostic = "without event history: " + r.Diagnostic
		}
	}

	results := []CheckResult{
		checkLayering(in.SourceRoot),
		checkNoStoredDerivations(in.Dataset, doctrine),
		checkDAGIntegrity(doctrine, now),
		ranking,
		checkSingleRankingSurface(in.SourceRoot),
		checkTraceIntegrity(first, firstErr, doctrine),
		checkEventIntegrity(in.Events),
		checkFollowupUniqueness(first, firstErr),
	}

	allPassed := true
	for _, r := range results {
		if !r.Passed {
			allPassed = false
		}
	}
	return results, allPassed
}

// checkNoStoredDerivations rejects datasets carrying fields this
// pipeline computes.
func checkNoStoredDerivations(ds *domain.RawDataset, doctrine config.Doctrine) CheckResult {
	res := CheckResult{Name: "no_stored_derivations", Passed: true}
	if ds == nil {
		res.Passed = false
		res.Diagnostic = "no dataset provided"
		return res
	}
	hits := scan.Walk(ds, doctrine.ForbiddenFieldSet())
	if len(hits) > 0 {
		res.Passed = false
		res.Diagnostic = fmt.Sprintf("%d stored derivation(s), first: %s", len(hits), hits[0])
	}
	return res
}

// checkDAGIntegrity builds the per-company pipeline DAG over a synthetic
// company and verifies it is acyclic with no unconsumed nodes.
func checkDAGIntegrity(doctrine config.Doctrine, now time.Time) CheckResult {
	res := CheckResult{Name: "dag_integrity", Passed: true}

	probe := &domain.Company{ID: "gate-probe"}
	d, err := advisor.NewCompanyDAG(probe, doctrine, now)
	if err != nil {
		res.Passed = false
		res.Diagnostic = err.Error()
		return res
	}
	if dead := d.DeadEnds(nil); len(dead) > 0 {
		res.Passed = false
		res.Diagnostic = fmt.Sprintf("dead-end nodes: %v", dead)
	}
	return res
}

// checkRankingCorrectness verifies every score is finite, the published
// list is sorted with deterministic tie-breaks, and a second run over
// identical inputs reproduces every score within tolerance.
func checkRankingCorrectness(
	first *advisor.Result, firstErr error,
	second *advisor.Result, secondErr error,
	doctrine config.Doctrine,
) CheckResult {
	res := CheckResult{Name: "ranking_correctness", Passed: true}
	if firstErr != nil || secondErr != nil {
		res.Passed = false
		res.Diagnostic = fmt.Sprintf("pipeline run failed: %v", firstOf(firstErr, secondErr))
		return res
	}

	for _, t := range first.Trace {
		if math.IsNaN(t.Score) || math.IsInf(t.Score, 0) {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("action %s has non-finite score", t.ActionID)
			return res
		}
	}

	for i := 1; i < len(first.Actions); i++ {
		prev, cur := first.Actions[i-1], first.Actions[i]
		if cur.RankScore > prev.RankScore {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("not sorted: %s (%.4f) after %s (%.4f)",
				cur.ID, cur.RankScore, prev.ID, prev.RankScore)
			return res
		}
		if cur.RankScore == prev.RankScore && cur.ID < prev.ID {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("tie between %s and %s not broken by ID", prev.ID, cur.ID)
			return res
		}
	}

	tol := doctrine.Rank.DeterminismTolerance
	if len(first.Trace) != len(second.Trace) {
		res.Passed = false
		res.Diagnostic = fmt.Sprintf("re-run produced %d traces, first run %d",
			len(second.Trace), len(first.Trace))
		return res
	}
	byID := make(map[string]float64, len(second.Trace))
	for _, t := range second.Trace {
		byID[t.ActionID] = t.Score
	}
	for _, t := range first.Trace {
		other, ok := byID[t.ActionID]
		if !ok {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("action %s absent from re-run", t.ActionID)
			return res
		}
		if math.Abs(t.Score-other) > tol {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("action %s drifted %.6f between runs (tolerance %.6f)",
				t.ActionID, math.Abs(t.Score-other), tol)
			return res
		}
	}
	return res
}

// checkTraceIntegrity verifies each trace's breakdown reconstructs its
// score and that ranks are contiguous from 1.
func checkTraceIntegrity(r *advisor.Result, runErr error, doctrine config.Doctrine) CheckResult {
	res := CheckResult{Name: "trace_integrity", Passed: true}
	if runErr != nil {
		res.Passed = false
		res.Diagnostic = fmt.Sprintf("pipeline run failed: %v", runErr)
		return res
	}

	eps := doctrine.Rank.Epsilon
	ranks := make([]int, 0, len(r.Trace))
	for _, t := range r.Trace {
		if diff := math.Abs(t.Breakdown.Total() - t.Score); diff > eps {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("action %s: breakdown sums to %.6f, score is %.6f",
				t.ActionID, t.Breakdown.Total(), t.Score)
			return res
		}
		if t.Published && t.Score < 0 {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("action %s published with negative score %.4f",
				t.ActionID, t.Score)
			return res
		}
		ranks = append(ranks, t.Rank)
	}

	sort.Ints(ranks)
	for i, rk := range ranks {
		if rk != i+1 {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("ranks not contiguous: expected %d, got %d", i+1, rk)
			return res
		}
	}
	return res
}

// checkEventIntegrity validates every historical event's schema and
// payload purity, rejects duplicate event IDs, and verifies events that
// share an action agree on its type. Names the first violation.
func checkEventIntegrity(events []domain.Event) CheckResult {
	res := CheckResult{Name: "event_integrity", Passed: true}
	seenIDs := make(map[string]int, len(events))
	typeByAction := make(map[string]string, len(events))
	for i, e := range events {
		if err := domain.ValidateEvent(e); err != nil {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("event %d (%s): %v", i, e.ID, err)
			return res
		}
		if prior, dup := seenIDs[e.ID]; dup {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("events %d and %d share id %s", prior, i, e.ID)
			return res
		}
		seenIDs[e.ID] = i
		if prior, ok := typeByAction[e.ActionID]; ok && prior != e.ActionType {
			res.Passed = false
			res.Diagnostic = fmt.Sprintf("event %s records action %s as %q, earlier events say %q",
				e.ID, e.ActionID, e.ActionType, prior)
			return res
		}
		typeByAction[e.ActionID] = e.ActionType
	}
	return res
}

// checkFollowupUniqueness verifies no originating action produced more
// than one follow-up.
func checkFollowupUniqueness(r *advisor.Result, runErr error) CheckResult {
	res := CheckResult{Name: "followup_uniqueness", Passed: true}
	if runErr != nil {
		res.Passed = false
		res.Diagnostic = fmt.Sprintf("pipeline run failed: %v", runErr)
		return res
	}

	seen := make(map[string]string)
	for _, t := range r.Trace {
		a := findAction(r, t.ActionID)
		if a == nil || a.Type != "FOLLOWUP" {
			continue
		}
		for _, s := range a.Sources {
			if s.Kind != action.SourceFollowup {
				continue
			}
			if prior, dup := seen[s.RefID]; dup {
				res.Passed = false
				res.Diagnostic = fmt.Sprintf("actions %s and %s both follow up on %s",
					prior, a.ID, s.RefID)
				return res
			}
			seen[s.RefID] = a.ID
		}
	}
	return res
}

// findAction resolves a trace entry back to its action. Unpublished
// actions are absent from the published list and skip follow-up checks;
// follow-ups with negative scores cannot duplicate anything visible.
func findAction(r *advisor.Result, id string) *action.Action {
	for i := range r.Actions {
		if r.Actions[i].ID == id {
			return &r.Actions[i]
		}
	}
	return nil
}

func firstOf(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
