// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package advisor

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/action"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

var testNow = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

// portfolioDataset builds a three-company portfolio: one burning hard,
// one healthy, one with a stalled deal.
func portfolioDataset() *domain.RawDataset {
	return &domain.RawDataset{
		Companies: []domain.Company{
			{
				ID:             "acme",
				Name:           "Acme Robotics",
				Stage:          domain.StageSeed,
				CashUSD:        125_000,
				MonthlyBurnUSD: 50_000,
				AsOf:           testNow.AddDate(0, 0, -5),
				Goals: []domain.Goal{{
					ID:        "acme-fundraise",
					CompanyID: "acme",
					Type:      domain.GoalFundraise,
					Current:   0,
					Target:    2_000_000,
					Due:       testNow.AddDate(0, 4, 0),
					Status:    domain.GoalAtRisk,
				}},
			},
			{
				ID:             "initech",
				Name:           "Initech",
				Stage:          domain.StageSeriesA,
				CashUSD:        6_000_000,
				MonthlyBurnUSD: 200_000,
				AsOf:           testNow.AddDate(0, 0, -3),
			},
			{
				ID:             "globex",
				Name:           "Globex",
				Stage:          domain.StageSeed,
				CashUSD:        1_200_000,
				MonthlyBurnUSD: 100_000,
				AsOf:           testNow.AddDate(0, 0, -2),
				Deals: []domain.Deal{{
					ID:           "globex-pilot",
					CompanyID:    "globex",
					Name:         "Pilot with Hooli",
					Stage:        domain.DealDiligence,
					AmountUSD:    500_000,
					Probability:  0.6,
					LastActivity: testNow.AddDate(0, 0, -30),
				}},
			},
		},
		Relationships: []domain.Relationship{
			{FromID: "initech", ToID: "acme", Strength: 0.8, LastTouched: testNow.AddDate(0, 0, -10)},
		},
	}
}

// TestCompute_EndToEnd verifies the full pipeline produces derivations,
// signals, and a published ranked list.
func TestCompute_EndToEnd(t *testing.T) {
	res, err := Compute(context.Background(), portfolioDataset(), Options{Now: testNow})
	require.NoError(t, err)

	require.Len(t, res.Companies, 3)
	assert.Empty(t, res.Meta.CompanyErrors)
	assert.NotEmpty(t, res.Meta.RunID)
	assert.Equal(t, testNow, res.Meta.GeneratedAt)

	// Results come back sorted by company ID.
	ids := make([]string, len(res.Companies))
	for i, c := range res.Companies {
		ids[i] = c.CompanyID
	}
	assert.True(t, sort.StringsAreSorted(ids))

	acme := res.Company("acme")
	require.NotNil(t, acme)
	require.NotNil(t, acme.Derived)
	assert.InDelta(t, 2.5, acme.Derived.Runway.Months, 0.25)
	require.NotEmpty(t, acme.Issues, "low runway must raise an issue")

	globex := res.Company("globex")
	require.NotNil(t, globex)
	require.NotEmpty(t, globex.Issues, "stale deal must raise an issue")

	initech := res.Company("initech")
	require.NotNil(t, initech)
	assert.Empty(t, initech.Issues)

	require.NotEmpty(t, res.Actions)
	for i, a := range res.Actions {
		assert.Equal(t, i+1, a.Rank)
		assert.GreaterOrEqual(t, a.RankScore, 0.0)
		require.NotNil(t, a.Impact, "published action %s missing impact", a.ID)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Actions[i-1].RankScore, a.RankScore)
		}
	}
	assert.GreaterOrEqual(t, len(res.Trace), len(res.Actions))
}

// TestCompute_CompanyIsolation verifies one invalid company is excluded
// without failing the run.
func TestCompute_CompanyIsolation(t *testing.T) {
	ds := portfolioDataset()
	ds.Companies[1].Name = ""

	res, err := Compute(context.Background(), ds, Options{Now: testNow})
	require.NoError(t, err)

	assert.Len(t, res.Companies, 2)
	assert.Nil(t, res.Company("initech"))
	require.Contains(t, res.Meta.CompanyErrors, "initech")
	assert.NotNil(t, res.Company("acme"))
	assert.NotNil(t, res.Company("globex"))
}

// TestCompute_NilDataset verifies a nil dataset is refused outright.
func TestCompute_NilDataset(t *testing.T) {
	_, err := Compute(context.Background(), nil, Options{Now: testNow})
	assert.ErrorIs(t, err, ErrNilDataset)
}

// TestCompute_NoValidCompanies verifies an all-invalid portfolio errors.
func TestCompute_NoValidCompanies(t *testing.T) {
	ds := portfolioDataset()
	for i := range ds.Companies {
		ds.Companies[i].Name = ""
	}
	_, err := Compute(context.Background(), ds, Options{Now: testNow})
	assert.ErrorIs(t, err, ErrNoCompanies)
}

// TestCompute_Deterministic verifies two identical runs agree on order
// and scores.
func TestCompute_Deterministic(t *testing.T) {
	events := []domain.Event{{
		ID:         "e1",
		ActionID:   "action/acme/RUNWAY_BREACH/acme",
		ActionType: "RUNWAY_BREACH",
		Type:       domain.EventOutcomeRecorded,
		Timestamp:  testNow.AddDate(0, 0, -20),
		Actor:      "partner@fund",
		Payload:    map[string]any{"outcome": "success", "notes": "bridge closed"},
	}}

	a, err := Compute(context.Background(), portfolioDataset(), Options{Now: testNow, Events: events})
	require.NoError(t, err)
	b, err := Compute(context.Background(), portfolioDataset(), Options{Now: testNow, Events: events})
	require.NoError(t, err)

	require.Equal(t, len(a.Actions), len(b.Actions))
	for i := range a.Actions {
		assert.Equal(t, a.Actions[i].ID, b.Actions[i].ID)
		assert.InDelta(t, a.Actions[i].RankScore, b.Actions[i].RankScore, 1e-4)
	}
}

// TestCompute_FollowupsFromEvents verifies recorded outcomes spawn one
// published follow-up action per originating action.
func TestCompute_FollowupsFromEvents(t *testing.T) {
	events := []domain.Event{
		{
			ID:         "f1",
			ActionID:   "action/acme/RUNWAY_BREACH/acme",
			ActionType: "RUNWAY_BREACH",
			Type:       domain.EventOutcomeRecorded,
			Timestamp:  testNow.AddDate(0, 0, -2),
			Actor:      "partner@fund",
			Payload:    map[string]any{"outcome": "success"},
		},
		{
			ID:         "f2",
			ActionID:   "action/acme/RUNWAY_BREACH/acme",
			ActionType: "RUNWAY_BREACH",
			Type:       domain.EventOutcomeRecorded,
			Timestamp:  testNow.AddDate(0, 0, -1),
			Actor:      "partner@fund",
			Payload:    map[string]any{"outcome": "success"},
		},
	}

	res, err := Compute(context.Background(), portfolioDataset(), Options{Now: testNow, Events: events})
	require.NoError(t, err)

	var followups []action.Action
	for _, a := range res.Actions {
		if a.PrimarySource() == action.SourceFollowup {
			followups = append(followups, a)
		}
	}
	require.NotEmpty(t, followups)
	seen := make(map[string]int)
	for _, f := range followups {
		require.Len(t, f.Sources, 1)
		seen[f.Sources[0].RefID]++
	}
	for ref, n := range seen {
		assert.Equal(t, 1, n, "follow-up %s published more than once", ref)
	}
}

// TestNewCompanyDAG verifies the derivation DAG shape.
func TestNewCompanyDAG(t *testing.T) {
	ds := portfolioDataset()
	d, err := NewCompanyDAG(&ds.Companies[0], config.Default(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 4, d.NodeCount())
	assert.Equal(t, "assemble", d.Terminal())
	assert.Empty(t, d.DeadEnds(nil))
	assert.ElementsMatch(t, []string{"detect", "forecast"}, func() []string {
		var deps []string
		deps = append(deps, d.Dependencies("assemble")...)
		return deps
	}())
}

// TestCompute_CanceledContext verifies cancellation excludes every
// in-flight company rather than panicking or hanging.
func TestCompute_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Compute(ctx, portfolioDataset(), Options{Now: testNow})
	require.NoError(t, err)
	assert.Empty(t, res.Companies)
	assert.Len(t, res.Meta.CompanyErrors, 3)
	for _, msg := range res.Meta.CompanyErrors {
		assert.Contains(t, msg, context.Canceled.Error())
	}
}
