// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/derive"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

var testNow = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

func company(id string, months float64) (*domain.Company, *derive.Derived) {
	c := &domain.Company{
		ID: id, Name: id, Stage: domain.StageSeed,
		CashUSD: months * 100_000, MonthlyBurnUSD: 100_000, AsOf: testNow,
	}
	d := derive.DeriveCompany(c, config.Default(), testNow)
	return c, d
}

// TestDetect_RunwaySeverityBands verifies the warning and critical bands:
// exactly at the critical threshold is high, strictly below is critical.
func TestDetect_RunwaySeverityBands(t *testing.T) {
	doctrine := config.Default()

	cases := []struct {
		months   float64
		severity Severity
		fires    bool
	}{
		{12, "", false},
		{6, "", false}, // at the warning threshold, not below
		{5.9, SeverityHigh, true},
		{3.0, SeverityHigh, true}, // exactly critical threshold stays high
		{2.9, SeverityCritical, true},
		{0.5, SeverityCritical, true},
	}

	for _, tc := range cases {
		c, d := company("c1", tc.months)
		issues := Detect(c, d, doctrine, testNow)

		if !tc.fires {
			assert.Empty(t, issues, "%.1f months should not fire", tc.months)
			continue
		}
		require.Len(t, issues, 1, "%.1f months", tc.months)
		assert.Equal(t, "RUNWAY_LOW", issues[0].Heuristic)
		assert.Equal(t, tc.severity, issues[0].Severity, "%.1f months", tc.months)
	}
}

// TestDetect_DeterministicIDs verifies issue IDs derive from content,
// not insertion order.
func TestDetect_DeterministicIDs(t *testing.T) {
	c, d := company("acme", 2)
	issues := Detect(c, d, config.Default(), testNow)

	require.Len(t, issues, 1)
	assert.Equal(t, "acme/RUNWAY_LOW/acme", issues[0].ID)
	assert.Equal(t, domain.EntityCompany, issues[0].Entity.Kind)
}

// TestDetect_GoalOffTrack verifies off-track goals fire with probability
// driving the medium/high split.
func TestDetect_GoalOffTrack(t *testing.T) {
	doctrine := config.Default()
	c := &domain.Company{
		ID: "c1", Name: "Co", Stage: domain.StageSeed,
		CashUSD: 5_000_000, MonthlyBurnUSD: 100_000, AsOf: testNow,
		Goals: []domain.Goal{
			{
				ID: "g-atrisk", CompanyID: "c1", Type: domain.GoalRevenue,
				Current: 40, Target: 100,
				Due: testNow.Add(30 * 24 * time.Hour), Status: domain.GoalAtRisk,
			},
			{
				ID: "g-behind", CompanyID: "c1", Type: domain.GoalProduct,
				Current: 10, Target: 100,
				Due: testNow.Add(30 * 24 * time.Hour), Status: domain.GoalBehind,
			},
			{
				ID: "g-done", CompanyID: "c1", Type: domain.GoalHiring,
				Current: 100, Target: 100,
				Due: testNow.Add(30 * 24 * time.Hour), Status: domain.GoalDone,
			},
		},
	}
	d := derive.DeriveCompany(c, doctrine, testNow)

	issues := Detect(c, d, doctrine, testNow)

	byID := make(map[string]Issue)
	for _, iss := range issues {
		byID[iss.ID] = iss
	}

	// at_risk falls back to p=0.4: off track, medium.
	atRisk, ok := byID["c1/GOAL_OFF_TRACK/g-atrisk"]
	require.True(t, ok)
	assert.Equal(t, SeverityMedium, atRisk.Severity)

	// behind falls back to p=0.15, under the 0.3 escalation line: high.
	behind, ok := byID["c1/GOAL_OFF_TRACK/g-behind"]
	require.True(t, ok)
	assert.Equal(t, SeverityHigh, behind.Severity)

	// done goals never fire.
	_, ok = byID["c1/GOAL_OFF_TRACK/g-done"]
	assert.False(t, ok)
}

// TestDetect_StaleDeal verifies the idle-deal heuristic and that fresh
// deals stay quiet.
func TestDetect_StaleDeal(t *testing.T) {
	doctrine := config.Default()
	c := &domain.Company{
		ID: "c1", Name: "Co", Stage: domain.StageSeed,
		CashUSD: 5_000_000, MonthlyBurnUSD: 100_000, AsOf: testNow,
		Deals: []domain.Deal{
			{
				ID: "d-stale", CompanyID: "c1", Name: "Stale", Stage: domain.DealDiligence,
				AmountUSD: 1_000_000, Probability: 0.5,
				LastActivity: testNow.Add(-20 * 24 * time.Hour),
			},
			{
				ID: "d-fresh", CompanyID: "c1", Name: "Fresh", Stage: domain.DealLead,
				AmountUSD: 500_000, Probability: 0.3,
				LastActivity: testNow.Add(-2 * 24 * time.Hour),
			},
		},
	}
	d := derive.DeriveCompany(c, doctrine, testNow)

	issues := Detect(c, d, doctrine, testNow)

	require.Len(t, issues, 1)
	assert.Equal(t, "DEAL_STALE", issues[0].Heuristic)
	assert.Equal(t, "d-stale", issues[0].Entity.ID)
	assert.Equal(t, SeverityMedium, issues[0].Severity)
}

// TestDetect_Idempotent verifies the same snapshot yields the same issues.
func TestDetect_Idempotent(t *testing.T) {
	c, d := company("c1", 2)
	doctrine := config.Default()

	first := Detect(c, d, doctrine, testNow)
	second := Detect(c, d, doctrine, testNow)

	assert.Equal(t, first, second)
}

// TestSeverity_Tier pins the tier mapping the impact model keys on.
func TestSeverity_Tier(t *testing.T) {
	assert.Equal(t, 1, SeverityMedium.Tier())
	assert.Equal(t, 2, SeverityHigh.Tier())
	assert.Equal(t, 3, SeverityCritical.Tier())
	assert.Equal(t, 0, Severity("unknown").Tier())
}
