// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

var testNow = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

// TestDeriveRunway_Basic verifies the straight cash/burn division with a
// fresh snapshot.
func TestDeriveRunway_Basic(t *testing.T) {
	r := DeriveRunway(300_000, 100_000, testNow, testNow)

	require.True(t, r.Defined)
	assert.InDelta(t, 3.0, r.Months, 1e-9)
	assert.Equal(t, 0.9, r.Confidence)
}

// TestDeriveRunway_NotBurning verifies burn at or below zero yields an
// undefined result, never an error or a division by zero.
func TestDeriveRunway_NotBurning(t *testing.T) {
	for _, burn := range []float64{0, -50_000} {
		r := DeriveRunway(1_000_000, burn, testNow, testNow)
		assert.False(t, r.Defined)
		assert.Equal(t, 0.2, r.Confidence)
		assert.Zero(t, r.Months)
	}
}

// TestDeriveRunway_ElapsedBurnDown verifies cash is burned down for the
// time since the snapshot.
func TestDeriveRunway_ElapsedBurnDown(t *testing.T) {
	asOf := testNow.Add(-30 * 24 * time.Hour) // one month ago

	r := DeriveRunway(300_000, 100_000, asOf, testNow)

	require.True(t, r.Defined)
	assert.InDelta(t, 2.0, r.Months, 0.01)
}

// TestDeriveRunway_StaleSnapshot verifies confidence degrades past the
// staleness window and projected months never go negative.
func TestDeriveRunway_StaleSnapshot(t *testing.T) {
	asOf := testNow.Add(-90 * 24 * time.Hour)

	r := DeriveRunway(100_000, 100_000, asOf, testNow)

	require.True(t, r.Defined)
	assert.Equal(t, 0.5, r.Confidence)
	assert.GreaterOrEqual(t, r.Months, 0.0)
}

// TestDeriveTrajectory_AtTarget verifies a goal already at target
// projects near-certain regardless of velocity.
func TestDeriveTrajectory_AtTarget(t *testing.T) {
	g := domain.Goal{
		ID: "g1", Type: domain.GoalRevenue,
		Current: 120, Target: 100,
		Due:    testNow.Add(60 * 24 * time.Hour),
		Status: domain.GoalOnTrack,
	}

	tr := DeriveTrajectory(g, nil, testNow)

	assert.True(t, tr.OnTrack)
	assert.Equal(t, 0.95, tr.ProbabilityOfHit)
}

// TestDeriveTrajectory_Overdue verifies a goal past due and short
// projects near-zero.
func TestDeriveTrajectory_Overdue(t *testing.T) {
	g := domain.Goal{
		ID: "g1", Type: domain.GoalRevenue,
		Current: 50, Target: 100,
		Due:    testNow.Add(-5 * 24 * time.Hour),
		Status: domain.GoalBehind,
	}

	tr := DeriveTrajectory(g, nil, testNow)

	assert.False(t, tr.OnTrack)
	assert.Equal(t, 0.05, tr.ProbabilityOfHit)
	assert.Less(t, tr.DaysLeft, 0.0)
}

// TestDeriveTrajectory_RequiredSlope verifies the slope arithmetic.
func TestDeriveTrajectory_RequiredSlope(t *testing.T) {
	g := domain.Goal{
		ID: "g1", Type: domain.GoalRevenue,
		Current: 40, Target: 100,
		Due:    testNow.Add(30 * 24 * time.Hour),
		Status: domain.GoalAtRisk,
	}

	tr := DeriveTrajectory(g, nil, testNow)

	assert.InDelta(t, 2.0, tr.RequiredSlope, 1e-9) // (100-40)/30
}

// TestDeriveTrajectory_StatusFallback verifies the operator-reported
// status drives probability when the metric series carries no velocity.
func TestDeriveTrajectory_StatusFallback(t *testing.T) {
	base := domain.Goal{
		ID: "g1", Type: domain.GoalRevenue,
		Current: 40, Target: 100,
		Due: testNow.Add(30 * 24 * time.Hour),
	}

	cases := []struct {
		status domain.GoalStatus
		want   float64
	}{
		{domain.GoalOnTrack, 0.7},
		{domain.GoalAtRisk, 0.4},
		{domain.GoalBehind, 0.15},
	}
	for _, tc := range cases {
		g := base
		g.Status = tc.status
		tr := DeriveTrajectory(g, nil, testNow)
		assert.Equal(t, tc.want, tr.ProbabilityOfHit, "status %s", tc.status)
	}
}

// TestDeriveTrajectory_ObservedVelocity verifies a measured series above
// the required pace projects on track.
func TestDeriveTrajectory_ObservedVelocity(t *testing.T) {
	g := domain.Goal{
		ID: "g1", Type: domain.GoalRevenue,
		Current: 70, Target: 100,
		Due:    testNow.Add(30 * 24 * time.Hour),
		Status: domain.GoalAtRisk,
	}
	// +5/day over the trailing week, required pace is 1/day.
	metrics := []domain.MetricPoint{
		{Name: "revenue", Value: 35, Timestamp: testNow.Add(-7 * 24 * time.Hour)},
		{Name: "revenue", Value: 70, Timestamp: testNow},
	}

	tr := DeriveTrajectory(g, metrics, testNow)

	assert.True(t, tr.OnTrack)
	assert.Greater(t, tr.ObservedVelocity, tr.RequiredSlope)
	assert.GreaterOrEqual(t, tr.ProbabilityOfHit, 0.9)
	assert.LessOrEqual(t, tr.ProbabilityOfHit, 1.0)
}

// TestDeriveCompany_HealthBounds verifies the health score stays in
// [0,100] across extreme inputs.
func TestDeriveCompany_HealthBounds(t *testing.T) {
	doctrine := config.Default()

	rich := &domain.Company{
		ID: "c1", Name: "Rich", Stage: domain.StageSeed,
		CashUSD: 50_000_000, MonthlyBurnUSD: 100_000, AsOf: testNow,
	}
	broke := &domain.Company{
		ID: "c2", Name: "Broke", Stage: domain.StageSeed,
		CashUSD: 0, MonthlyBurnUSD: 500_000, AsOf: testNow,
		Goals: []domain.Goal{{
			ID: "g1", CompanyID: "c2", Type: domain.GoalRevenue,
			Current: 0, Target: 100,
			Due: testNow.Add(-1 * 24 * time.Hour), Status: domain.GoalBehind,
		}},
	}

	for _, c := range []*domain.Company{rich, broke} {
		d := DeriveCompany(c, doctrine, testNow)
		require.NotNil(t, d)
		assert.GreaterOrEqual(t, d.HealthScore, 0.0)
		assert.LessOrEqual(t, d.HealthScore, 100.0)
	}
}

// TestDeriveCompany_Idempotent verifies derivation is a pure function of
// the snapshot and now.
func TestDeriveCompany_Idempotent(t *testing.T) {
	c := &domain.Company{
		ID: "c1", Name: "Co", Stage: domain.StageSeed,
		CashUSD: 400_000, MonthlyBurnUSD: 100_000, AsOf: testNow,
		Goals: []domain.Goal{{
			ID: "g1", CompanyID: "c1", Type: domain.GoalRevenue,
			Current: 40, Target: 100,
			Due: testNow.Add(45 * 24 * time.Hour), Status: domain.GoalAtRisk,
		}},
	}
	doctrine := config.Default()

	a := DeriveCompany(c, doctrine, testNow)
	b := DeriveCompany(c, doctrine, testNow)

	assert.Equal(t, a, b)
}
