// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package forecast flags future problems before they become current ones.
//
// # Description
//
// Forecasters mirror the issue detectors but project forward: each
// pre-issue carries its escalation window, a cost-of-delay curve,
// irreversibility, and an expected future cost. Forecasting is idempotent:
// at most one pre-issue per (entity, heuristic) per run.
package forecast

import (
	"fmt"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/derive"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/detect"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// daysPerMonth converts runway months to breach days.
const daysPerMonth = 30

// forecastHorizonMonths bounds how far out runway breaches are forecast.
const forecastHorizonMonths = 9

// Escalation is the projected point at which a forecasted problem becomes a
// confirmed one.
type Escalation struct {
	// DaysUntil is max(0, timeToBreach - typeBuffer), from now.
	DaysUntil float64 `json:"days_until"`

	// At is the escalation instant.
	At time.Time `json:"at"`

	// IsImminent is true when escalation is at most the imminence window away.
	IsImminent bool `json:"is_imminent"`
}

// PreIssue is a forecasted future problem.
type PreIssue struct {
	// ID is deterministic: companyID/type/entityID.
	ID        string           `json:"id"`
	CompanyID string           `json:"company_id"`
	Entity    domain.EntityRef `json:"entity"`

	// Type is RUNWAY_BREACH, GOAL_MISS, or DEAL_STALL.
	Type string `json:"type"`

	Severity detect.Severity `json:"severity"`

	// Probability that the breach happens absent intervention, in [0,1].
	Probability float64 `json:"probability"`

	// TimeToBreachDays is the projected days until the problem confirms.
	TimeToBreachDays float64 `json:"time_to_breach_days"`

	Escalation Escalation       `json:"escalation"`
	Curve      CostOfDelayCurve `json:"curve"`

	// Irreversibility of the breach, clamped to [0.2, 0.9].
	Irreversibility float64 `json:"irreversibility"`

	// ExpectedFutureCost = probability * irreversibility * impactMagnitude.
	ExpectedFutureCost float64 `json:"expected_future_cost"`

	Summary  string             `json:"summary"`
	Evidence map[string]float64 `json:"evidence,omitempty"`
}

// Forecast runs every pre-issue heuristic for one company.
//
// Outputs:
//
//	[]PreIssue - At most one pre-issue per (entity, heuristic).
func Forecast(c *domain.Company, d *derive.Derived, doctrine config.Doctrine, now time.Time) []PreIssue {
	var out []PreIssue

	if p, ok := runwayBreach(c, d, doctrine, now); ok {
		out = append(out, p)
	}
	out = append(out, goalMisses(c, d, doctrine, now)...)
	out = append(out, dealStalls(c, doctrine, now)...)

	return out
}

// runwayBreach forecasts cash-out from defined runway.
func runwayBreach(c *domain.Company, d *derive.Derived, doctrine config.Doctrine, now time.Time) (PreIssue, bool) {
	if !d.Runway.Defined || d.Runway.Months > forecastHorizonMonths {
		return PreIssue{}, false
	}

	ttb := d.Runway.Months * daysPerMonth

	sev := detect.SeverityMedium
	switch {
	case d.Runway.Months < doctrine.Thresholds.RunwayCriticalMonths:
		sev = detect.SeverityCritical
	case d.Runway.Months <= doctrine.Thresholds.RunwayWarningMonths:
		sev = detect.SeverityHigh
	}

	// Certainty grows as the breach nears; a year out is still likely
	// fixable, a quarter out rarely is.
	probability := clamp01(1 - ttb/365)

	p := newPreIssue(c.ID,
		domain.EntityRef{Kind: domain.EntityCompany, ID: c.ID},
		config.TypeRunwayBreach, sev, probability, ttb, doctrine, now)
	p.Summary = fmt.Sprintf("cash out in %.0f days at current burn", ttb)
	p.Evidence = map[string]float64{
		"runway_months": d.Runway.Months,
		"monthly_burn":  c.MonthlyBurnUSD,
		"cash_usd":      c.CashUSD,
	}
	return p, true
}

// goalMisses forecasts goals whose trajectory will miss the target.
// Suppressed when the hit probability clears the suppression threshold.
func goalMisses(c *domain.Company, d *derive.Derived, doctrine config.Doctrine, now time.Time) []PreIssue {
	var out []PreIssue
	for _, g := range c.Goals {
		tr, ok := d.Trajectories[g.ID]
		if !ok || tr.ProbabilityOfHit >= doctrine.Forecast.GoalMissSuppressAbove {
			continue
		}
		if tr.DaysLeft <= 0 {
			// Already breached: that is the issue detector's territory.
			continue
		}

		sev := detect.SeverityMedium
		if tr.ProbabilityOfHit < doctrine.Thresholds.OffTrackHighProbability {
			sev = detect.SeverityHigh
		}

		p := newPreIssue(c.ID,
			domain.EntityRef{Kind: domain.EntityGoal, ID: g.ID},
			config.TypeGoalMiss, sev, 1-tr.ProbabilityOfHit, tr.DaysLeft, doctrine, now)
		p.Summary = fmt.Sprintf("goal %s projected to miss (p=%.2f)", g.ID, tr.ProbabilityOfHit)
		p.Evidence = map[string]float64{
			"probability_of_hit": tr.ProbabilityOfHit,
			"days_left":          tr.DaysLeft,
			"required_slope":     tr.RequiredSlope,
			"observed_velocity":  tr.ObservedVelocity,
		}
		out = append(out, p)
	}
	return out
}

// dealStalls forecasts deals drifting toward the stale window.
func dealStalls(c *domain.Company, doctrine config.Doctrine, now time.Time) []PreIssue {
	var out []PreIssue
	staleDays := float64(doctrine.Thresholds.DealStaleDays)
	for _, deal := range c.Deals {
		if deal.LastActivity.IsZero() {
			continue
		}
		idleDays := now.Sub(deal.LastActivity).Hours() / 24
		ttb := staleDays - idleDays
		if ttb <= 0 || idleDays < staleDays/2 {
			// Already stale (issue territory) or still fresh.
			continue
		}

		p := newPreIssue(c.ID,
			domain.EntityRef{Kind: domain.EntityDeal, ID: deal.ID},
			config.TypeDealStall, detect.SeverityMedium, clamp01(idleDays/staleDays), ttb, doctrine, now)
		p.Summary = fmt.Sprintf("deal %s goes stale in %.0f days", deal.ID, ttb)
		p.Evidence = map[string]float64{
			"idle_days":  idleDays,
			"amount_usd": deal.AmountUSD,
		}
		out = append(out, p)
	}
	return out
}

// newPreIssue stamps the fields every pre-issue carries: escalation window,
// cost-of-delay curve, irreversibility, and expected future cost.
func newPreIssue(
	companyID string,
	entity domain.EntityRef,
	typ string,
	sev detect.Severity,
	probability float64,
	timeToBreachDays float64,
	doctrine config.Doctrine,
	now time.Time,
) PreIssue {
	f := doctrine.Forecast

	deltaDays := timeToBreachDays - f.BufferDays[typ]
	if deltaDays < 0 {
		deltaDays = 0
	}

	curve := CostOfDelayCurve{
		TypeMultiplier:             f.CostOfDelayTypeMultiplier[typ],
		EscalationInDays:           deltaDays,
		PostEscalationGrowthPerDay: f.PostEscalationGrowthPerDay,
	}

	irreversibility := clamp(f.IrreversibilityBase[typ]+0.2*probability,
		f.IrreversibilityMin, f.IrreversibilityMax)

	return PreIssue{
		ID:               companyID + "/" + typ + "/" + entity.ID,
		CompanyID:        companyID,
		Entity:           entity,
		Type:             typ,
		Severity:         sev,
		Probability:      probability,
		TimeToBreachDays: timeToBreachDays,
		Escalation: Escalation{
			DaysUntil:  deltaDays,
			At:         now.Add(time.Duration(deltaDays * 24 * float64(time.Hour))),
			IsImminent: deltaDays <= f.ImminentWithinDays,
		},
		Curve:              curve,
		Irreversibility:    irreversibility,
		ExpectedFutureCost: probability * irreversibility * f.ImpactMagnitude[typ],
	}
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
