// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package detect flags current problems with stateless threshold
// predicates over derived values.
//
// # Description
//
// Each detector is one heuristic and emits at most one Issue per
// (entity, heuristic) per run. Detection is idempotent: the same snapshot
// always yields the same issues.
package detect

import (
	"fmt"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/derive"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// Severity is the issue severity tier.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Tier maps severity to its numeric tier: medium=1, high=2, critical=3.
// Tier 0 is reserved for informational signals.
func (s Severity) Tier() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Issue is a detected present problem.
type Issue struct {
	// ID is deterministic: companyID/heuristic/entityID.
	ID        string             `json:"id"`
	CompanyID string             `json:"company_id"`
	Entity    domain.EntityRef   `json:"entity"`
	Heuristic string             `json:"heuristic"`
	Severity  Severity           `json:"severity"`
	Summary   string             `json:"summary"`
	Evidence  map[string]float64 `json:"evidence,omitempty"`
}

// Detect runs every issue heuristic for one company.
//
// Inputs:
//
//	c - The raw company record.
//	d - The company's derived layer.
//	doctrine - Threshold configuration.
//	now - The current instant.
//
// Outputs:
//
//	[]Issue - At most one issue per (entity, heuristic).
func Detect(c *domain.Company, d *derive.Derived, doctrine config.Doctrine, now time.Time) []Issue {
	var issues []Issue

	if iss, ok := runwayIssue(c, d, doctrine.Thresholds); ok {
		issues = append(issues, iss)
	}
	issues = append(issues, trajectoryIssues(c, d, doctrine.Thresholds)...)
	issues = append(issues, staleDealIssues(c, doctrine.Thresholds, now)...)

	return issues
}

// runwayIssue fires when defined runway is inside the warning band.
// Below critical: critical. Below warning: high.
func runwayIssue(c *domain.Company, d *derive.Derived, t config.Thresholds) (Issue, bool) {
	if !d.Runway.Defined || d.Runway.Months >= t.RunwayWarningMonths {
		return Issue{}, false
	}

	sev := SeverityHigh
	if d.Runway.Months < t.RunwayCriticalMonths {
		sev = SeverityCritical
	}

	return Issue{
		ID:        issueID(c.ID, "RUNWAY_LOW", c.ID),
		CompanyID: c.ID,
		Entity:    domain.EntityRef{Kind: domain.EntityCompany, ID: c.ID},
		Heuristic: "RUNWAY_LOW",
		Severity:  sev,
		Summary:   fmt.Sprintf("%.1f months of runway remaining", d.Runway.Months),
		Evidence: map[string]float64{
			"runway_months": d.Runway.Months,
			"monthly_burn":  c.MonthlyBurnUSD,
		},
	}, true
}

// trajectoryIssues fires for each goal whose trajectory is off track.
// Probability below the high threshold escalates medium to high.
func trajectoryIssues(c *domain.Company, d *derive.Derived, t config.Thresholds) []Issue {
	var issues []Issue
	for _, g := range c.Goals {
		tr, ok := d.Trajectories[g.ID]
		if !ok || tr.OnTrack {
			continue
		}

		sev := SeverityMedium
		if tr.ProbabilityOfHit < t.OffTrackHighProbability {
			sev = SeverityHigh
		}

		issues = append(issues, Issue{
			ID:        issueID(c.ID, "GOAL_OFF_TRACK", g.ID),
			CompanyID: c.ID,
			Entity:    domain.EntityRef{Kind: domain.EntityGoal, ID: g.ID},
			Heuristic: "GOAL_OFF_TRACK",
			Severity:  sev,
			Summary:   fmt.Sprintf("goal %s off track (p=%.2f)", g.ID, tr.ProbabilityOfHit),
			Evidence: map[string]float64{
				"probability_of_hit": tr.ProbabilityOfHit,
				"days_left":          tr.DaysLeft,
				"required_slope":     tr.RequiredSlope,
			},
		})
	}
	return issues
}

// staleDealIssues fires for deals idle longer than the stale window.
func staleDealIssues(c *domain.Company, t config.Thresholds, now time.Time) []Issue {
	var issues []Issue
	staleCutoff := time.Duration(t.DealStaleDays) * 24 * time.Hour
	for _, deal := range c.Deals {
		idle := now.Sub(deal.LastActivity)
		if deal.LastActivity.IsZero() || idle <= staleCutoff {
			continue
		}

		issues = append(issues, Issue{
			ID:        issueID(c.ID, "DEAL_STALE", deal.ID),
			CompanyID: c.ID,
			Entity:    domain.EntityRef{Kind: domain.EntityDeal, ID: deal.ID},
			Heuristic: "DEAL_STALE",
			Severity:  SeverityMedium,
			Summary:   fmt.Sprintf("deal %s idle for %d days", deal.ID, int(idle.Hours()/24)),
			Evidence: map[string]float64{
				"idle_days":  idle.Hours() / 24,
				"amount_usd": deal.AmountUSD,
			},
		})
	}
	return issues
}

func issueID(companyID, heuristic, entityID string) string {
	return companyID + "/" + heuristic + "/" + entityID
}
