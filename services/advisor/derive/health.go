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
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// Derived bundles every first-layer derivation for one company.
type Derived struct {
	CompanyID    string                `json:"company_id"`
	Runway       Runway                `json:"runway"`
	Trajectories map[string]Trajectory `json:"trajectories"`
	HealthScore  float64               `json:"health_score"`

	// LowConfidence flags derivations that are usable but uncertain.
	LowConfidence []string `json:"low_confidence,omitempty"`
}

// DeriveCompany computes the full first layer for one company.
//
// Outputs:
//
//	*Derived - Runway, per-goal trajectories, and the health score.
func DeriveCompany(c *domain.Company, doctrine config.Doctrine, now time.Time) *Derived {
	d := &Derived{
		CompanyID:    c.ID,
		Runway:       DeriveRunway(c.CashUSD, c.MonthlyBurnUSD, c.AsOf, now),
		Trajectories: make(map[string]Trajectory, len(c.Goals)),
	}

	if !d.Runway.Defined {
		d.LowConfidence = append(d.LowConfidence,
			"runway undefined: monthly burn is zero or negative")
	}

	for _, g := range c.Goals {
		d.Trajectories[g.ID] = DeriveTrajectory(g, c.Metrics, now)
	}

	d.HealthScore = healthScore(c, d, doctrine.Health, doctrine.Thresholds, now)
	return d
}

// healthScore rolls runway, trajectories, and deal momentum into [0,100].
func healthScore(c *domain.Company, d *Derived, h config.Health, t config.Thresholds, now time.Time) float64 {
	runway := 0.6 // neutral when undefined
	if d.Runway.Defined {
		runway = min(1, d.Runway.Months/h.RunwayFullScoreMonths)
	}

	trajectory := 0.7 // neutral when the company has no goals
	if len(d.Trajectories) > 0 {
		var sum float64
		for _, tr := range d.Trajectories {
			sum += tr.ProbabilityOfHit
		}
		trajectory = sum / float64(len(d.Trajectories))
	}

	deals := 0.6 // neutral when the company has no deals
	if len(c.Deals) > 0 {
		active := 0
		staleCutoff := time.Duration(t.DealStaleDays) * 24 * time.Hour
		for _, deal := range c.Deals {
			if now.Sub(deal.LastActivity) <= staleCutoff {
				active++
			}
		}
		deals = float64(active) / float64(len(c.Deals))
	}

	score := 100 * (h.RunwayWeight*runway + h.TrajectoryWeight*trajectory + h.DealWeight*deals)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
