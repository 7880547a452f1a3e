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

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// Trajectory is the derived path of one goal toward its target.
type Trajectory struct {
	GoalID string `json:"goal_id"`

	// OnTrack is whether current velocity is expected to hit the target.
	OnTrack bool `json:"on_track"`

	// ProbabilityOfHit is the estimated probability of reaching the target
	// by the due date, in [0,1].
	ProbabilityOfHit float64 `json:"probability_of_hit"`

	// DaysLeft until the due date. Negative when overdue.
	DaysLeft float64 `json:"days_left"`

	// RequiredSlope is (target - current) / daysLeft, per day.
	RequiredSlope float64 `json:"required_slope"`

	// ObservedVelocity is the measured slope per day from the metric
	// series, zero when no series exists.
	ObservedVelocity float64 `json:"observed_velocity"`
}

// onTrackThreshold: a goal is on track when its hit probability clears this.
const onTrackThreshold = 0.6

// DeriveTrajectory projects a goal by linear slope against observed velocity.
//
// Description:
//
//	Computes the slope required to reach the target by the due date and
//	compares it with the velocity observed in the company's metric series
//	for the goal's type. A goal already at target projects near-certain; a
//	goal past due and short projects near-zero.
//
// Inputs:
//
//	goal - The goal to project.
//	metrics - The company's metric series (matched on goal type name).
//	now - The current instant.
//
// Outputs:
//
//	Trajectory - The projection.
func DeriveTrajectory(goal domain.Goal, metrics []domain.MetricPoint, now time.Time) Trajectory {
	daysLeft := goal.Due.Sub(now).Hours() / 24

	t := Trajectory{
		GoalID:   goal.ID,
		DaysLeft: daysLeft,
	}

	gap := goal.Target - goal.Current
	if gap <= 0 || goal.Status == domain.GoalDone {
		t.OnTrack = true
		t.ProbabilityOfHit = 0.95
		return t
	}

	if daysLeft <= 0 {
		t.ProbabilityOfHit = 0.05
		return t
	}

	t.RequiredSlope = gap / daysLeft
	t.ObservedVelocity = seriesSlope(metrics, string(goal.Type), now)

	t.ProbabilityOfHit = hitProbability(t.ObservedVelocity, t.RequiredSlope, goal.Status)
	t.OnTrack = t.ProbabilityOfHit >= onTrackThreshold
	return t
}

// hitProbability maps velocity-vs-required into a bounded probability.
// With no measurable velocity it falls back to the operator-reported status.
func hitProbability(observed, required float64, status domain.GoalStatus) float64 {
	if observed <= 0 {
		switch status {
		case domain.GoalOnTrack:
			return 0.7
		case domain.GoalAtRisk:
			return 0.4
		default:
			return 0.15
		}
	}

	ratio := observed / required
	p := 0.9 * ratio
	if ratio >= 1 {
		// Above required pace: certainty saturates rather than exceeding 1.
		p = 0.9 + 0.05*min(1, ratio-1)
	}
	return clamp01(p)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
