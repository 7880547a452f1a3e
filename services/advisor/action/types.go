// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package action defines the recommendation unit and normalizes issues,
// pre-issues, opportunities, and goals into it.
//
// # Description
//
// Everything downstream of detection flows through one shape: an Action
// with tagged sources, ordered steps, and (once processed) an impact model
// and a single canonical rank score. The impact and rank layers fill their
// sections in; this package owns the shape.
package action

import (
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// SourceKind tags where an action came from.
type SourceKind string

const (
	SourceIssue        SourceKind = "ISSUE"
	SourcePreIssue     SourceKind = "PREISSUE"
	SourceGoal         SourceKind = "GOAL"
	SourceOpportunity  SourceKind = "OPPORTUNITY"
	SourceIntroduction SourceKind = "INTRODUCTION"
	SourceFollowup     SourceKind = "FOLLOWUP"
)

// sourcePrecedence orders kinds for primary-source selection.
var sourcePrecedence = map[SourceKind]int{
	SourceIssue:        0,
	SourcePreIssue:     1,
	SourceGoal:         2,
	SourceOpportunity:  3,
	SourceIntroduction: 4,
	SourceFollowup:     5,
}

// Source is one tagged origin of an action.
type Source struct {
	Kind SourceKind `json:"kind"`

	// RefID references the originating issue, pre-issue, candidate, goal,
	// or action.
	RefID string `json:"ref_id"`
}

// Step is one ordered recommended step.
type Step struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
}

// GoalImpact is the per-goal breakdown inside an impact model.
type GoalImpact struct {
	GoalID string `json:"goal_id"`

	// Weight is baseWeightByType * stageModifier * priorityOverride.
	Weight float64 `json:"weight"`

	// DeltaProbability is the estimated change in hit probability.
	DeltaProbability float64 `json:"delta_probability"`

	// Contribution is Weight * DeltaProbability.
	Contribution float64 `json:"contribution"`
}

// ImpactModel is the multi-dimension numeric justification for an action.
type ImpactModel struct {
	UpsideMagnitude      float64 `json:"upside_magnitude"`
	ProbabilityOfSuccess float64 `json:"probability_of_success"`
	ExecutionProbability float64 `json:"execution_probability"`
	DownsideMagnitude    float64 `json:"downside_magnitude"`
	TimeToImpactDays     float64 `json:"time_to_impact_days"`
	EffortCost           float64 `json:"effort_cost"`
	SecondOrderLeverage  float64 `json:"second_order_leverage"`

	// ProactivityBonus rewards acting before a problem confirms.
	// Non-zero only for ISSUE and PREISSUE sourced actions.
	ProactivityBonus float64 `json:"proactivity_bonus"`

	// Explanation is the ordered audit trail, dominant component first.
	// At most four entries.
	Explanation []string `json:"explanation"`

	// PerGoal breaks the upside down by affected goal.
	PerGoal []GoalImpact `json:"per_goal,omitempty"`
}

// RankBreakdown is the component decomposition of a rank score. The gate
// verifies the components reconstruct the total within epsilon.
type RankBreakdown struct {
	ExpectedNetImpact        float64 `json:"expected_net_impact"`
	TrustPenalty             float64 `json:"trust_penalty"`
	ExecutionFrictionPenalty float64 `json:"execution_friction_penalty"`
	TimeCriticalityBoost     float64 `json:"time_criticality_boost"`
	SourceTypeBoost          float64 `json:"source_type_boost"`
	PatternLift              float64 `json:"pattern_lift"`
}

// Total reconstructs the rank score from its components.
func (b RankBreakdown) Total() float64 {
	return b.ExpectedNetImpact - b.TrustPenalty - b.ExecutionFrictionPenalty +
		b.TimeCriticalityBoost + b.SourceTypeBoost + b.PatternLift
}

// Action is one recommended unit of work.
type Action struct {
	// ID is deterministic for a given snapshot: companyID/type/entityID.
	ID        string           `json:"id"`
	CompanyID string           `json:"company_id"`
	Entity    domain.EntityRef `json:"entity"`

	// Type is the pattern-lift bucket (RUNWAY_BREACH, GOAL_MISS, ...).
	Type string `json:"type"`

	Title   string   `json:"title"`
	Sources []Source `json:"sources"`
	Steps   []Step   `json:"steps"`

	// Complexity is the stated execution complexity, 1-3.
	Complexity int `json:"complexity"`

	// Due is an optional hard deadline (e.g. a pre-issue escalation date).
	Due *time.Time `json:"due,omitempty"`

	// Impact is attached by the impact layer.
	Impact *ImpactModel `json:"impact,omitempty"`

	// RankScore is the single canonical priority scalar, set by the
	// ranking engine. No other number may reorder actions.
	RankScore float64 `json:"rank_score"`

	// Rank is the 1-indexed position after sorting. Zero before ranking.
	Rank int `json:"rank,omitempty"`

	// Breakdown decomposes RankScore for the trace.
	Breakdown *RankBreakdown `json:"breakdown,omitempty"`
}

// PrimarySource returns the highest-precedence source kind.
func (a *Action) PrimarySource() SourceKind {
	if len(a.Sources) == 0 {
		return ""
	}
	best := a.Sources[0].Kind
	for _, s := range a.Sources[1:] {
		if sourcePrecedence[s.Kind] < sourcePrecedence[best] {
			best = s.Kind
		}
	}
	return best
}

// HasSource reports whether the action carries a source of the given kind.
func (a *Action) HasSource(kind SourceKind) bool {
	for _, s := range a.Sources {
		if s.Kind == kind {
			return true
		}
	}
	return false
}
