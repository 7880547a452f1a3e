// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the doctrine constants: every threshold, band,
// multiplier, and weight table the pipeline computes with.
//
// # Description
//
// Doctrine is pure configuration, fixed at startup. Components receive it
// by value and never mutate it; there is no runtime rules engine. An
// optional YAML file can override individual tables for calibration runs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Doctrine is the full constant table for one pipeline run.
type Doctrine struct {
	Thresholds  Thresholds  `yaml:"thresholds"`
	Forecast    Forecast    `yaml:"forecast"`
	Opportunity Opportunity `yaml:"opportunity"`
	Impact      Impact      `yaml:"impact"`
	Lift        Lift        `yaml:"lift"`
	Rank        Rank        `yaml:"rank"`
	Health      Health      `yaml:"health"`

	// Templates maps a detection heuristic or source kind to its
	// resolution template.
	Templates map[string]Template `yaml:"templates"`

	// ForbiddenFields is the denylist for the stored-derivation scan: no
	// raw input record may carry any of these keys.
	ForbiddenFields []string `yaml:"forbidden_fields"`
}

// Thresholds gates the current-problem detectors.
type Thresholds struct {
	// RunwayCriticalMonths is the runway below which severity is critical.
	RunwayCriticalMonths float64 `yaml:"runway_critical_months"`

	// RunwayWarningMonths is the runway below which severity is high.
	RunwayWarningMonths float64 `yaml:"runway_warning_months"`

	// DealStaleDays marks a deal stale after this many days of inactivity.
	DealStaleDays int `yaml:"deal_stale_days"`

	// OffTrackHighProbability: off-track goals below this hit probability
	// escalate from medium to high.
	OffTrackHighProbability float64 `yaml:"off_track_high_probability"`
}

// Forecast parameterizes the pre-issue forecaster.
type Forecast struct {
	// BufferDays is the per-type escalation buffer: a pre-issue escalates
	// this many days before its projected breach.
	BufferDays map[string]float64 `yaml:"buffer_days"`

	// ImminentWithinDays marks a pre-issue imminent when escalation is at
	// most this many days away.
	ImminentWithinDays float64 `yaml:"imminent_within_days"`

	// CostOfDelayTypeMultiplier scales the delay curve per type, in 0.6-1.5.
	CostOfDelayTypeMultiplier map[string]float64 `yaml:"cost_of_delay_type_multiplier"`

	// PostEscalationGrowthPerDay is how fast the delay multiplier keeps
	// climbing past escalation.
	PostEscalationGrowthPerDay float64 `yaml:"post_escalation_growth_per_day"`

	// IrreversibilityBase is the per-type irreversibility before evidence
	// adjustment; results clamp to [IrreversibilityMin, IrreversibilityMax].
	IrreversibilityBase map[string]float64 `yaml:"irreversibility_base"`
	IrreversibilityMin  float64            `yaml:"irreversibility_min"`
	IrreversibilityMax  float64            `yaml:"irreversibility_max"`

	// ImpactMagnitude is the fixed per-type magnitude, in 25-80.
	ImpactMagnitude map[string]float64 `yaml:"impact_magnitude"`

	// GoalMissSuppressAbove suppresses GOAL_MISS pre-issues when the
	// trajectory's probability of hit is at or above this value.
	GoalMissSuppressAbove float64 `yaml:"goal_miss_suppress_above"`
}

// Opportunity parameterizes the positive-sum generators.
type Opportunity struct {
	// MaxHops caps introducer paths (2 = one intermediary).
	MaxHops int `yaml:"max_hops"`

	// HopPenalty is the per-extra-hop length penalty base (score is
	// multiplied by HopPenalty^(hops-1)).
	HopPenalty float64 `yaml:"hop_penalty"`

	// ObviousStrength suppresses 1-hop paths at or above this strength.
	ObviousStrength float64 `yaml:"obvious_strength"`

	// RecentTouchDays suppresses paths touched within this window.
	RecentTouchDays int `yaml:"recent_touch_days"`

	// TimingWindowDays is how far ahead calendar/fund windows match.
	TimingWindowDays int `yaml:"timing_window_days"`

	// SynergyMinOverlap is the minimum shared-goal-type overlap for a
	// cross-company synergy candidate.
	SynergyMinOverlap int `yaml:"synergy_min_overlap"`
}

// Impact parameterizes the seven-dimension impact model.
type Impact struct {
	// GoalBaseWeight is the base weight by goal type.
	GoalBaseWeight map[string]float64 `yaml:"goal_base_weight"`

	// StageModifier scales goal weight by company stage.
	StageModifier map[string]float64 `yaml:"stage_modifier"`

	// StakeLogCoefficient and StakeUnitUSD define
	// normalizedStake = min(StakeCap, k*log10(1+stake/unit)).
	StakeLogCoefficient float64 `yaml:"stake_log_coefficient"`
	StakeUnitUSD        float64 `yaml:"stake_unit_usd"`
	StakeCap            float64 `yaml:"stake_cap"`

	// SeverityBoost scales delta-probability by severity tier (0-3).
	SeverityBoost [4]float64 `yaml:"severity_boost"`

	// UpsideScale converts summed goal contributions into magnitude units
	// before tier clamping.
	UpsideScale float64 `yaml:"upside_scale"`

	// UrgentWithinDays boosts near-term signals.
	UrgentWithinDays float64 `yaml:"urgent_within_days"`
	UrgencyBoost     float64 `yaml:"urgency_boost"`

	// Upside floor/ceiling bands per source kind. ISSUE bands sit strictly
	// above PREISSUE bands so present problems outrank forecasts on average.
	UpsideFloor   map[string]float64 `yaml:"upside_floor"`
	UpsideCeiling map[string]float64 `yaml:"upside_ceiling"`

	// OpportunityBaseUpside is the fixed base for OPPORTUNITY sources;
	// IntroductionBaseUpside for INTRODUCTION.
	OpportunityBaseUpside  float64 `yaml:"opportunity_base_upside"`
	IntroductionBaseUpside float64 `yaml:"introduction_base_upside"`

	// TimingMultiplier maps NOW/SOON/LATER/NEVER to a scale factor.
	TimingMultiplier map[string]float64 `yaml:"timing_multiplier"`

	// ProactivityLogCoefficient and ProactivityCap define
	// proactivityBonus = probability * min(cap, k*log2(1+ttiDays/7)).
	ProactivityLogCoefficient float64 `yaml:"proactivity_log_coefficient"`
	ProactivityCap            float64 `yaml:"proactivity_cap"`

	// MaxExplanationEntries bounds the ordered explanation list.
	MaxExplanationEntries int `yaml:"max_explanation_entries"`

	// LeveragePerUnblocked and LeveragePerExtraGoal feed secondOrderLeverage.
	LeveragePerUnblocked float64 `yaml:"leverage_per_unblocked"`
	LeveragePerExtraGoal float64 `yaml:"leverage_per_extra_goal"`
	LeverageMax          float64 `yaml:"leverage_max"`
}

// Lift parameterizes pattern lift.
type Lift struct {
	// HalfLifeDays is the recency-decay half-life for outcome signals.
	HalfLifeDays float64 `yaml:"half_life_days"`

	// MinObservations is the cold-start floor: below it, lift is zero.
	MinObservations int `yaml:"min_observations"`

	// NeutralMidpoint is the signal value treated as "no lift".
	NeutralMidpoint float64 `yaml:"neutral_midpoint"`

	// ConfidenceLogBase scales confidence growth with observation count.
	ConfidenceLogBase float64 `yaml:"confidence_log_base"`

	// Max bounds |lift|.
	Max float64 `yaml:"max"`

	// NotedWeight and UnnotedWeight weight outcome events with and without
	// operator notes.
	NotedWeight   float64 `yaml:"noted_weight"`
	UnnotedWeight float64 `yaml:"unnoted_weight"`
}

// Rank parameterizes the ranking engine.
type Rank struct {
	// TimePenaltyCap and TimePenaltyDivisorDays define
	// timePenalty(d) = min(cap, d/divisor).
	TimePenaltyCap         float64 `yaml:"time_penalty_cap"`
	TimePenaltyDivisorDays float64 `yaml:"time_penalty_divisor_days"`

	// TrustRiskThreshold is the risk below which trustPenalty is zero;
	// TrustPenaltyScale sets the slope above it.
	TrustRiskThreshold float64 `yaml:"trust_risk_threshold"`
	TrustPenaltyScale  float64 `yaml:"trust_penalty_scale"`

	// FrictionPerStep and FrictionPerComplexity build the execution
	// friction penalty.
	FrictionPerStep       float64 `yaml:"friction_per_step"`
	FrictionPerComplexity float64 `yaml:"friction_per_complexity"`

	// DeadlineHorizonDays and TimeCriticalityMax define the deadline boost:
	// zero outside the horizon, rising to max as the deadline arrives.
	DeadlineHorizonDays float64 `yaml:"deadline_horizon_days"`
	TimeCriticalityMax  float64 `yaml:"time_criticality_max"`

	// SourceTypeBoost fixes the source ordering ISSUE > PREISSUE > others.
	SourceTypeBoost map[string]float64 `yaml:"source_type_boost"`

	// Epsilon is the trace-integrity reconstruction tolerance;
	// DeterminismTolerance bounds score drift between identical runs.
	Epsilon              float64 `yaml:"epsilon"`
	DeterminismTolerance float64 `yaml:"determinism_tolerance"`
}

// Health parameterizes the bounded company health score.
type Health struct {
	// RunwayWeight, TrajectoryWeight, DealWeight sum to 1.
	RunwayWeight     float64 `yaml:"runway_weight"`
	TrajectoryWeight float64 `yaml:"trajectory_weight"`
	DealWeight       float64 `yaml:"deal_weight"`

	// RunwayFullScoreMonths is the runway at which the runway component
	// saturates.
	RunwayFullScoreMonths float64 `yaml:"runway_full_score_months"`
}

// Template is a resolution template for one heuristic or source kind.
type Template struct {
	// Steps are the ordered recommended steps.
	Steps []string `yaml:"steps"`

	// Effectiveness is how much of the underlying gap resolution closes.
	Effectiveness float64 `yaml:"effectiveness"`

	// SuccessProbability is the base probability of success.
	SuccessProbability float64 `yaml:"success_probability"`

	// ExecutionProbability is the base probability the operator executes.
	ExecutionProbability float64 `yaml:"execution_probability"`

	// EffortCost is the base effort in operator-hours-equivalent units.
	EffortCost float64 `yaml:"effort_cost"`

	// TimeToImpactDays is the base days until impact lands.
	TimeToImpactDays float64 `yaml:"time_to_impact_days"`

	// Complexity is the stated complexity, 1 (trivial) to 3 (involved).
	Complexity int `yaml:"complexity"`

	// Unblocks estimates how many downstream items resolution unblocks.
	Unblocks int `yaml:"unblocks"`
}

// Pre-issue and heuristic type names shared across the pipeline.
const (
	TypeRunwayBreach = "RUNWAY_BREACH"
	TypeGoalMiss     = "GOAL_MISS"
	TypeDealStall    = "DEAL_STALL"
)

// Default returns the canonical doctrine.
//
// The tables follow the most complete observed variant; calibration notes
// live beside each value.
func Default() Doctrine {
	return Doctrine{
		Thresholds: Thresholds{
			RunwayCriticalMonths:    3,
			RunwayWarningMonths:     6,
			DealStaleDays:           14,
			OffTrackHighProbability: 0.3,
		},
		Forecast: Forecast{
			BufferDays: map[string]float64{
				TypeRunwayBreach: 90,
				TypeGoalMiss:     14,
				TypeDealStall:    7,
			},
			ImminentWithinDays: 7,
			CostOfDelayTypeMultiplier: map[string]float64{
				TypeRunwayBreach: 1.5,
				TypeGoalMiss:     1.0,
				TypeDealStall:    0.6,
			},
			PostEscalationGrowthPerDay: 0.2,
			IrreversibilityBase: map[string]float64{
				TypeRunwayBreach: 0.8,
				TypeGoalMiss:     0.5,
				TypeDealStall:    0.35,
			},
			IrreversibilityMin: 0.2,
			IrreversibilityMax: 0.9,
			ImpactMagnitude: map[string]float64{
				TypeRunwayBreach: 80,
				TypeGoalMiss:     45,
				TypeDealStall:    25,
			},
			GoalMissSuppressAbove: 0.6,
		},
		Opportunity: Opportunity{
			MaxHops:          2,
			HopPenalty:       0.7,
			ObviousStrength:  0.8,
			RecentTouchDays:  30,
			TimingWindowDays: 45,
			SynergyMinOverlap: 1,
		},
		Impact: Impact{
			GoalBaseWeight: map[string]float64{
				"fundraise": 1.5,
				"revenue":   1.2,
				"product":   1.0,
				"hiring":    0.8,
			},
			StageModifier: map[string]float64{
				"preseed":  0.8,
				"seed":     1.0,
				"series_a": 1.2,
				"series_b": 1.3,
				"growth":   1.1,
			},
			StakeLogCoefficient: 0.25,
			StakeUnitUSD:        10_000,
			StakeCap:            1.0,
			SeverityBoost:       [4]float64{0.6, 1.0, 1.3, 1.6},
			UpsideScale:         60,
			UrgentWithinDays:    14,
			UrgencyBoost:        1.25,
			UpsideFloor: map[string]float64{
				"ISSUE":    30,
				"PREISSUE": 15,
			},
			UpsideCeiling: map[string]float64{
				"ISSUE":    95,
				"PREISSUE": 60,
			},
			OpportunityBaseUpside:  28,
			IntroductionBaseUpside: 22,
			TimingMultiplier: map[string]float64{
				"NOW":   1.2,
				"SOON":  1.0,
				"LATER": 0.7,
				"NEVER": 0.0,
			},
			ProactivityLogCoefficient: 2.0,
			ProactivityCap:            8,
			MaxExplanationEntries:     4,
			LeveragePerUnblocked:      1.5,
			LeveragePerExtraGoal:      1.0,
			LeverageMax:               10,
		},
		Lift: Lift{
			HalfLifeDays:      30,
			MinObservations:   3,
			NeutralMidpoint:   0.5,
			ConfidenceLogBase: 0.35,
			Max:               6,
			NotedWeight:       1.0,
			UnnotedWeight:     0.5,
		},
		Rank: Rank{
			TimePenaltyCap:         30,
			TimePenaltyDivisorDays: 7,
			TrustRiskThreshold:     0.3,
			TrustPenaltyScale:      20,
			FrictionPerStep:        0.5,
			FrictionPerComplexity:  1.5,
			DeadlineHorizonDays:    30,
			TimeCriticalityMax:     10,
			SourceTypeBoost: map[string]float64{
				"ISSUE":        8,
				"PREISSUE":     5,
				"GOAL":         3,
				"OPPORTUNITY":  2,
				"INTRODUCTION": 2,
				"FOLLOWUP":     1,
			},
			Epsilon:              1e-6,
			DeterminismTolerance: 1e-4,
		},
		Health: Health{
			RunwayWeight:          0.4,
			TrajectoryWeight:      0.4,
			DealWeight:            0.2,
			RunwayFullScoreMonths: 18,
		},
		Templates: map[string]Template{
			TypeRunwayBreach: {
				Steps: []string{
					"Review burn drivers with the founding team",
					"Model a reduced-burn scenario and a bridge scenario",
					"Line up existing investors for a bridge conversation",
				},
				Effectiveness:        0.7,
				SuccessProbability:   0.65,
				ExecutionProbability: 0.85,
				EffortCost:           6,
				TimeToImpactDays:     21,
				Complexity:           3,
				Unblocks:             2,
			},
			TypeGoalMiss: {
				Steps: []string{
					"Walk the goal owner through the trajectory gap",
					"Re-scope the goal or unblock the constraint",
				},
				Effectiveness:        0.6,
				SuccessProbability:   0.7,
				ExecutionProbability: 0.9,
				EffortCost:           3,
				TimeToImpactDays:     14,
				Complexity:           2,
				Unblocks:             1,
			},
			TypeDealStall: {
				Steps: []string{
					"Ping the deal owner for status",
					"Offer an intro or reference call to restart momentum",
				},
				Effectiveness:        0.55,
				SuccessProbability:   0.6,
				ExecutionProbability: 0.95,
				EffortCost:           1.5,
				TimeToImpactDays:     7,
				Complexity:           1,
				Unblocks:             1,
			},
			"GOAL": {
				Steps: []string{
					"Agree the acceleration lever with the goal owner",
					"Commit the next concrete milestone",
				},
				Effectiveness:        0.5,
				SuccessProbability:   0.7,
				ExecutionProbability: 0.9,
				EffortCost:           2,
				TimeToImpactDays:     14,
				Complexity:           2,
				Unblocks:             1,
			},
			"OPPORTUNITY": {
				Steps: []string{
					"Validate the opportunity with both parties",
					"Schedule the working session",
				},
				Effectiveness:        0.5,
				SuccessProbability:   0.55,
				ExecutionProbability: 0.8,
				EffortCost:           2,
				TimeToImpactDays:     21,
				Complexity:           2,
				Unblocks:             1,
			},
			"INTRODUCTION": {
				Steps: []string{
					"Confirm both sides want the intro",
					"Send the double-opt-in email",
				},
				Effectiveness:        0.45,
				SuccessProbability:   0.6,
				ExecutionProbability: 0.95,
				EffortCost:           0.5,
				TimeToImpactDays:     10,
				Complexity:           1,
				Unblocks:             1,
			},
			"FOLLOWUP": {
				Steps: []string{
					"Check the recorded outcome",
					"Close the loop with the operator",
				},
				Effectiveness:        0.4,
				SuccessProbability:   0.75,
				ExecutionProbability: 0.95,
				EffortCost:           0.5,
				TimeToImpactDays:     5,
				Complexity:           1,
				Unblocks:             0,
			},
		},
		ForbiddenFields: []string{
			"rankScore", "rank", "upsideMagnitude", "expectedNetImpact",
			"patternLift", "priorityScore", "runwayMonths", "healthScore",
			"probabilityOfHit", "impactModel", "rankBreakdown",
		},
	}
}

// ForbiddenFieldSet returns the denylist as a set for the scan walker.
func (d Doctrine) ForbiddenFieldSet() map[string]bool {
	set := make(map[string]bool, len(d.ForbiddenFields))
	for _, f := range d.ForbiddenFields {
		set[f] = true
	}
	return set
}

// Load reads a YAML doctrine override file on top of Default.
//
// Inputs:
//
//	path - The override file. Empty path returns Default unchanged.
//
// Outputs:
//
//	Doctrine - The merged doctrine.
//	error - Non-nil if the file cannot be read or parsed.
func Load(path string) (Doctrine, error) {
	d := Default()
	if path == "" {
		return d, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Doctrine{}, fmt.Errorf("reading doctrine file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Doctrine{}, fmt.Errorf("parsing doctrine file: %w", err)
	}
	return d, nil
}
