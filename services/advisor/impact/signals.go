// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"math"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/action"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/detect"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/forecast"
)

// Signal is the unified numeric extraction behind ISSUE and PREISSUE
// upside: whatever the source looked like, impact math sees one shape.
type Signal struct {
	// StakeUSD is the dollar amount at risk.
	StakeUSD float64

	// Probability the problem lands absent intervention, in [0,1].
	// Present problems carry near-certainty.
	Probability float64

	// TimeToImpactDays until the problem confirms. Zero for present ones.
	TimeToImpactDays float64

	// SeverityTier is 0-3.
	SeverityTier int

	// Irreversibility in [0.2, 0.9].
	Irreversibility float64
}

// presentProblemProbability: a detected issue is already real; the residual
// uncertainty is only about measurement.
const presentProblemProbability = 0.9

// signalFromIssue extracts the unified signal from a detected issue.
func signalFromIssue(iss detect.Issue, cashUSD float64, f config.Forecast) Signal {
	typ := issueType(iss.Heuristic)
	return Signal{
		StakeUSD:         stakeFromEvidence(iss.Evidence, cashUSD),
		Probability:      presentProblemProbability,
		TimeToImpactDays: 0,
		SeverityTier:     iss.Severity.Tier(),
		Irreversibility: clamp(f.IrreversibilityBase[typ],
			f.IrreversibilityMin, f.IrreversibilityMax),
	}
}

// signalFromPreIssue extracts the unified signal from a forecast.
func signalFromPreIssue(pi forecast.PreIssue, cashUSD float64) Signal {
	return Signal{
		StakeUSD:         stakeFromEvidence(pi.Evidence, cashUSD),
		Probability:      pi.Probability,
		TimeToImpactDays: pi.TimeToBreachDays,
		SeverityTier:     pi.Severity.Tier(),
		Irreversibility:  pi.Irreversibility,
	}
}

// stakeFromEvidence pulls the dollar stake out of detector evidence,
// preferring an explicit deal amount, then cash at risk.
func stakeFromEvidence(evidence map[string]float64, cashUSD float64) float64 {
	if amount, ok := evidence["amount_usd"]; ok && amount > 0 {
		return amount
	}
	if cash, ok := evidence["cash_usd"]; ok && cash > 0 {
		return cash
	}
	return cashUSD
}

// NormalizedStake maps a dollar stake into [0, cap] on a log scale:
// min(cap, k*log10(1+stake/unit)). Doubling the stake matters less the
// bigger it already is.
func NormalizedStake(stakeUSD float64, cfg config.Impact) float64 {
	if stakeUSD <= 0 {
		return 0
	}
	v := cfg.StakeLogCoefficient * math.Log10(1+stakeUSD/cfg.StakeUnitUSD)
	return min(cfg.StakeCap, v)
}

// issueType maps a detection heuristic to its pre-issue bucket.
func issueType(heuristic string) string {
	switch heuristic {
	case "RUNWAY_LOW":
		return config.TypeRunwayBreach
	case "GOAL_OFF_TRACK":
		return config.TypeGoalMiss
	case "DEAL_STALE":
		return config.TypeDealStall
	default:
		return heuristic
	}
}

// tierKey returns the action's bucket for a source kind, used for
// tier clamping.
func tierKey(kind action.SourceKind) string {
	switch kind {
	case action.SourceIssue:
		return "ISSUE"
	case action.SourcePreIssue:
		return "PREISSUE"
	default:
		return string(kind)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
