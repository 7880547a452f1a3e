// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package forecast

// CostOfDelayCurve expresses the growing cost of inaction as an escalation
// window nears.
//
// # Description
//
// The curve is piecewise linear over days-until-escalation: 1.0x beyond 30
// days, 1.5x at 14 days, 2.5x at 7 days, 5.0x at escalation, and growing
// linearly past it. The whole curve scales by a fixed per-type multiplier.
// EscalationInDays is captured at construction, so the curve is evaluable
// at arbitrary horizons without re-deriving the escalation window.
type CostOfDelayCurve struct {
	// TypeMultiplier scales the curve per pre-issue type, in 0.6-1.5.
	TypeMultiplier float64 `json:"type_multiplier"`

	// EscalationInDays is days from now until escalation.
	EscalationInDays float64 `json:"escalation_in_days"`

	// PostEscalationGrowthPerDay is the linear growth rate past escalation.
	PostEscalationGrowthPerDay float64 `json:"post_escalation_growth_per_day"`
}

// Curve breakpoints in days-until-escalation and their base multipliers.
const (
	farDays  = 30.0
	midDays  = 14.0
	nearDays = 7.0

	farMult        = 1.0
	midMult        = 1.5
	nearMult       = 2.5
	escalationMult = 5.0
)

// At evaluates the delay multiplier at a horizon of days from now.
//
// Inputs:
//
//	horizonDays - Days from now. 0 means "acting today"; 7 means "waiting a
//	week"; EscalationInDays means "waiting until escalation".
//
// Outputs:
//
//	float64 - The cost-of-delay multiplier at that horizon.
func (c CostOfDelayCurve) At(horizonDays float64) float64 {
	untilEscalation := c.EscalationInDays - horizonDays
	return c.TypeMultiplier * baseMultiplier(untilEscalation, c.PostEscalationGrowthPerDay)
}

// AtEscalation evaluates the curve at the escalation point itself.
func (c CostOfDelayCurve) AtEscalation() float64 {
	return c.At(c.EscalationInDays)
}

// baseMultiplier is the unscaled piecewise-linear curve.
func baseMultiplier(untilEscalation, growthPerDay float64) float64 {
	switch {
	case untilEscalation >= farDays:
		return farMult
	case untilEscalation >= midDays:
		return lerp(untilEscalation, farDays, farMult, midDays, midMult)
	case untilEscalation >= nearDays:
		return lerp(untilEscalation, midDays, midMult, nearDays, nearMult)
	case untilEscalation >= 0:
		return lerp(untilEscalation, nearDays, nearMult, 0, escalationMult)
	default:
		// Past escalation the cost keeps growing.
		return escalationMult + growthPerDay*(-untilEscalation)
	}
}

// lerp interpolates linearly between (x0,y0) and (x1,y1).
func lerp(x, x0, y0, x1, y1 float64) float64 {
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}
