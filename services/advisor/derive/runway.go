// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package derive computes first-layer metrics from raw facts: runway,
// goal trajectories, and the bounded company health score.
//
// # Description
//
// Nothing in this package is cached or persisted. Every value is a pure
// function of the raw snapshot and "now", recomputed each run.
package derive

import (
	"time"
)

// Runway is the derived cash runway for one company.
type Runway struct {
	// Months is the projected months of cash remaining at current burn.
	Months float64 `json:"months"`

	// Confidence is how much to trust the projection, in [0,1].
	Confidence float64 `json:"confidence"`

	// Defined is false when runway cannot be computed (burn <= 0).
	Defined bool `json:"defined"`
}

// staleAfterDays degrades confidence when the cash snapshot is older.
const staleAfterDays = 60

// DeriveRunway projects months of runway from cash and monthly burn.
//
// Description:
//
//	Runway is cash divided by burn, adjusted for time elapsed since the
//	snapshot. Burn at or below zero yields an undefined, low-confidence
//	result, never an error: a profitable company has no runway problem.
//
// Inputs:
//
//	cashUSD - Cash on hand as of asOf.
//	monthlyBurnUSD - Net monthly burn. Zero or negative means not burning.
//	asOf - When the cash figure was observed.
//	now - The current instant.
//
// Outputs:
//
//	Runway - The projection. Defined=false when burn <= 0.
func DeriveRunway(cashUSD, monthlyBurnUSD float64, asOf, now time.Time) Runway {
	if monthlyBurnUSD <= 0 {
		return Runway{Months: 0, Confidence: 0.2, Defined: false}
	}

	// Burn down the cash for the time already elapsed since the snapshot.
	elapsedMonths := now.Sub(asOf).Hours() / (24 * 30)
	if elapsedMonths < 0 {
		elapsedMonths = 0
	}
	remaining := cashUSD - monthlyBurnUSD*elapsedMonths
	if remaining < 0 {
		remaining = 0
	}

	confidence := 0.9
	if now.Sub(asOf) > staleAfterDays*24*time.Hour {
		confidence = 0.5
	}

	return Runway{
		Months:     remaining / monthlyBurnUSD,
		Confidence: confidence,
		Defined:    true,
	}
}
