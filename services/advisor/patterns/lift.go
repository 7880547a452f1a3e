// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patterns derives a bounded, decayed ranking adjustment from
// historical outcome events.
//
// # Description
//
// Per action-type bucket, outcome-recorded events contribute a
// recency-decayed weighted signal. Buckets below the minimum observation
// count contribute zero lift (cold start is a neutral result, never an
// error), and |lift| never exceeds the configured maximum.
package patterns

import (
	"math"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// BucketStats is the per-bucket accounting behind a lift value.
type BucketStats struct {
	ActionType string `json:"action_type"`

	// Observations is the raw outcome event count (undecayed).
	Observations int `json:"observations"`

	// WeightedSignal is the decayed weighted average outcome in [0,1].
	WeightedSignal float64 `json:"weighted_signal"`

	// Confidence grows with log(observations) up to 1.
	Confidence float64 `json:"confidence"`

	// Lift is the final bounded adjustment.
	Lift float64 `json:"lift"`

	// SkippedImpure counts events rejected by the purity check.
	SkippedImpure int `json:"skipped_impure,omitempty"`
}

// Lifts computes the lift per action-type bucket.
//
// Inputs:
//
//	events - The append-only event stream. Impure events are skipped.
//	cfg - Lift configuration.
//	now - The current instant, anchoring recency decay.
//
// Outputs:
//
//	map[string]float64 - Lift per action type. Absent buckets mean zero.
func Lifts(events []domain.Event, cfg config.Lift, now time.Time) map[string]float64 {
	stats := Stats(events, cfg, now)
	out := make(map[string]float64, len(stats))
	for typ, s := range stats {
		out[typ] = s.Lift
	}
	return out
}

// Stats computes the full per-bucket accounting.
func Stats(events []domain.Event, cfg config.Lift, now time.Time) map[string]BucketStats {
	type accum struct {
		signalSum float64
		weightSum float64
		count     int
		skipped   int
	}
	buckets := make(map[string]*accum)

	for _, e := range events {
		if e.Type != domain.EventOutcomeRecorded {
			continue
		}
		b := buckets[e.ActionType]
		if b == nil {
			b = &accum{}
			buckets[e.ActionType] = b
		}

		if domain.CheckPayloadPurity(e) != nil {
			b.skipped++
			continue
		}

		signal, ok := outcomeSignal(e.Payload)
		if !ok {
			continue
		}

		weight := cfg.UnnotedWeight
		if hasNotes(e.Payload) {
			weight = cfg.NotedWeight
		}

		ageDays := now.Sub(e.Timestamp).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		decay := math.Pow(0.5, ageDays/cfg.HalfLifeDays)

		b.signalSum += signal * weight * decay
		b.weightSum += weight * decay
		b.count++
	}

	out := make(map[string]BucketStats, len(buckets))
	for typ, b := range buckets {
		s := BucketStats{
			ActionType:    typ,
			Observations:  b.count,
			SkippedImpure: b.skipped,
		}
		if b.count >= cfg.MinObservations && b.weightSum > 0 {
			s.WeightedSignal = b.signalSum / b.weightSum
			s.Confidence = min(1, cfg.ConfidenceLogBase*math.Log(1+float64(b.count)))

			// Normalize around the neutral midpoint into [-1,1], then
			// scale into the bounded lift range.
			normalized := (s.WeightedSignal - cfg.NeutralMidpoint) / cfg.NeutralMidpoint
			if normalized > 1 {
				normalized = 1
			}
			if normalized < -1 {
				normalized = -1
			}
			s.Lift = normalized * s.Confidence * cfg.Max
		}
		out[typ] = s
	}
	return out
}

// outcomeSignal maps a recorded outcome to [0,1]. Unknown outcomes carry
// no signal.
func outcomeSignal(payload map[string]any) (float64, bool) {
	v, ok := payload["outcome"]
	if !ok {
		return 0, false
	}
	switch s := v.(type) {
	case string:
		switch s {
		case "success":
			return 1.0, true
		case "partial":
			return 0.5, true
		case "failure":
			return 0.0, true
		}
	case bool:
		if s {
			return 1.0, true
		}
		return 0.0, true
	}
	return 0, false
}

func hasNotes(payload map[string]any) bool {
	v, ok := payload["notes"]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s != ""
}
