// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rank computes the single canonical priority score and totally
// orders all actions.
//
// # Description
//
// Ranking is a pure function of (actions, context): identical inputs yield
// identical order and scores. The rank score is the only number that may
// order actions; its component breakdown is retained per action so the
// invariant gate can reconstruct every total.
package rank

import (
	"sort"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/action"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/patterns"
)

// Context is the optional contextual signal set for one ranking run.
type Context struct {
	// Now anchors deadline boosts and pattern-lift decay.
	Now time.Time

	// TrustRiskByAction supplies a [0,1] trust risk per action ID.
	TrustRiskByAction map[string]float64

	// DeadlineByAction overrides action due dates.
	DeadlineByAction map[string]time.Time

	// Events is the historical stream feeding pattern lift. Nil means no
	// lift anywhere.
	Events []domain.Event
}

// Trace records the scoring of one action, published or not.
type Trace struct {
	ActionID  string               `json:"action_id"`
	Score     float64              `json:"score"`
	Breakdown action.RankBreakdown `json:"breakdown"`
	Rank      int                  `json:"rank"`
	Published bool                 `json:"published"`
}

// Ranked is the output of one ranking run.
type Ranked struct {
	// Actions is the published list: non-negative scores, rank ascending.
	Actions []action.Action `json:"actions"`

	// Trace covers every input action, including excluded ones.
	Trace []Trace `json:"trace"`
}

// Rank scores and totally orders actions.
//
// Description:
//
//	Computes rankScore = expectedNetImpact - trustPenalty -
//	executionFrictionPenalty + timeCriticalityBoost + sourceTypeBoost +
//	patternLift for every action, sorts descending with ties broken by ID,
//	assigns 1-indexed ranks, and excludes negative scores from the
//	published list while retaining them in the trace.
//
// Inputs:
//
//	actions - Actions with impact models attached. The slice is not mutated.
//	ctx - Contextual signals. Zero value is valid.
//	doctrine - Ranking configuration.
//
// Outputs:
//
//	Ranked - Published actions and the full trace.
func Rank(actions []action.Action, ctx Context, doctrine config.Doctrine) Ranked {
	cfg := doctrine.Rank
	lifts := patterns.Lifts(ctx.Events, doctrine.Lift, ctx.Now)

	scored := make([]action.Action, len(actions))
	copy(scored, actions)

	for i := range scored {
		b := breakdown(&scored[i], ctx, cfg, lifts)
		scored[i].Breakdown = &b
		scored[i].RankScore = b.Total()
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].RankScore != scored[j].RankScore {
			return scored[i].RankScore > scored[j].RankScore
		}
		// Stable identifier comparison, never insertion order.
		return scored[i].ID < scored[j].ID
	})

	out := Ranked{Trace: make([]Trace, len(scored))}
	for i := range scored {
		scored[i].Rank = i + 1
		published := scored[i].RankScore >= 0
		out.Trace[i] = Trace{
			ActionID:  scored[i].ID,
			Score:     scored[i].RankScore,
			Breakdown: *scored[i].Breakdown,
			Rank:      scored[i].Rank,
			Published: published,
		}
		if published {
			out.Actions = append(out.Actions, scored[i])
		}
	}
	return out
}

// breakdown computes every score component for one action.
func breakdown(a *action.Action, ctx Context, cfg config.Rank, lifts map[string]float64) action.RankBreakdown {
	m := a.Impact
	if m == nil {
		m = &action.ImpactModel{}
	}

	combined := m.ExecutionProbability * m.ProbabilityOfSuccess

	b := action.RankBreakdown{
		ExpectedNetImpact: m.UpsideMagnitude*combined +
			m.SecondOrderLeverage -
			m.DownsideMagnitude*(1-combined) -
			m.EffortCost -
			timePenalty(m.TimeToImpactDays, cfg),
		TrustPenalty:             trustPenalty(ctx.TrustRiskByAction[a.ID], cfg),
		ExecutionFrictionPenalty: frictionPenalty(a, cfg),
		TimeCriticalityBoost:     timeCriticalityBoost(a, ctx, cfg),
		SourceTypeBoost:          cfg.SourceTypeBoost[string(a.PrimarySource())],
		PatternLift:              lifts[a.Type],
	}
	return b
}

// timePenalty grows with time-to-impact and saturates at the cap.
func timePenalty(ttiDays float64, cfg config.Rank) float64 {
	return min(cfg.TimePenaltyCap, ttiDays/cfg.TimePenaltyDivisorDays)
}

// trustPenalty is zero below the risk threshold, then increases
// monotonically with risk.
func trustPenalty(risk float64, cfg config.Rank) float64 {
	if risk <= cfg.TrustRiskThreshold {
		return 0
	}
	return (risk - cfg.TrustRiskThreshold) * cfg.TrustPenaltyScale
}

// frictionPenalty increases with step count and stated complexity.
func frictionPenalty(a *action.Action, cfg config.Rank) float64 {
	return cfg.FrictionPerStep*float64(len(a.Steps)) +
		cfg.FrictionPerComplexity*float64(max(0, a.Complexity-1))
}

// timeCriticalityBoost is zero for absent or far deadlines and strictly
// increases as the deadline nears, saturating at the max once overdue.
func timeCriticalityBoost(a *action.Action, ctx Context, cfg config.Rank) float64 {
	deadline, ok := ctx.DeadlineByAction[a.ID]
	if !ok {
		if a.Due == nil {
			return 0
		}
		deadline = *a.Due
	}

	days := deadline.Sub(ctx.Now).Hours() / 24
	if days >= cfg.DeadlineHorizonDays {
		return 0
	}
	if days <= 0 {
		return cfg.TimeCriticalityMax
	}
	return cfg.TimeCriticalityMax * (1 - days/cfg.DeadlineHorizonDays)
}
