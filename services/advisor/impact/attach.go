// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package impact attaches the seven-dimension impact model to actions.
//
// # Description
//
// Upside is goal-centric: the sum over affected goals of goal weight times
// the estimated change in hit probability, scaled into magnitude units and
// clamped to tier-dependent bands (ISSUE bands sit above PREISSUE bands).
// The remaining dimensions are small deterministic formulas keyed on
// resolution templates, signal severity, and company stage. Every model
// carries an ordered explanation of its dominant components.
package impact

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/action"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/derive"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/detect"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/forecast"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/opportunity"
)

// Context carries everything impact attachment reads for one company.
type Context struct {
	Company    *domain.Company
	Derived    *derive.Derived
	Issues     map[string]detect.Issue
	PreIssues  map[string]forecast.PreIssue
	Candidates map[string]opportunity.Candidate
	Now        time.Time
}

// Attacher computes impact models.
//
// # Thread Safety
//
// Attacher is stateless after construction. Safe for concurrent use.
type Attacher struct {
	doctrine config.Doctrine
}

// NewAttacher creates an attacher with the given doctrine.
func NewAttacher(doctrine config.Doctrine) *Attacher {
	return &Attacher{doctrine: doctrine}
}

// Attach computes and sets the impact model for every action in place.
func (at *Attacher) Attach(actions []action.Action, ctx Context) {
	for i := range actions {
		m := at.model(&actions[i], ctx)
		actions[i].Impact = &m
		recordModel(actions[i].Type, m)
	}
}

// model computes the full seven-dimension model for one action.
func (at *Attacher) model(a *action.Action, ctx Context) action.ImpactModel {
	cfg := at.doctrine.Impact
	tpl := at.doctrine.Templates[a.Type]

	var m action.ImpactModel

	primary := a.PrimarySource()
	switch primary {
	case action.SourceIssue, action.SourcePreIssue:
		sig, ok := at.primarySignal(a, ctx)
		if !ok {
			sig = Signal{Probability: 0.5, SeverityTier: 1, Irreversibility: 0.5}
		}
		m.PerGoal = at.goalContributions(a, sig, ctx)
		m.UpsideMagnitude = at.clampTier(primary, at.sumContributions(m.PerGoal, sig, a.Type))
		m.DownsideMagnitude = clamp(
			sig.Probability*sig.Irreversibility*at.doctrine.Forecast.ImpactMagnitude[a.Type],
			0, 80)
		m.ProactivityBonus = sig.Probability *
			min(cfg.ProactivityCap, cfg.ProactivityLogCoefficient*math.Log2(1+sig.TimeToImpactDays/7))

	case action.SourceGoal:
		m.PerGoal = at.goalGapContribution(a, ctx)
		m.UpsideMagnitude = clamp(at.weightedSum(m.PerGoal)*cfg.UpsideScale, 5, 60)
		m.DownsideMagnitude = 5

	default: // OPPORTUNITY, INTRODUCTION, FOLLOWUP
		base := cfg.OpportunityBaseUpside
		if primary == action.SourceIntroduction {
			base = cfg.IntroductionBaseUpside
		}
		timing := opportunity.TimingSoon
		if cand, ok := at.primaryCandidate(a, ctx); ok {
			timing = cand.Timing
		}
		m.UpsideMagnitude = base * cfg.TimingMultiplier[string(timing)]
		m.DownsideMagnitude = 3
	}

	m.ProbabilityOfSuccess = clamp(
		tpl.SuccessProbability*successSeverityAdjust(a, ctx), 0.05, 0.95)
	m.ExecutionProbability = clamp(
		tpl.ExecutionProbability*(1-0.1*float64(a.Complexity-1)), 0.2, 0.99)
	m.EffortCost = clamp(
		tpl.EffortCost*(1+0.25*float64(a.Complexity-1)), 0.5, 20)
	m.TimeToImpactDays = at.timeToImpact(a, tpl, ctx)
	m.SecondOrderLeverage = clamp(
		float64(tpl.Unblocks)*cfg.LeveragePerUnblocked+
			float64(max(0, len(m.PerGoal)-1))*cfg.LeveragePerExtraGoal,
		0, cfg.LeverageMax)

	m.Explanation = explain(m, primary, cfg.MaxExplanationEntries)
	return m
}

// primarySignal extracts the unified signal from the action's strongest
// problem source: ISSUE beats PREISSUE.
func (at *Attacher) primarySignal(a *action.Action, ctx Context) (Signal, bool) {
	for _, s := range a.Sources {
		if s.Kind != action.SourceIssue {
			continue
		}
		if iss, ok := ctx.Issues[s.RefID]; ok {
			return signalFromIssue(iss, ctx.Company.CashUSD, at.doctrine.Forecast), true
		}
	}
	for _, s := range a.Sources {
		if s.Kind != action.SourcePreIssue {
			continue
		}
		if pi, ok := ctx.PreIssues[s.RefID]; ok {
			return signalFromPreIssue(pi, ctx.Company.CashUSD), true
		}
	}
	return Signal{}, false
}

func (at *Attacher) primaryCandidate(a *action.Action, ctx Context) (opportunity.Candidate, bool) {
	for _, s := range a.Sources {
		if s.Kind == action.SourceOpportunity || s.Kind == action.SourceIntroduction {
			if cand, ok := ctx.Candidates[s.RefID]; ok {
				return cand, true
			}
		}
	}
	return opportunity.Candidate{}, false
}

// goalContributions computes per-goal delta-probability for problem
// sources. A goal-scoped problem affects its goal; a company-scoped one
// (runway) affects every active goal.
func (at *Attacher) goalContributions(a *action.Action, sig Signal, ctx Context) []action.GoalImpact {
	cfg := at.doctrine.Impact

	deltaP := NormalizedStake(sig.StakeUSD, cfg) *
		cfg.SeverityBoost[sig.SeverityTier] *
		sig.Probability
	if sig.TimeToImpactDays > 0 && sig.TimeToImpactDays <= cfg.UrgentWithinDays {
		deltaP *= cfg.UrgencyBoost
	}
	deltaP = clamp(deltaP, 0, 0.5)

	var out []action.GoalImpact
	for _, g := range ctx.Company.Goals {
		if g.Status == domain.GoalDone {
			continue
		}
		if a.Entity.Kind == domain.EntityGoal && a.Entity.ID != g.ID {
			continue
		}
		w := at.goalWeight(g, ctx.Company.Stage)
		out = append(out, action.GoalImpact{
			GoalID:           g.ID,
			Weight:           w,
			DeltaProbability: deltaP,
			Contribution:     w * deltaP,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GoalID < out[j].GoalID })
	return out
}

// goalGapContribution computes the GOAL-source upside: remaining gap times
// resolution effectiveness.
func (at *Attacher) goalGapContribution(a *action.Action, ctx Context) []action.GoalImpact {
	tpl := at.doctrine.Templates["GOAL"]
	for _, g := range ctx.Company.Goals {
		if g.ID != a.Entity.ID {
			continue
		}
		remaining := 1.0
		if tr, ok := ctx.Derived.Trajectories[g.ID]; ok {
			remaining = 1 - tr.ProbabilityOfHit
		}
		w := at.goalWeight(g, ctx.Company.Stage)
		deltaP := clamp(remaining*tpl.Effectiveness, 0, 0.6)
		return []action.GoalImpact{{
			GoalID:           g.ID,
			Weight:           w,
			DeltaProbability: deltaP,
			Contribution:     w * deltaP,
		}}
	}
	return nil
}

// goalWeight = baseWeightByType * stageModifier * priorityOverride.
func (at *Attacher) goalWeight(g domain.Goal, stage domain.Stage) float64 {
	cfg := at.doctrine.Impact
	base, ok := cfg.GoalBaseWeight[string(g.Type)]
	if !ok {
		base = 1.0
	}
	mod, ok := cfg.StageModifier[string(stage)]
	if !ok {
		mod = 1.0
	}
	override := g.Weight
	if override == 0 {
		override = 1.0
	}
	return base * mod * override
}

// sumContributions scales summed goal contributions into magnitude units.
// A company with no goals falls back to the type's fixed magnitude so a
// runway problem never scores zero for lack of goal records.
func (at *Attacher) sumContributions(perGoal []action.GoalImpact, sig Signal, typ string) float64 {
	if len(perGoal) == 0 {
		return at.doctrine.Forecast.ImpactMagnitude[typ] * sig.Probability
	}
	var sum float64
	for _, gi := range perGoal {
		sum += gi.Contribution
	}
	return sum * at.doctrine.Impact.UpsideScale
}

func (at *Attacher) weightedSum(perGoal []action.GoalImpact) float64 {
	var sum float64
	for _, gi := range perGoal {
		sum += gi.Contribution
	}
	return sum
}

// clampTier applies the tier-dependent floor and ceiling. ISSUE bands sit
// strictly above PREISSUE bands, keeping present problems above forecasts
// on average.
func (at *Attacher) clampTier(kind action.SourceKind, upside float64) float64 {
	cfg := at.doctrine.Impact
	key := tierKey(kind)
	floor, hasFloor := cfg.UpsideFloor[key]
	ceiling, hasCeiling := cfg.UpsideCeiling[key]
	if !hasFloor || !hasCeiling {
		return upside
	}
	return clamp(upside, floor, ceiling)
}

// successSeverityAdjust makes critical problems slightly harder to resolve.
func successSeverityAdjust(a *action.Action, ctx Context) float64 {
	for _, s := range a.Sources {
		if s.Kind != action.SourceIssue {
			continue
		}
		if iss, ok := ctx.Issues[s.RefID]; ok && iss.Severity == detect.SeverityCritical {
			return 0.85
		}
	}
	return 1.0
}

// timeToImpact starts from the template and never exceeds the breach
// window: resolving after the breach is not impact.
func (at *Attacher) timeToImpact(a *action.Action, tpl config.Template, ctx Context) float64 {
	tti := tpl.TimeToImpactDays
	if tti == 0 {
		tti = 14
	}
	for _, s := range a.Sources {
		if s.Kind != action.SourcePreIssue {
			continue
		}
		if pi, ok := ctx.PreIssues[s.RefID]; ok && pi.TimeToBreachDays > 0 {
			tti = min(tti, pi.TimeToBreachDays)
		}
	}
	return clamp(tti, 1, 120)
}

// explain builds the ordered, bounded explanation list from the dominant
// model components.
func explain(m action.ImpactModel, primary action.SourceKind, maxEntries int) []string {
	type component struct {
		weight float64
		text   string
	}

	components := []component{
		{m.UpsideMagnitude, fmt.Sprintf("upside %.1f across %d goal(s)", m.UpsideMagnitude, len(m.PerGoal))},
		{m.DownsideMagnitude, fmt.Sprintf("downside %.1f if unaddressed", m.DownsideMagnitude)},
		{m.ProactivityBonus, fmt.Sprintf("proactivity bonus %.1f for acting early", m.ProactivityBonus)},
		{m.SecondOrderLeverage, fmt.Sprintf("second-order leverage %.1f", m.SecondOrderLeverage)},
		{m.EffortCost, fmt.Sprintf("effort cost %.1f at p(success) %.2f", m.EffortCost, m.ProbabilityOfSuccess)},
	}

	sort.SliceStable(components, func(i, j int) bool {
		return components[i].weight > components[j].weight
	})

	out := []string{fmt.Sprintf("primary source %s", primary)}
	for _, c := range components {
		if len(out) >= maxEntries {
			break
		}
		if c.weight > 0 {
			out = append(out, c.text)
		}
	}
	return out
}
