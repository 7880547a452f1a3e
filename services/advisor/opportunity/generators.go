// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package opportunity generates positive-sum candidates independent of any
// detected problem.
//
// # Description
//
// Five generators run independently: relationship leverage, timing windows,
// cross-entity synergy, goal acceleration, and optionality building. All
// emit the same candidate shape the problem-sourced paths use, so the
// downstream pipeline does not care where a candidate came from.
package opportunity

import (
	"fmt"
	"sort"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/derive"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// Timing tags when a candidate should be acted on.
type Timing string

const (
	TimingNow   Timing = "NOW"
	TimingSoon  Timing = "SOON"
	TimingLater Timing = "LATER"
	TimingNever Timing = "NEVER"
)

// Kind distinguishes plain opportunities from introductions.
type Kind string

const (
	KindOpportunity  Kind = "OPPORTUNITY"
	KindIntroduction Kind = "INTRODUCTION"
)

// Candidate is one positive-sum suggestion.
type Candidate struct {
	// ID is deterministic: generator/companyID/ref.
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Generator string `json:"generator"`
	CompanyID string `json:"company_id"`
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
	Timing    Timing `json:"timing"`

	// Score is the generator-local quality signal in [0,1].
	Score float64 `json:"score"`

	// Path is the introducer path for relationship candidates.
	Path []string `json:"path,omitempty"`

	// TargetGoalID links acceleration candidates to their goal.
	TargetGoalID string `json:"target_goal_id,omitempty"`

	// FutureUnlock names what taking the action makes possible later.
	// Required for optionality candidates.
	FutureUnlock string `json:"future_unlock,omitempty"`

	// ActNowRationale states why acting now beats waiting.
	// Required for optionality candidates.
	ActNowRationale string `json:"act_now_rationale,omitempty"`

	Evidence map[string]float64 `json:"evidence,omitempty"`
}

// Generator names.
const (
	genRelationship = "relationship_leverage"
	genTiming       = "timing_window"
	genSynergy      = "synergy"
	genAcceleration = "goal_acceleration"
	genOptionality  = "optionality"
)

// Generate runs all five generators over the portfolio.
//
// Inputs:
//
//	ds - The raw dataset (relationships, calendar, funds).
//	derived - Per-company derived layers keyed by company ID.
//	doctrine - Generator configuration.
//	now - The current instant.
//
// Outputs:
//
//	[]Candidate - All candidates, sorted by ID for determinism.
func Generate(ds *domain.RawDataset, derived map[string]*derive.Derived, doctrine config.Doctrine, now time.Time) []Candidate {
	var out []Candidate
	out = append(out, relationshipLeverage(ds, doctrine.Opportunity, now)...)
	out = append(out, timingWindows(ds, doctrine.Opportunity, now)...)
	out = append(out, synergies(ds, doctrine.Opportunity)...)
	out = append(out, goalAccelerations(ds, derived)...)
	out = append(out, optionalityBuilders(ds, derived)...)

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// relationshipLeverage proposes non-obvious introductions between portfolio
// companies via the introducer graph.
func relationshipLeverage(ds *domain.RawDataset, cfg config.Opportunity, now time.Time) []Candidate {
	graph := NewIntroducerGraph(ds.Relationships)
	recentCutoff := time.Duration(cfg.RecentTouchDays) * 24 * time.Hour

	var out []Candidate
	for i := range ds.Companies {
		for j := range ds.Companies {
			if i == j {
				continue
			}
			from, to := &ds.Companies[i], &ds.Companies[j]

			path, ok := graph.BestPath(from.ID, to.ID, cfg.MaxHops, cfg.HopPenalty)
			if !ok {
				continue
			}

			// Suppress the obvious: a strong direct relationship, or one
			// touched recently, needs no recommendation.
			if path.Hops == 1 {
				if path.MinStrength >= cfg.ObviousStrength {
					continue
				}
				if !path.LastTouched.IsZero() && now.Sub(path.LastTouched) < recentCutoff {
					continue
				}
			}

			out = append(out, Candidate{
				ID:        candidateID(genRelationship, from.ID, to.ID),
				Kind:      KindIntroduction,
				Generator: genRelationship,
				CompanyID: from.ID,
				Title:     fmt.Sprintf("Introduce %s to %s", from.Name, to.Name),
				Rationale: fmt.Sprintf("best path %v scores %.2f", path.Nodes, path.Score),
				Timing:    TimingSoon,
				Score:     path.Score,
				Path:      path.Nodes,
				Evidence: map[string]float64{
					"path_score":   path.Score,
					"hops":         float64(path.Hops),
					"min_strength": path.MinStrength,
				},
			})
		}
	}
	return out
}

// timingWindows matches companies against calendar events and fund
// deployment cycles inside the lookahead window.
func timingWindows(ds *domain.RawDataset, cfg config.Opportunity, now time.Time) []Candidate {
	window := time.Duration(cfg.TimingWindowDays) * 24 * time.Hour
	var out []Candidate

	for _, ev := range ds.CalendarEvents {
		until := ev.Date.Sub(now)
		if until < 0 || until > window {
			continue
		}
		timing := TimingSoon
		if until <= 7*24*time.Hour {
			timing = TimingNow
		}
		for _, entityID := range ev.EntityIDs {
			c := ds.Company(entityID)
			if c == nil {
				continue
			}
			out = append(out, Candidate{
				ID:        candidateID(genTiming, c.ID, ev.ID),
				Kind:      KindOpportunity,
				Generator: genTiming,
				CompanyID: c.ID,
				Title:     fmt.Sprintf("Prepare %s for %s", c.Name, ev.Name),
				Rationale: fmt.Sprintf("%s is %.0f days out", ev.Name, until.Hours()/24),
				Timing:    timing,
				Score:     1 - until.Hours()/window.Hours(),
				Evidence:  map[string]float64{"days_until": until.Hours() / 24},
			})
		}
	}

	for _, f := range ds.Funds {
		if now.Before(f.DeploymentStart) || now.After(f.DeploymentEnd) || f.DryPowderUSD <= 0 {
			continue
		}
		for i := range ds.Companies {
			c := &ds.Companies[i]
			if !hasGoalOfType(c, domain.GoalFundraise) {
				continue
			}
			out = append(out, Candidate{
				ID:        candidateID(genTiming, c.ID, f.ID),
				Kind:      KindOpportunity,
				Generator: genTiming,
				CompanyID: c.ID,
				Title:     fmt.Sprintf("Put %s in front of %s", c.Name, f.Name),
				Rationale: "fund is actively deploying and the company is raising",
				Timing:    TimingNow,
				Score:     0.8,
				Evidence:  map[string]float64{"dry_powder_usd": f.DryPowderUSD},
			})
		}
	}

	return out
}

// synergies proposes pairwise collaboration where companies share goal
// focus. Pairs are emitted once, ordered by ID.
func synergies(ds *domain.RawDataset, cfg config.Opportunity) []Candidate {
	var out []Candidate
	for i := range ds.Companies {
		for j := i + 1; j < len(ds.Companies); j++ {
			a, b := &ds.Companies[i], &ds.Companies[j]
			if a.ID > b.ID {
				a, b = b, a
			}

			overlap := goalTypeOverlap(a, b)
			if overlap < cfg.SynergyMinOverlap {
				continue
			}

			out = append(out, Candidate{
				ID:        candidateID(genSynergy, a.ID, b.ID),
				Kind:      KindOpportunity,
				Generator: genSynergy,
				CompanyID: a.ID,
				Title:     fmt.Sprintf("Pair %s with %s on shared goals", a.Name, b.Name),
				Rationale: fmt.Sprintf("%d overlapping goal type(s)", overlap),
				Timing:    TimingSoon,
				Score:     min(1, 0.4+0.2*float64(overlap)),
				Evidence:  map[string]float64{"goal_type_overlap": float64(overlap)},
			})
		}
	}
	return out
}

// goalAccelerations proposes help on goals that are not on track.
func goalAccelerations(ds *domain.RawDataset, derived map[string]*derive.Derived) []Candidate {
	var out []Candidate
	for i := range ds.Companies {
		c := &ds.Companies[i]
		d := derived[c.ID]
		if d == nil {
			continue
		}
		for _, g := range c.Goals {
			tr, ok := d.Trajectories[g.ID]
			if !ok || tr.OnTrack {
				continue
			}
			out = append(out, Candidate{
				ID:           candidateID(genAcceleration, c.ID, g.ID),
				Kind:         KindOpportunity,
				Generator:    genAcceleration,
				CompanyID:    c.ID,
				Title:        fmt.Sprintf("Accelerate goal %s at %s", g.ID, c.Name),
				Rationale:    fmt.Sprintf("trajectory off track (p=%.2f)", tr.ProbabilityOfHit),
				Timing:       TimingNow,
				Score:        1 - tr.ProbabilityOfHit,
				TargetGoalID: g.ID,
				Evidence: map[string]float64{
					"probability_of_hit": tr.ProbabilityOfHit,
					"days_left":          tr.DaysLeft,
				},
			})
		}
	}
	return out
}

// optionalityBuilders proposes moves whose value is the options they open.
// Every candidate must declare what it unlocks and why now beats waiting.
func optionalityBuilders(ds *domain.RawDataset, derived map[string]*derive.Derived) []Candidate {
	var out []Candidate
	for i := range ds.Companies {
		c := &ds.Companies[i]
		d := derived[c.ID]
		if d == nil || !d.Runway.Defined {
			continue
		}

		// Debt lines get raised from strength. A company with comfortable
		// runway can open one it will not need for a year.
		if d.Runway.Months >= 12 {
			out = append(out, Candidate{
				ID:           candidateID(genOptionality, c.ID, "venture-debt"),
				Kind:         KindOpportunity,
				Generator:    genOptionality,
				CompanyID:    c.ID,
				Title:        fmt.Sprintf("Open a venture debt line for %s", c.Name),
				Rationale:    "strong runway position maximizes negotiating leverage",
				Timing:       TimingLater,
				Score:        0.5,
				FutureUnlock: "bridge capital available without a priced round",
				ActNowRationale: "terms are set by today's runway strength; " +
					"waiting until cash is needed inverts the leverage",
				Evidence: map[string]float64{"runway_months": d.Runway.Months},
			})
		}

		// Early fundraise groundwork before the goal exists.
		if d.Runway.Months >= 9 && d.Runway.Months < 15 && !hasGoalOfType(c, domain.GoalFundraise) {
			out = append(out, Candidate{
				ID:           candidateID(genOptionality, c.ID, "raise-groundwork"),
				Kind:         KindOpportunity,
				Generator:    genOptionality,
				CompanyID:    c.ID,
				Title:        fmt.Sprintf("Start investor groundwork for %s", c.Name),
				Rationale:    "next raise lands inside 12 months at current burn",
				Timing:       TimingLater,
				Score:        0.45,
				FutureUnlock: "warm investor pipeline when the round opens",
				ActNowRationale: "relationships compound; starting at the raise " +
					"forfeits the compounding window",
				Evidence: map[string]float64{"runway_months": d.Runway.Months},
			})
		}
	}
	return out
}

func goalTypeOverlap(a, b *domain.Company) int {
	types := make(map[domain.GoalType]bool)
	for _, g := range a.Goals {
		types[g.Type] = true
	}
	overlap := 0
	seen := make(map[domain.GoalType]bool)
	for _, g := range b.Goals {
		if types[g.Type] && !seen[g.Type] {
			overlap++
			seen[g.Type] = true
		}
	}
	return overlap
}

func hasGoalOfType(c *domain.Company, t domain.GoalType) bool {
	for _, g := range c.Goals {
		if g.Type == t && g.Status != domain.GoalDone {
			return true
		}
	}
	return false
}

func candidateID(generator, companyID, ref string) string {
	return generator + "/" + companyID + "/" + ref
}
