// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package action

import (
	"fmt"
	"sort"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/detect"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/forecast"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/opportunity"
)

// heuristicType maps detection heuristics to pattern-lift buckets and
// resolution templates.
var heuristicType = map[string]string{
	"RUNWAY_LOW":     config.TypeRunwayBreach,
	"GOAL_OFF_TRACK": config.TypeGoalMiss,
	"DEAL_STALE":     config.TypeDealStall,
}

// Generate normalizes one company's issues, pre-issues, opportunity
// candidates, and at-risk goals into actions.
//
// Description:
//
//	An issue and a pre-issue about the same entity and bucket collapse
//	into one action carrying both sources, ISSUE taking precedence. Steps
//	and complexity come from the bucket's resolution template. Output is
//	sorted by action ID for determinism.
//
// Outputs:
//
//	[]Action - The company's action candidates, unranked and without
//	impact models.
func Generate(
	c *domain.Company,
	issues []detect.Issue,
	preIssues []forecast.PreIssue,
	candidates []opportunity.Candidate,
	doctrine config.Doctrine,
) []Action {
	byID := make(map[string]*Action)

	add := func(id string, build func() *Action, src Source) {
		if existing, ok := byID[id]; ok {
			existing.Sources = append(existing.Sources, src)
			return
		}
		a := build()
		a.Sources = []Source{src}
		byID[id] = a
	}

	for _, iss := range issues {
		iss := iss
		typ := heuristicType[iss.Heuristic]
		if typ == "" {
			typ = iss.Heuristic
		}
		id := actionID(c.ID, typ, iss.Entity.ID)
		add(id, func() *Action {
			return &Action{
				ID:         id,
				CompanyID:  c.ID,
				Entity:     iss.Entity,
				Type:       typ,
				Title:      fmt.Sprintf("Resolve: %s", iss.Summary),
				Steps:      templateSteps(doctrine, typ),
				Complexity: templateComplexity(doctrine, typ),
			}
		}, Source{Kind: SourceIssue, RefID: iss.ID})
	}

	for _, pi := range preIssues {
		pi := pi
		id := actionID(c.ID, pi.Type, pi.Entity.ID)
		add(id, func() *Action {
			due := pi.Escalation.At
			return &Action{
				ID:         id,
				CompanyID:  c.ID,
				Entity:     pi.Entity,
				Type:       pi.Type,
				Title:      fmt.Sprintf("Get ahead of: %s", pi.Summary),
				Steps:      templateSteps(doctrine, pi.Type),
				Complexity: templateComplexity(doctrine, pi.Type),
				Due:        &due,
			}
		}, Source{Kind: SourcePreIssue, RefID: pi.ID})

		// A merged action keeps the earliest deadline it learned.
		if a := byID[id]; a.Due == nil || pi.Escalation.At.Before(*a.Due) {
			due := pi.Escalation.At
			a.Due = &due
		}
	}

	for _, cand := range candidates {
		if cand.CompanyID != c.ID {
			continue
		}
		cand := cand
		kind := SourceOpportunity
		typ := "OPPORTUNITY"
		if cand.Kind == opportunity.KindIntroduction {
			kind = SourceIntroduction
			typ = "INTRODUCTION"
		}
		id := actionID(c.ID, typ, cand.ID)
		add(id, func() *Action {
			return &Action{
				ID:         id,
				CompanyID:  c.ID,
				Entity:     domain.EntityRef{Kind: domain.EntityCompany, ID: c.ID},
				Type:       typ,
				Title:      cand.Title,
				Steps:      templateSteps(doctrine, typ),
				Complexity: templateComplexity(doctrine, typ),
			}
		}, Source{Kind: kind, RefID: cand.ID})
	}

	// Operator-reported at-risk goals become GOAL-sourced actions even
	// before the trajectory math agrees.
	for _, g := range c.Goals {
		if g.Status != domain.GoalAtRisk && g.Status != domain.GoalBehind {
			continue
		}
		g := g
		id := actionID(c.ID, "GOAL", g.ID)
		add(id, func() *Action {
			due := g.Due
			return &Action{
				ID:         id,
				CompanyID:  c.ID,
				Entity:     domain.EntityRef{Kind: domain.EntityGoal, ID: g.ID},
				Type:       "GOAL",
				Title:      fmt.Sprintf("Support goal %s (%s)", g.ID, g.Status),
				Steps:      templateSteps(doctrine, "GOAL"),
				Complexity: templateComplexity(doctrine, "GOAL"),
				Due:        &due,
			}
		}, Source{Kind: SourceGoal, RefID: g.ID})
	}

	out := make([]Action, 0, len(byID))
	for _, a := range byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Followups derives FOLLOWUP actions from recorded outcomes: one per
// originating action and outcome event, never more.
func Followups(events []domain.Event, doctrine config.Doctrine) []Action {
	seen := make(map[string]bool)
	var out []Action
	for _, e := range events {
		if e.Type != domain.EventOutcomeRecorded {
			continue
		}
		key := e.ActionID + "/" + e.ID
		if seen[e.ActionID] {
			// One follow-up per originating action per run.
			continue
		}
		seen[e.ActionID] = true

		out = append(out, Action{
			ID:         "followup/" + key,
			CompanyID:  "",
			Type:       "FOLLOWUP",
			Title:      fmt.Sprintf("Close the loop on %s", e.ActionID),
			Steps:      templateSteps(doctrine, "FOLLOWUP"),
			Complexity: templateComplexity(doctrine, "FOLLOWUP"),
			Sources:    []Source{{Kind: SourceFollowup, RefID: e.ActionID}},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func templateSteps(doctrine config.Doctrine, key string) []Step {
	tpl, ok := doctrine.Templates[key]
	if !ok {
		return nil
	}
	steps := make([]Step, len(tpl.Steps))
	for i, s := range tpl.Steps {
		steps[i] = Step{Order: i + 1, Description: s}
	}
	return steps
}

func templateComplexity(doctrine config.Doctrine, key string) int {
	tpl, ok := doctrine.Templates[key]
	if !ok || tpl.Complexity == 0 {
		return 1
	}
	return tpl.Complexity
}

func actionID(companyID, typ, entityID string) string {
	return "action/" + companyID + "/" + typ + "/" + entityID
}
