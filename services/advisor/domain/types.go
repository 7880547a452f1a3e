// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package domain holds the raw portfolio facts the advisory pipeline
// consumes: companies, goals, deals, relationships, calendar events, funds,
// and the append-only action lifecycle events.
//
// # Description
//
// Everything in this package is input. No type here may carry a field the
// pipeline can derive (runway, health, rank scores, lifts); truth flows in
// one direction only and the invariant gate scans for violations.
//
// # Thread Safety
//
// All types are plain data. Safe to share once constructed.
package domain

import "time"

// Stage is the funding stage of a portfolio company.
type Stage string

const (
	StagePreSeed Stage = "preseed"
	StageSeed    Stage = "seed"
	StageSeriesA Stage = "series_a"
	StageSeriesB Stage = "series_b"
	StageGrowth  Stage = "growth"
)

// EntityKind identifies what an EntityRef points at.
type EntityKind string

const (
	EntityCompany EntityKind = "company"
	EntityGoal    EntityKind = "goal"
	EntityDeal    EntityKind = "deal"
)

// EntityRef is a typed reference to a raw entity.
type EntityRef struct {
	// Kind is the entity kind being referenced.
	Kind EntityKind `json:"kind" yaml:"kind"`

	// ID is the entity identifier.
	ID string `json:"id" yaml:"id"`
}

// GoalType classifies what a goal measures.
type GoalType string

const (
	GoalRevenue   GoalType = "revenue"
	GoalHiring    GoalType = "hiring"
	GoalProduct   GoalType = "product"
	GoalFundraise GoalType = "fundraise"
)

// GoalStatus is the operator-reported status of a goal.
type GoalStatus string

const (
	GoalOnTrack GoalStatus = "on_track"
	GoalAtRisk  GoalStatus = "at_risk"
	GoalBehind  GoalStatus = "behind"
	GoalDone    GoalStatus = "done"
)

// Goal is a measurable target a company is working toward.
type Goal struct {
	ID        string     `json:"id" yaml:"id" validate:"required"`
	CompanyID string     `json:"company_id" yaml:"company_id" validate:"required"`
	Type      GoalType   `json:"type" yaml:"type" validate:"required,oneof=revenue hiring product fundraise"`
	Current   float64    `json:"current" yaml:"current"`
	Target    float64    `json:"target" yaml:"target"`
	Due       time.Time  `json:"due" yaml:"due" validate:"required"`
	Status    GoalStatus `json:"status" yaml:"status" validate:"required,oneof=on_track at_risk behind done"`

	// Weight is an operator priority override multiplier. Zero means 1.0.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty" validate:"gte=0"`
}

// DealStage is the pipeline stage of a deal.
type DealStage string

const (
	DealLead      DealStage = "lead"
	DealTermSheet DealStage = "term_sheet"
	DealDiligence DealStage = "diligence"
	DealClosing   DealStage = "closing"
)

// Deal is an in-flight financing or commercial deal.
type Deal struct {
	ID           string    `json:"id" yaml:"id" validate:"required"`
	CompanyID    string    `json:"company_id" yaml:"company_id" validate:"required"`
	Name         string    `json:"name" yaml:"name" validate:"required"`
	Stage        DealStage `json:"stage" yaml:"stage" validate:"required,oneof=lead term_sheet diligence closing"`
	AmountUSD    float64   `json:"amount_usd" yaml:"amount_usd" validate:"gte=0"`
	Probability  float64   `json:"probability" yaml:"probability" validate:"gte=0,lte=1"`
	LastActivity time.Time `json:"last_activity" yaml:"last_activity"`
}

// MetricPoint is one observed value of a named company metric.
type MetricPoint struct {
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Value     float64   `json:"value" yaml:"value"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp" validate:"required"`
}

// Company is the raw fact record for one portfolio company.
type Company struct {
	ID             string        `json:"id" yaml:"id" validate:"required"`
	Name           string        `json:"name" yaml:"name" validate:"required"`
	Stage          Stage         `json:"stage" yaml:"stage" validate:"required,oneof=preseed seed series_a series_b growth"`
	CashUSD        float64       `json:"cash_usd" yaml:"cash_usd" validate:"gte=0"`
	MonthlyBurnUSD float64       `json:"monthly_burn_usd" yaml:"monthly_burn_usd"`
	AsOf           time.Time     `json:"as_of" yaml:"as_of" validate:"required"`
	Metrics        []MetricPoint `json:"metrics,omitempty" yaml:"metrics,omitempty" validate:"dive"`
	Goals          []Goal        `json:"goals,omitempty" yaml:"goals,omitempty" validate:"dive"`
	Deals          []Deal        `json:"deals,omitempty" yaml:"deals,omitempty" validate:"dive"`
}

// Relationship is a weighted edge in the introducer graph.
type Relationship struct {
	FromID string `json:"from_id" yaml:"from_id" validate:"required"`
	ToID   string `json:"to_id" yaml:"to_id" validate:"required"`

	// Strength is the normalized relationship strength in [0,1].
	Strength float64 `json:"strength" yaml:"strength" validate:"gte=0,lte=1"`

	LastTouched time.Time `json:"last_touched" yaml:"last_touched"`
}

// CalendarEvent is an external event usable for timing-window matching.
type CalendarEvent struct {
	ID        string    `json:"id" yaml:"id" validate:"required"`
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Kind      string    `json:"kind" yaml:"kind"`
	Date      time.Time `json:"date" yaml:"date" validate:"required"`
	EntityIDs []string  `json:"entity_ids,omitempty" yaml:"entity_ids,omitempty"`
}

// Fund describes a fund's deployment cycle for timing-window matching.
type Fund struct {
	ID              string    `json:"id" yaml:"id" validate:"required"`
	Name            string    `json:"name" yaml:"name" validate:"required"`
	DeploymentStart time.Time `json:"deployment_start" yaml:"deployment_start"`
	DeploymentEnd   time.Time `json:"deployment_end" yaml:"deployment_end"`
	DryPowderUSD    float64   `json:"dry_powder_usd" yaml:"dry_powder_usd" validate:"gte=0"`
}

// RawDataset is the full input snapshot for one pipeline run.
type RawDataset struct {
	Companies      []Company       `json:"companies" yaml:"companies" validate:"dive"`
	Relationships  []Relationship  `json:"relationships,omitempty" yaml:"relationships,omitempty" validate:"dive"`
	CalendarEvents []CalendarEvent `json:"calendar_events,omitempty" yaml:"calendar_events,omitempty" validate:"dive"`
	Funds          []Fund          `json:"funds,omitempty" yaml:"funds,omitempty" validate:"dive"`
}

// Company returns the company with the given ID, or nil.
func (d *RawDataset) Company(id string) *Company {
	for i := range d.Companies {
		if d.Companies[i].ID == id {
			return &d.Companies[i]
		}
	}
	return nil
}
