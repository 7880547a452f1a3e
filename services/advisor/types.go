// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package advisor

import (
	"log/slog"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/action"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/derive"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/detect"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/forecast"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/opportunity"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/rank"
)

// Options configures one Compute run.
type Options struct {
	// Doctrine supplies every threshold and table the pipeline reads.
	// Zero value means config.Default().
	Doctrine *config.Doctrine

	// Logger receives structured run logs. Nil means slog.Default().
	Logger *slog.Logger

	// Now anchors all time arithmetic. Zero means time.Now().UTC().
	Now time.Time

	// Events is the historical event stream feeding pattern lift and
	// follow-up generation. May be nil.
	Events []domain.Event

	// TrustRiskByAction supplies a [0,1] trust risk per action ID.
	TrustRiskByAction map[string]float64

	// DeadlineByAction overrides action due dates at rank time.
	DeadlineByAction map[string]time.Time

	// Concurrency bounds parallel per-company pipelines. Zero or
	// negative means 4.
	Concurrency int
}

// CompanyResult holds everything the pipeline computed for one company.
type CompanyResult struct {
	CompanyID string              `json:"company_id"`
	Derived   *derive.Derived     `json:"derived"`
	Issues    []detect.Issue      `json:"issues"`
	PreIssues []forecast.PreIssue `json:"pre_issues"`
}

// Meta describes the run itself.
type Meta struct {
	// RunID identifies this execution.
	RunID string `json:"run_id"`

	// GeneratedAt is the Now anchor of the run.
	GeneratedAt time.Time `json:"generated_at"`

	// CompanyErrors maps company IDs to the validation or pipeline
	// failure that excluded them. Other companies are unaffected.
	CompanyErrors map[string]string `json:"company_errors,omitempty"`

	// Warnings carries non-fatal dataset findings.
	Warnings []string `json:"warnings,omitempty"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`
}

// Result is the full pipeline output: per-company derivations, the
// portfolio-wide candidate pool, and one globally ranked action list.
type Result struct {
	Companies  []CompanyResult         `json:"companies"`
	Candidates []opportunity.Candidate `json:"candidates"`

	// Actions is the published ranked list, best first.
	Actions []action.Action `json:"actions"`

	// Trace covers every generated action, published or not.
	Trace []rank.Trace `json:"trace"`

	Meta Meta `json:"meta"`
}

// Company returns the result for one company, or nil.
func (r *Result) Company(id string) *CompanyResult {
	for i := range r.Companies {
		if r.Companies[i].CompanyID == id {
			return &r.Companies[i]
		}
	}
	return nil
}
