// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package advisor runs the full advisory pipeline over a portfolio
// dataset.
//
// # Description
//
// Compute validates the raw dataset, runs each company through a small
// derivation DAG (derive, then detect and forecast in parallel),
// generates portfolio-wide opportunity candidates, normalizes everything
// into actions, attaches impact models, and produces one globally ranked
// action list. A company that fails validation or derivation is excluded
// and reported in Meta without affecting the rest of the portfolio.
//
// # Thread Safety
//
// Compute is a pure function of its inputs plus the clock anchor in
// Options. Concurrent calls are safe.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/action"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/dag"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/derive"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/detect"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/forecast"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/impact"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/opportunity"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/rank"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/scan"
)

const defaultConcurrency = 4

// Compute runs the advisory pipeline end to end.
//
// Inputs:
//
//	ctx - Cancels in-flight company pipelines.
//	ds - The raw portfolio dataset. Must not carry stored derivations.
//	opts - Run configuration. Zero value is valid.
//
// Outputs:
//
//	*Result - Per-company derivations plus the ranked action list.
//	error - Non-nil when the dataset as a whole is unusable. Per-company
//	failures do not error; they land in Result.Meta.CompanyErrors.
func Compute(ctx context.Context, ds *domain.RawDataset, opts Options) (*Result, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}

	doctrine := config.Default()
	if opts.Doctrine != nil {
		doctrine = *opts.Doctrine
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	start := time.Now()
	runID := uuid.NewString()[:12]
	logger = logger.With(slog.String("run_id", runID))

	if err := rejectStoredDerivations(ds, doctrine); err != nil {
		return nil, err
	}

	meta := Meta{
		RunID:         runID,
		GeneratedAt:   now,
		CompanyErrors: make(map[string]string),
	}
	if err := domain.ValidateDataset(ds); err != nil {
		// Relationship and calendar defects degrade opportunity
		// generation but do not invalidate the companies.
		meta.Warnings = append(meta.Warnings, err.Error())
		logger.Warn("dataset validation", slog.String("warning", err.Error()))
	}

	companies := validCompanies(ds, &meta, logger)
	if len(companies) == 0 {
		return nil, ErrNoCompanies
	}

	results, err := runCompanyPipelines(ctx, companies, doctrine, now, opts.Concurrency, logger, &meta)
	if err != nil {
		return nil, err
	}

	derivedByCompany := make(map[string]*derive.Derived, len(results))
	for i := range results {
		derivedByCompany[results[i].CompanyID] = results[i].Derived
	}

	candidates := opportunity.Generate(ds, derivedByCompany, doctrine, now)

	actions := buildActions(ds, results, candidates, opts.Events, doctrine)
	attachImpact(actions, ds, results, candidates, now, doctrine)

	ranked := rank.Rank(actions, rank.Context{
		Now:               now,
		TrustRiskByAction: opts.TrustRiskByAction,
		DeadlineByAction:  opts.DeadlineByAction,
		Events:            opts.Events,
	}, doctrine)

	meta.Duration = time.Since(start)
	logger.Info("pipeline complete",
		slog.Int("companies", len(results)),
		slog.Int("candidates", len(candidates)),
		slog.Int("actions_published", len(ranked.Actions)),
		slog.Int("actions_total", len(ranked.Trace)),
		slog.Duration("duration", meta.Duration),
	)

	return &Result{
		Companies:  results,
		Candidates: candidates,
		Actions:    ranked.Actions,
		Trace:      ranked.Trace,
		Meta:       meta,
	}, nil
}

// rejectStoredDerivations scans the raw dataset for fields this pipeline
// computes. Their presence means the input was round-tripped through an
// output, so the whole dataset is refused.
func rejectStoredDerivations(ds *domain.RawDataset, doctrine config.Doctrine) error {
	hits := scan.Walk(ds, doctrine.ForbiddenFieldSet())
	if len(hits) == 0 {
		return nil
	}
	paths := make([]string, 0, len(hits))
	for _, h := range hits {
		paths = append(paths, h.Path)
	}
	return &StoredDerivationError{Paths: paths}
}

// validCompanies filters the dataset to companies passing validation,
// recording each rejection against its company ID.
func validCompanies(ds *domain.RawDataset, meta *Meta, logger *slog.Logger) []*domain.Company {
	var out []*domain.Company
	for i := range ds.Companies {
		c := &ds.Companies[i]
		if err := domain.ValidateCompany(c); err != nil {
			id := c.ID
			if id == "" {
				id = fmt.Sprintf("companies[%d]", i)
			}
			meta.CompanyErrors[id] = err.Error()
			logger.Warn("company excluded",
				slog.String("company_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, c)
	}
	return out
}

// runCompanyPipelines executes the per-company derivation DAG across the
// portfolio with bounded concurrency. Output order is company ID
// ascending regardless of completion order.
func runCompanyPipelines(
	ctx context.Context,
	companies []*domain.Company,
	doctrine config.Doctrine,
	now time.Time,
	concurrency int,
	logger *slog.Logger,
	meta *Meta,
) ([]CompanyResult, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var mu sync.Mutex
	var results []CompanyResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, c := range companies {
		c := c
		g.Go(func() error {
			res, err := runOneCompany(gctx, c, doctrine, now, logger)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				meta.CompanyErrors[c.ID] = err.Error()
				return nil
			}
			results = append(results, *res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CompanyID < results[j].CompanyID
	})
	return results, nil
}

// NewCompanyDAG builds the derivation DAG for a single company: derive
// feeds detect and forecast, and assemble joins them into the
// CompanyResult terminal.
func NewCompanyDAG(c *domain.Company, doctrine config.Doctrine, now time.Time) (*dag.DAG, error) {
	b := dag.NewBuilder("company/" + c.ID)

	b.AddNode(dag.NewFuncNode("derive", nil,
		func(_ context.Context, _ map[string]any) (any, error) {
			return derive.DeriveCompany(c, doctrine, now), nil
		}))
	b.AddNode(dag.NewFuncNode("detect", []string{"derive"},
		func(_ context.Context, outputs map[string]any) (any, error) {
			d := outputs["derive"].(*derive.Derived)
			return detect.Detect(c, d, doctrine, now), nil
		}))
	b.AddNode(dag.NewFuncNode("forecast", []string{"derive"},
		func(_ context.Context, outputs map[string]any) (any, error) {
			d := outputs["derive"].(*derive.Derived)
			return forecast.Forecast(c, d, doctrine, now), nil
		}))
	b.AddNode(dag.NewFuncNode("assemble", []string{"detect", "forecast"},
		func(_ context.Context, outputs map[string]any) (any, error) {
			return &CompanyResult{
				CompanyID: c.ID,
				Derived:   outputs["derive"].(*derive.Derived),
				Issues:    outputs["detect"].([]detect.Issue),
				PreIssues: outputs["forecast"].([]forecast.PreIssue),
			}, nil
		}))

	return b.Build()
}

// runOneCompany executes the company DAG and unwraps its terminal output.
func runOneCompany(
	ctx context.Context,
	c *domain.Company,
	doctrine config.Doctrine,
	now time.Time,
	logger *slog.Logger,
) (*CompanyResult, error) {
	d, err := NewCompanyDAG(c, doctrine, now)
	if err != nil {
		return nil, fmt.Errorf("building pipeline for %s: %w", c.ID, err)
	}
	exec, err := dag.NewExecutor(d, logger)
	if err != nil {
		return nil, err
	}

	res, err := exec.Run(ctx, c)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("node %s: %s", res.FailedNode, res.Error)
	}
	return res.Output.(*CompanyResult), nil
}

// buildActions normalizes every signal source into a single action pool:
// per-company issues, pre-issues, goals, and candidates, plus follow-ups
// derived from the event history.
func buildActions(
	ds *domain.RawDataset,
	results []CompanyResult,
	candidates []opportunity.Candidate,
	events []domain.Event,
	doctrine config.Doctrine,
) []action.Action {
	byCompany := make(map[string][]opportunity.Candidate)
	for _, cand := range candidates {
		byCompany[cand.CompanyID] = append(byCompany[cand.CompanyID], cand)
	}

	var out []action.Action
	for i := range results {
		r := &results[i]
		c := ds.Company(r.CompanyID)
		if c == nil {
			continue
		}
		out = append(out,
			action.Generate(c, r.Issues, r.PreIssues, byCompany[r.CompanyID], doctrine)...)
	}
	out = append(out, action.Followups(events, doctrine)...)
	return out
}

// attachImpact computes impact models company by company so each action
// sees its own company's derived state.
func attachImpact(
	actions []action.Action,
	ds *domain.RawDataset,
	results []CompanyResult,
	candidates []opportunity.Candidate,
	now time.Time,
	doctrine config.Doctrine,
) {
	attacher := impact.NewAttacher(doctrine)

	contexts := make(map[string]impact.Context, len(results))
	for i := range results {
		r := &results[i]
		ctx := impact.Context{
			Company:    ds.Company(r.CompanyID),
			Derived:    r.Derived,
			Issues:     make(map[string]detect.Issue, len(r.Issues)),
			PreIssues:  make(map[string]forecast.PreIssue, len(r.PreIssues)),
			Candidates: make(map[string]opportunity.Candidate),
			Now:        now,
		}
		for _, iss := range r.Issues {
			ctx.Issues[iss.ID] = iss
		}
		for _, pi := range r.PreIssues {
			ctx.PreIssues[pi.ID] = pi
		}
		contexts[r.CompanyID] = ctx
	}
	for _, cand := range candidates {
		if ctx, ok := contexts[cand.CompanyID]; ok {
			ctx.Candidates[cand.ID] = cand
		}
	}

	// Group actions per company so Attach runs with the right context.
	indexByCompany := make(map[string][]int)
	for i := range actions {
		indexByCompany[actions[i].CompanyID] = append(indexByCompany[actions[i].CompanyID], i)
	}
	for companyID, idxs := range indexByCompany {
		ctx, ok := contexts[companyID]
		if !ok {
			// Follow-ups can reference companies excluded this run.
			ctx = impact.Context{Now: now}
		}
		batch := make([]action.Action, len(idxs))
		for j, idx := range idxs {
			batch[j] = actions[idx]
		}
		attacher.Attach(batch, ctx)
		for j, idx := range idxs {
			actions[idx] = batch[j]
		}
	}
}
