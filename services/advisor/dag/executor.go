// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dag

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"
)

var (
	tracer = otel.Tracer("backbone.dag")
	meter  = otel.Meter("backbone.dag")
)

// Result is the outcome of one DAG run.
type Result struct {
	// RunID identifies this execution.
	RunID string `json:"run_id"`

	// Success is true when every node completed.
	Success bool `json:"success"`

	// Output is the terminal node's output on success.
	Output any `json:"output,omitempty"`

	// FailedNode and Error describe the first failure.
	FailedNode string `json:"failed_node,omitempty"`
	Error      string `json:"error,omitempty"`

	// NodesExecuted counts completed nodes.
	NodesExecuted int `json:"nodes_executed"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`

	// NodeDurations records per-node wall time.
	NodeDurations map[string]time.Duration `json:"node_durations,omitempty"`
}

// Executor runs a DAG in dependency waves.
//
// # Description
//
// Each wave executes every ready node (all dependencies complete)
// concurrently, then the next wave is computed. Nothing is cached across
// runs: every Run starts from a fresh state.
//
// # Thread Safety
//
// Safe for concurrent use; each Run owns its state.
type Executor struct {
	dag    *DAG
	logger *slog.Logger

	metricsOnce  sync.Once
	nodeLatency  metric.Float64Histogram
	nodeFailures metric.Int64Counter
	runLatency   metric.Float64Histogram
}

// NewExecutor creates an executor for a DAG.
//
// Inputs:
//
//	dag - The DAG to execute. Must not be nil.
//	logger - Execution logger. Nil uses slog.Default().
func NewExecutor(dag *DAG, logger *slog.Logger) (*Executor, error) {
	if dag == nil {
		return nil, ErrEmptyDAG
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{dag: dag, logger: logger}, nil
}

// initMetrics lazily creates metrics; failures degrade observability only.
func (e *Executor) initMetrics() {
	e.metricsOnce.Do(func() {
		var errs []string

		var err error
		e.nodeLatency, err = meter.Float64Histogram("pipeline_node_duration_seconds",
			metric.WithDescription("Time spent in each pipeline node"),
			metric.WithUnit("s"),
		)
		if err != nil {
			errs = append(errs, err.Error())
		}

		e.nodeFailures, err = meter.Int64Counter("pipeline_node_failure_total",
			metric.WithDescription("Pipeline node failures"),
		)
		if err != nil {
			errs = append(errs, err.Error())
		}

		e.runLatency, err = meter.Float64Histogram("pipeline_run_duration_seconds",
			metric.WithDescription("Total pipeline run time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			errs = append(errs, err.Error())
		}

		if len(errs) > 0 {
			e.logger.Error("pipeline metrics degraded",
				slog.Int("failed_count", len(errs)),
				slog.Any("errors", errs),
			)
		}
	})
}

// Run executes the DAG from scratch.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	input - Run input, passed to root nodes under the "root" key.
//
// Outputs:
//
//	*Result - The run result; Success false carries the failed node.
//	error - Non-nil on cancellation or when no progress is possible.
func (e *Executor) Run(ctx context.Context, input any) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	e.initMetrics()

	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("dag.name", e.dag.Name()),
			attribute.Int("dag.node_count", e.dag.NodeCount()),
		),
	)
	defer span.End()

	start := time.Now()
	runID := uuid.NewString()[:12]

	e.logger.Debug("pipeline started",
		slog.String("dag", e.dag.Name()),
		slog.String("run_id", runID),
		slog.Int("nodes", e.dag.NodeCount()),
	)

	outputs := map[string]any{"root": input}
	completed := make(map[string]bool)
	durations := make(map[string]time.Duration)

	var failedNode string
	var failure error

	for len(completed) < e.dag.NodeCount() && failure == nil {
		select {
		case <-ctx.Done():
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "context canceled")
			return e.result(runID, start, completed, durations, outputs, "", ctx.Err()), ctx.Err()
		default:
		}

		ready := e.readyNodes(completed)
		if len(ready) == 0 {
			span.RecordError(ErrNoProgress)
			span.SetStatus(codes.Error, ErrNoProgress.Error())
			return e.result(runID, start, completed, durations, outputs, "", ErrNoProgress), ErrNoProgress
		}

		failedNode, failure = e.runWave(ctx, ready, outputs, completed, durations)
	}

	if e.runLatency != nil {
		e.runLatency.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("dag", e.dag.Name())),
		)
	}

	result := e.result(runID, start, completed, durations, outputs, failedNode, failure)
	if result.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, result.Error)
		e.logger.Error("pipeline failed",
			slog.String("run_id", runID),
			slog.String("failed_node", result.FailedNode),
			slog.String("error", result.Error),
		)
	}
	return result, nil
}

// readyNodes returns uncompleted nodes whose dependencies are complete,
// in deterministic name order.
func (e *Executor) readyNodes(completed map[string]bool) []Node {
	var ready []Node
	for _, name := range e.dag.NodeNames() {
		if completed[name] {
			continue
		}
		ok := true
		for _, dep := range e.dag.Dependencies(name) {
			if !completed[dep] {
				ok = false
				break
			}
		}
		if ok {
			node, _ := e.dag.GetNode(name)
			ready = append(ready, node)
		}
	}
	return ready
}

// runWave executes one wave of ready nodes concurrently. Returns the
// first failed node, if any.
func (e *Executor) runWave(
	ctx context.Context,
	nodes []Node,
	outputs map[string]any,
	completed map[string]bool,
	durations map[string]time.Duration,
) (string, error) {
	type outcome struct {
		name     string
		output   any
		duration time.Duration
		err      error
	}

	results := make(chan outcome, len(nodes))
	var wg sync.WaitGroup

	for _, node := range nodes {
		wg.Add(1)
		go func(n Node) {
			defer wg.Done()

			nodeCtx, span := tracer.Start(ctx, n.Name(),
				trace.WithAttributes(
					attribute.String("dag.node", n.Name()),
					attribute.StringSlice("dag.dependencies", n.Dependencies()),
				),
			)
			defer span.End()

			inputs := make(map[string]any, len(n.Dependencies())+1)
			for _, dep := range n.Dependencies() {
				inputs[dep] = outputs[dep]
			}
			if len(n.Dependencies()) == 0 {
				inputs["root"] = outputs["root"]
			}

			nodeStart := time.Now()
			out, err := n.Execute(nodeCtx, inputs)
			elapsed := time.Since(nodeStart)

			if e.nodeLatency != nil {
				e.nodeLatency.Record(nodeCtx, elapsed.Seconds(),
					metric.WithAttributes(attribute.String("node", n.Name())),
				)
			}
			if err != nil {
				if e.nodeFailures != nil {
					e.nodeFailures.Add(nodeCtx, 1,
						metric.WithAttributes(attribute.String("node", n.Name())),
					)
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}

			results <- outcome{name: n.Name(), output: out, duration: elapsed, err: err}
		}(node)
	}

	wg.Wait()
	close(results)

	var failedNode string
	var failure error
	for r := range results {
		durations[r.name] = r.duration
		if r.err != nil {
			if failure == nil || r.name < failedNode {
				// Deterministic failure attribution across wave goroutines.
				failedNode = r.name
				failure = r.err
			}
			continue
		}
		outputs[r.name] = r.output
		completed[r.name] = true
	}

	if failure != nil {
		return failedNode, NewNodeError(failedNode, failure)
	}
	return "", nil
}

func (e *Executor) result(
	runID string,
	start time.Time,
	completed map[string]bool,
	durations map[string]time.Duration,
	outputs map[string]any,
	failedNode string,
	err error,
) *Result {
	r := &Result{
		RunID:         runID,
		Duration:      time.Since(start),
		NodesExecuted: len(completed),
		NodeDurations: durations,
	}
	if err != nil {
		r.Error = err.Error()
		r.FailedNode = failedNode
		return r
	}
	r.Success = true
	if t := e.dag.Terminal(); t != "" {
		r.Output = outputs[t]
	}
	return r
}
