// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/action"
)

// Package-level meter for impact attachment.
var meter = otel.Meter("backbone.impact")

// Metrics for impact attachment.
var (
	modelsTotal    metric.Int64Counter
	upsideObserved metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		modelsTotal, err = meter.Int64Counter(
			"impact_models_total",
			metric.WithDescription("Total number of impact models attached"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		upsideObserved, err = meter.Float64Histogram(
			"impact_upside_magnitude",
			metric.WithDescription("Distribution of attached upside magnitudes"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordModel records one attached model. Metric failures degrade
// observability, never attachment.
func recordModel(actionType string, m action.ImpactModel) {
	if initMetrics() != nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("action_type", actionType))
	modelsTotal.Add(ctx, 1, attrs)
	upsideObserved.Record(ctx, m.UpsideMagnitude, attrs)
}
