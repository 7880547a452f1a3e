// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires the OpenTelemetry metric stack for the CLI.
//
// # Description
//
// The pipeline packages record through the otel API, which is a no-op
// until a MeterProvider is installed. Init installs one backed by a
// Prometheus or stdout exporter; batch runs that want no telemetry skip
// Init entirely.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this process in metrics.
	ServiceName string `yaml:"service_name"`

	// MetricExporter selects "prometheus", "stdout", or "none".
	MetricExporter string `yaml:"metric_exporter"`

	// PrometheusPort serves /metrics when the prometheus exporter is on.
	PrometheusPort int `yaml:"prometheus_port"`
}

// DefaultConfig returns development defaults. OTEL_METRICS_EXPORTER
// overrides the exporter selection.
func DefaultConfig() Config {
	exporter := os.Getenv("OTEL_METRICS_EXPORTER")
	if exporter == "" {
		exporter = "none"
	}
	return Config{
		ServiceName:    "backbone",
		MetricExporter: exporter,
		PrometheusPort: 9090,
	}
}

// Init installs the global MeterProvider per config.
//
// Outputs:
//
//	func(context.Context) error - Shutdown function; flushes and stops
//	the provider. Always non-nil.
//	error - Non-nil if the exporter cannot be constructed.
func Init(ctx context.Context, cfg Config, logger *slog.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("building telemetry resource: %w", err)
	}

	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := promexporter.New()
		if err != nil {
			return noopShutdown, fmt.Errorf("creating prometheus exporter: %w", err)
		}
		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(provider)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics endpoint failed", slog.String("error", err.Error()))
			}
		}()

		return func(ctx context.Context) error {
			_ = server.Shutdown(ctx)
			return provider.Shutdown(ctx)
		}, nil

	case "stdout":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return noopShutdown, fmt.Errorf("creating stdout exporter: %w", err)
		}
		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		)
		otel.SetMeterProvider(provider)
		return provider.Shutdown, nil

	case "none", "":
		return noopShutdown, nil

	default:
		return noopShutdown, fmt.Errorf("unknown metric exporter %q", cfg.MetricExporter)
	}
}

func noopShutdown(context.Context) error { return nil }
