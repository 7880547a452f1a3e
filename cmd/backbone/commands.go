// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	doctrinePath   string
	metricExporter string
	verbose        bool
	logDir         string
	datasetPath    string
	eventLogDir    string
	outputFormat   string
	topN           int
	sourceRoot     string

	rootCmd = &cobra.Command{
		Use:   "backbone",
		Short: "Portfolio advisory pipeline",
		Long: `Backbone derives company health from raw portfolio data, detects and
forecasts problems, generates opportunities, and publishes one ranked
action list with full score traces.`,
	}

	computeCmd = &cobra.Command{
		Use:   "compute",
		Short: "Run the full pipeline over a dataset and print the ranked actions",
		RunE:  runCompute, // Defined in cmd_compute.go
	}

	gateCmd = &cobra.Command{
		Use:   "gate",
		Short: "Run the invariant checks and exit non-zero if any fail",
		RunE:  runGate, // Defined in cmd_gate.go
	}

	// --- Event Log ---
	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Inspect and append to the historical event log",
	}
	eventsListCmd = &cobra.Command{
		Use:   "list",
		Short: "Print the event log in timestamp order",
		RunE:  runEventsList, // Defined in cmd_events.go
	}
	eventsAppendCmd = &cobra.Command{
		Use:   "append [event.json]",
		Short: "Validate and append one event to the log",
		Args:  cobra.ExactArgs(1),
		RunE:  runEventsAppend, // Defined in cmd_events.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&doctrinePath, "doctrine", "", "Path to a YAML doctrine override file")
	rootCmd.PersistentFlags().StringVar(&metricExporter, "metrics", "", "Metric exporter: prometheus, stdout, or none")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for JSON log files (disabled when empty)")

	computeCmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Path to the portfolio dataset (JSON or YAML)")
	computeCmd.Flags().StringVar(&eventLogDir, "events", "", "Path to the event log directory")
	computeCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table or json")
	computeCmd.Flags().IntVar(&topN, "top", 0, "Print only the top N actions (0 means all)")
	_ = computeCmd.MarkFlagRequired("dataset")

	gateCmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Path to the portfolio dataset (JSON or YAML)")
	gateCmd.Flags().StringVar(&eventLogDir, "events", "", "Path to the event log directory")
	gateCmd.Flags().StringVar(&sourceRoot, "source-root", ".", "Repository root for the static checks")
	_ = gateCmd.MarkFlagRequired("dataset")

	eventsCmd.PersistentFlags().StringVar(&eventLogDir, "dir", "events.db", "Path to the event log directory")

	eventsCmd.AddCommand(eventsListCmd, eventsAppendCmd)
	rootCmd.AddCommand(computeCmd, gateCmd, eventsCmd)
}
