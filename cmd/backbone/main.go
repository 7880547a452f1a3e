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
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/elliot-backbone/backbone-v9-sub002/pkg/logging"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/config"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/telemetry"
)

var (
	doctrine config.Doctrine
	appLog   *logging.Logger
	logger   *slog.Logger

	telemetryShutdown func(context.Context) error
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		appLog = logging.New(logging.Config{
			Level:   level,
			LogDir:  logDir,
			Service: "backbone",
		})
		logger = appLog.Slog()
		slog.SetDefault(logger)

		var err error
		if doctrinePath != "" {
			doctrine, err = config.Load(doctrinePath)
			if err != nil {
				return err
			}
		} else {
			doctrine = config.Default()
		}

		tcfg := telemetry.DefaultConfig()
		if metricExporter != "" {
			tcfg.MetricExporter = metricExporter
		}
		telemetryShutdown, err = telemetry.Init(cmd.Context(), tcfg, logger)
		return err
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if telemetryShutdown != nil {
			_ = telemetryShutdown(cmd.Context())
		}
		if appLog != nil {
			_ = appLog.Close()
		}
	}
}
