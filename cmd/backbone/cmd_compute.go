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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/eventlog"
)

func runCompute(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset(datasetPath)
	if err != nil {
		return err
	}
	events, err := loadEvents(eventLogDir)
	if err != nil {
		return err
	}

	result, err := advisor.Compute(cmd.Context(), ds, advisor.Options{
		Doctrine: &doctrine,
		Logger:   logger,
		Events:   events,
	})
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "table":
		printResultTable(result)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

// loadDataset reads a JSON or YAML portfolio file by extension.
func loadDataset(path string) (*domain.RawDataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	var ds domain.RawDataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &ds); err != nil {
			return nil, fmt.Errorf("parsing dataset: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &ds); err != nil {
			return nil, fmt.Errorf("parsing dataset: %w", err)
		}
	}
	return &ds, nil
}

// loadEvents opens the event log read-only for one run. An empty dir
// means no history.
func loadEvents(dir string) ([]domain.Event, error) {
	if dir == "" {
		return nil, nil
	}
	store, err := eventlog.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer store.Close()
	return store.All()
}

func printResultTable(result *advisor.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "RUN\t%s\tcompanies=%d\tactions=%d/%d\n",
		result.Meta.RunID, len(result.Companies), len(result.Actions), len(result.Trace))
	for id, msg := range result.Meta.CompanyErrors {
		fmt.Fprintf(w, "EXCLUDED\t%s\t%s\n", id, msg)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "RANK\tSCORE\tCOMPANY\tTYPE\tTITLE")
	limit := len(result.Actions)
	if topN > 0 && topN < limit {
		limit = topN
	}
	for _, a := range result.Actions[:limit] {
		fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\t%s\n",
			a.Rank, a.RankScore, a.CompanyID, a.Type, a.Title)
	}
}
