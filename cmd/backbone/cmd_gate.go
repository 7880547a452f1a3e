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
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/gate"
)

func runGate(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset(datasetPath)
	if err != nil {
		return err
	}
	events, err := loadEvents(eventLogDir)
	if err != nil {
		return err
	}

	results, allPassed := gate.Run(cmd.Context(), gate.Input{
		SourceRoot: sourceRoot,
		Dataset:    ds,
		Events:     events,
		Doctrine:   &doctrine,
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, r := range results {
		verdict := "PASS"
		if !r.Passed {
			verdict = "FAIL"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", verdict, r.Name, r.Diagnostic)
	}
	w.Flush()

	if !allPassed {
		return fmt.Errorf("invariant gate failed")
	}
	return nil
}
