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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/eventlog"
)

func runEventsList(cmd *cobra.Command, args []string) error {
	store, err := eventlog.Open(eventLogDir)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer store.Close()

	events, err := store.All()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tTYPE\tACTION\tACTOR\tID")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.UTC().Format(time.RFC3339), e.Type, e.ActionID, e.Actor, e.ID)
	}
	return w.Flush()
}

func runEventsAppend(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading event: %w", err)
	}
	var e domain.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return fmt.Errorf("parsing event: %w", err)
	}

	store, err := eventlog.Open(eventLogDir)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer store.Close()

	if err := store.Append(e); err != nil {
		return err
	}
	fmt.Printf("appended %s (%s)\n", e.ID, e.Type)
	return nil
}
