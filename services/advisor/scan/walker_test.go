// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var denied = map[string]bool{
	"runwayMonths": true,
	"healthScore":  true,
	"rankScore":    true,
}

// TestWalk_CleanValue verifies clean input yields no hits.
func TestWalk_CleanValue(t *testing.T) {
	type company struct {
		ID   string  `json:"id"`
		Cash float64 `json:"cashBalance"`
	}
	hits := Walk(company{ID: "acme", Cash: 100}, denied)
	assert.Empty(t, hits)

	assert.Empty(t, Walk(nil, denied))
	assert.Empty(t, Walk(company{}, nil))
}

// TestWalk_StructJSONTag verifies matching uses the json tag, not the
// Go field name.
func TestWalk_StructJSONTag(t *testing.T) {
	type company struct {
		ID     string  `json:"id"`
		Runway float64 `json:"runwayMonths"`
	}
	hits := Walk(company{ID: "acme"}, denied)
	require.Len(t, hits, 1)
	assert.Equal(t, "runwayMonths", hits[0].Key)
	assert.Equal(t, "runwayMonths", hits[0].Path)

	// The same Go field without a tag matches on its field name only.
	type untagged struct {
		Runway float64
	}
	assert.Empty(t, Walk(untagged{}, denied))
}

// TestWalk_NestedPaths verifies hits inside slices and maps carry the
// full dotted path.
func TestWalk_NestedPaths(t *testing.T) {
	type goal struct {
		ID    string  `json:"id"`
		Score float64 `json:"healthScore"`
	}
	type company struct {
		ID    string         `json:"id"`
		Goals []goal         `json:"goals"`
		Extra map[string]any `json:"extra"`
	}
	type dataset struct {
		Companies []company `json:"companies"`
	}

	ds := dataset{Companies: []company{
		{ID: "a"},
		{ID: "b",
			Goals: []goal{{ID: "g1"}},
			Extra: map[string]any{"rankScore": 4.2},
		},
	}}

	hits := Walk(ds, denied)
	require.Len(t, hits, 2)

	paths := make(map[string]string, len(hits))
	for _, h := range hits {
		paths[h.Path] = h.Key
	}
	assert.Equal(t, "healthScore", paths["companies[1].goals[0].healthScore"])
	assert.Equal(t, "rankScore", paths["companies[1].extra.rankScore"])
}

// TestWalk_MapValueRecursion verifies the walker descends into map values
// wrapped in interfaces.
func TestWalk_MapValueRecursion(t *testing.T) {
	payload := map[string]any{
		"company": map[string]any{
			"metrics": map[string]any{
				"runwayMonths": 3.5,
			},
		},
	}
	hits := Walk(payload, denied)
	require.Len(t, hits, 1)
	assert.Equal(t, "runwayMonths", hits[0].Key)
	assert.Equal(t, "company.metrics.runwayMonths", hits[0].Path)
}

// TestWalk_MapOrderDeterministic verifies map hits come back in sorted
// key order, run after run, despite randomized map iteration.
func TestWalk_MapOrderDeterministic(t *testing.T) {
	payload := map[string]any{
		"runwayMonths": 3.5,
		"healthScore":  0.8,
		"rankScore":    12.0,
		"cash":         100_000,
	}

	want := []string{"healthScore", "rankScore", "runwayMonths"}
	for run := 0; run < 10; run++ {
		hits := Walk(payload, denied)
		require.Len(t, hits, len(want))
		for i, key := range want {
			assert.Equal(t, key, hits[i].Key, "run %d", run)
			assert.Equal(t, key, hits[i].Path, "run %d", run)
		}
	}
}

// TestWalk_CyclicPointer verifies self-referencing structures terminate.
func TestWalk_CyclicPointer(t *testing.T) {
	type node struct {
		Name string `json:"rankScore"`
		Next *node  `json:"next"`
	}
	a := &node{Name: "a"}
	b := &node{Name: "b", Next: a}
	a.Next = b

	hits := Walk(a, denied)
	assert.Len(t, hits, 2)
}

// TestWalk_CaseSensitive verifies matching does not normalize case.
func TestWalk_CaseSensitive(t *testing.T) {
	payload := map[string]any{"RunwayMonths": 3.0}
	assert.Empty(t, Walk(payload, denied))
}
