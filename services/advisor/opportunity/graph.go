// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package opportunity

import (
	"math"
	"sort"
	"time"

	"github.com/elliot-backbone/backbone-v9-sub002/services/advisor/domain"
)

// IntroducerGraph is the weighted relationship graph used for
// relationship-leverage pathfinding.
//
// # Thread Safety
//
// Read-only after construction. Safe for concurrent use.
type IntroducerGraph struct {
	// edges[from] lists outgoing edges, sorted by target ID for
	// deterministic traversal.
	edges map[string][]edge
}

type edge struct {
	to          string
	strength    float64
	lastTouched time.Time
}

// Path is a scored introducer path between two entities.
type Path struct {
	// Nodes is the full node sequence, endpoints included.
	Nodes []string `json:"nodes"`

	// Hops is len(Nodes) - 1.
	Hops int `json:"hops"`

	// Score is geomMean(strengths) * hopPenalty^(hops-1).
	Score float64 `json:"score"`

	// MinStrength is the weakest link on the path.
	MinStrength float64 `json:"min_strength"`

	// LastTouched is the most recent touch on any path edge.
	LastTouched time.Time `json:"last_touched"`
}

// NewIntroducerGraph builds the graph from relationship records.
// Relationships are treated as bidirectional.
func NewIntroducerGraph(rels []domain.Relationship) *IntroducerGraph {
	g := &IntroducerGraph{edges: make(map[string][]edge)}
	for _, r := range rels {
		g.edges[r.FromID] = append(g.edges[r.FromID],
			edge{to: r.ToID, strength: r.Strength, lastTouched: r.LastTouched})
		g.edges[r.ToID] = append(g.edges[r.ToID],
			edge{to: r.FromID, strength: r.Strength, lastTouched: r.LastTouched})
	}
	for from := range g.edges {
		es := g.edges[from]
		sort.Slice(es, func(i, j int) bool { return es[i].to < es[j].to })
	}
	return g
}

// BestPath finds the highest-scoring path from one entity to another,
// capped at maxHops. Returns ok=false when no path exists within the cap.
//
// Description:
//
//	Path score is the geometric mean of normalized edge strengths times
//	hopPenalty^(hops-1), so a strong 2-hop intro can beat a weak direct
//	relationship. Ties break on lexicographic node order for determinism.
func (g *IntroducerGraph) BestPath(from, to string, maxHops int, hopPenalty float64) (Path, bool) {
	if from == to {
		return Path{}, false
	}

	var best Path
	found := false
	consider := func(p Path) {
		if !found || p.Score > best.Score {
			best = p
			found = true
		}
	}

	// Direct edge.
	for _, e := range g.edges[from] {
		if e.to == to {
			consider(pathFromEdges([]string{from, to}, []edge{e}, hopPenalty))
		}
	}

	// One intermediary.
	if maxHops >= 2 {
		for _, e1 := range g.edges[from] {
			if e1.to == to {
				continue
			}
			for _, e2 := range g.edges[e1.to] {
				if e2.to != to {
					continue
				}
				consider(pathFromEdges([]string{from, e1.to, to}, []edge{e1, e2}, hopPenalty))
			}
		}
	}

	return best, found
}

func pathFromEdges(nodes []string, edges []edge, hopPenalty float64) Path {
	product := 1.0
	minStrength := 1.0
	var lastTouched time.Time
	for _, e := range edges {
		product *= e.strength
		if e.strength < minStrength {
			minStrength = e.strength
		}
		if e.lastTouched.After(lastTouched) {
			lastTouched = e.lastTouched
		}
	}

	hops := len(edges)
	geoMean := math.Pow(product, 1/float64(hops))

	return Path{
		Nodes:       nodes,
		Hops:        hops,
		Score:       geoMean * math.Pow(hopPenalty, float64(hops-1)),
		MinStrength: minStrength,
		LastTouched: lastTouched,
	}
}
