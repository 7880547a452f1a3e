// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dag provides the derivation pipeline engine: a validated
// directed acyclic graph of named computation nodes executed in dependency
// waves.
//
// # Description
//
// A run recomputes every node from scratch; there is no checkpointing and
// no state carried between runs, which is what makes pipeline determinism
// testable. Structural validation (duplicates, missing dependencies,
// cycles, terminal selection) happens at build time.
package dag

import (
	"context"
	"sort"
)

// Node is one named computation in a DAG.
type Node interface {
	// Name returns the node's unique identifier.
	Name() string

	// Dependencies returns the names of nodes that must complete first.
	Dependencies() []string

	// Execute runs the node. inputs maps each dependency name to its
	// output; root nodes receive the run input under the "root" key.
	Execute(ctx context.Context, inputs map[string]any) (any, error)
}

// FuncNode wraps a function as a Node.
type FuncNode struct {
	name string
	deps []string
	fn   func(context.Context, map[string]any) (any, error)
}

// NewFuncNode creates a node from a function.
func NewFuncNode(name string, deps []string, fn func(context.Context, map[string]any) (any, error)) *FuncNode {
	return &FuncNode{name: name, deps: deps, fn: fn}
}

func (n *FuncNode) Name() string { return n.name }

func (n *FuncNode) Dependencies() []string {
	if n.deps == nil {
		return []string{}
	}
	return n.deps
}

func (n *FuncNode) Execute(ctx context.Context, inputs map[string]any) (any, error) {
	if n.fn == nil {
		return nil, NewNodeError(n.name, ErrNilNode)
	}
	return n.fn(ctx, inputs)
}

// Edge is one dependency edge, From completing before To runs.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DAG is a validated, immutable graph ready for execution.
//
// # Thread Safety
//
// Read-only after Build. Safe for concurrent executions.
type DAG struct {
	name     string
	nodes    map[string]Node
	edges    []Edge
	terminal string
}

// Name returns the DAG's name.
func (d *DAG) Name() string { return d.name }

// NodeCount returns the number of nodes.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// NodeNames returns all node names, sorted for determinism.
func (d *DAG) NodeNames() []string {
	names := make([]string, 0, len(d.nodes))
	for name := range d.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetNode returns the named node.
func (d *DAG) GetNode(name string) (Node, bool) {
	n, ok := d.nodes[name]
	return n, ok
}

// Dependencies returns the named node's dependencies.
func (d *DAG) Dependencies(name string) []string {
	n, ok := d.nodes[name]
	if !ok {
		return nil
	}
	return n.Dependencies()
}

// Edges returns a copy of all dependency edges.
func (d *DAG) Edges() []Edge {
	out := make([]Edge, len(d.edges))
	copy(out, d.edges)
	return out
}

// Terminal returns the terminal node name (no dependents). When several
// exist, the lexicographically first was chosen at build time.
func (d *DAG) Terminal() string { return d.terminal }

// DeadEnds returns non-terminal nodes nothing depends on, excluding the
// allowed set. A dead end is computed work no consumer reads: either wire
// it or whitelist it explicitly.
func (d *DAG) DeadEnds(allowed map[string]bool) []string {
	hasDependent := make(map[string]bool)
	for _, e := range d.edges {
		hasDependent[e.From] = true
	}

	var out []string
	for _, name := range d.NodeNames() {
		if name == d.terminal || hasDependent[name] || allowed[name] {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Builder constructs a DAG with validation.
//
// # Thread Safety
//
// Builder is NOT safe for concurrent use.
type Builder struct {
	name   string
	nodes  map[string]Node
	edges  []Edge
	errs   []error
}

// NewBuilder creates a builder for a named DAG.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]Node),
	}
}

// AddNode adds a node and edges from its declared dependencies.
// Errors accumulate and surface from Build.
func (b *Builder) AddNode(node Node) *Builder {
	if node == nil {
		b.errs = append(b.errs, ErrNilNode)
		return b
	}
	name := node.Name()
	if _, exists := b.nodes[name]; exists {
		b.errs = append(b.errs, NewNodeError(name, ErrDuplicateNode))
		return b
	}
	b.nodes[name] = node
	for _, dep := range node.Dependencies() {
		b.edges = append(b.edges, Edge{From: dep, To: name})
	}
	return b
}

// Build validates and constructs the DAG.
//
// Outputs:
//
//	*DAG - The validated graph.
//	error - Non-nil on duplicate nodes, missing dependencies, or cycles.
func (b *Builder) Build() (*DAG, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if len(b.nodes) == 0 {
		return nil, ErrEmptyDAG
	}

	for _, e := range b.edges {
		if _, ok := b.nodes[e.From]; !ok {
			return nil, NewNodeError(e.To, ErrNodeNotFound)
		}
	}

	if err := b.detectCycles(); err != nil {
		return nil, err
	}

	return &DAG{
		name:     b.name,
		nodes:    b.nodes,
		edges:    b.edges,
		terminal: b.findTerminal(),
	}, nil
}

// detectCycles runs DFS over the dependency relation.
func (b *Builder) detectCycles() error {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string

	var dfs func(name string) error
	dfs = func(name string) error {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		for _, dep := range b.nodes[name].Dependencies() {
			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			} else if onStack[dep] {
				start := 0
				for i, n := range path {
					if n == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), dep)
				return &CycleError{Path: cycle}
			}
		}

		path = path[:len(path)-1]
		onStack[name] = false
		return nil
	}

	// Deterministic iteration keeps cycle reports stable.
	names := make([]string, 0, len(b.nodes))
	for name := range b.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] {
			if err := dfs(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// findTerminal picks the node with no dependents, lexicographically first
// when several qualify.
func (b *Builder) findTerminal() string {
	hasDependent := make(map[string]bool)
	for _, e := range b.edges {
		hasDependent[e.From] = true
	}

	var terminals []string
	for name := range b.nodes {
		if !hasDependent[name] {
			terminals = append(terminals, name)
		}
	}
	if len(terminals) == 0 {
		return ""
	}
	sort.Strings(terminals)
	return terminals[0]
}
