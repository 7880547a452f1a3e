// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dag

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for DAG construction and execution.
var (
	// ErrNilNode indicates a nil node was added to a builder.
	ErrNilNode = errors.New("node must not be nil")

	// ErrDuplicateNode indicates two nodes share a name.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrNodeNotFound indicates a declared dependency does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEmptyDAG indicates a build with no nodes.
	ErrEmptyDAG = errors.New("dag has no nodes")

	// ErrNilContext indicates a nil context was passed to Run.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNoProgress indicates no node is ready but the DAG is incomplete.
	ErrNoProgress = errors.New("no runnable node but dag incomplete")
)

// NodeError wraps a failure with the node it happened in.
type NodeError struct {
	NodeName string
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeName, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// NewNodeError wraps err with the node name.
func NewNodeError(name string, err error) *NodeError {
	return &NodeError{NodeName: name, Err: err}
}

// CycleError reports a dependency cycle with its path.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}
