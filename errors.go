// Package dagrs is an embeddable execution engine for directed acyclic
// graphs (and bounded cyclic subgraphs) of user-defined tasks.
package dagrs

import "errors"

// Structural errors. These are returned by Graph.AddNode, Graph.AddEdge,
// Graph.Validate and Graph.Start before any action has run; no task
// executes when one of these is returned.
var (
	ErrDuplicateID = errors.New("dagrs: duplicate node id")
	ErrUnknownNode = errors.New("dagrs: edge references unknown node")
	ErrCyclic      = errors.New("dagrs: graph contains a cycle outside declared loop subgraphs")
	ErrEmptyGraph  = errors.New("dagrs: graph has no nodes")
	ErrAlreadyRun  = errors.New("dagrs: graph has already been started")

	// ErrMultipleSinks is part of the historical structural-error taxonomy
	// but is never returned: multiple sinks are accepted and joined under
	// a synthetic [End] marker for logging purposes only (see the comment
	// at the end of Graph.computeOrder). It is kept exported so code written against
	// the taxonomy compiles against an errors.Is target that simply never
	// fires.
	ErrMultipleSinks = errors.New("dagrs: graph has multiple sinks")
)

// Runtime errors. These surface during execution and do not unwind into
// the caller of Start/RunAsync; they are recorded on the failing node and
// the scheduler continues until the remaining tasks settle.
var (
	ErrChannelClosed = errors.New("dagrs: channel closed")
	ErrLoopBound     = errors.New("dagrs: loop subgraph exceeded its iteration bound")
)

// RunError is a user-facing error produced by an Action's Run method, or
// synthesized by the scheduler when a node panics. It carries enough
// context to attribute the failure to a specific node.
type RunError struct {
	NodeID  NodeId
	Name    string
	Message string
	Cause   error
}

func (e *RunError) Error() string {
	if e.Name != "" {
		return "dagrs: node " + e.Name + ": " + e.Message
	}
	return "dagrs: " + e.Message
}

func (e *RunError) Unwrap() error { return e.Cause }

// GraphError wraps a structural sentinel with the detail needed to explain
// it to a caller (which id was duplicated, which edge was orphaned, ...).
type GraphError struct {
	Err     error
	Detail  string
	NodeID  NodeId
	HasNode bool
}

func (e *GraphError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *GraphError) Unwrap() error { return e.Err }
