package dagrs

import (
	"context"
	"sync/atomic"
)

// NodeId is a process-wide unique handle obtained from a monotonic
// allocator. Two ids are equal iff they refer to the same node; ids are
// stable for the life of the Graph that minted them.
type NodeId uint64

var nodeIDCounter atomic.Uint64

// nextNodeID mints a fresh, process-wide unique NodeId. IDs start at 1 so
// the zero value of NodeId can be used as a "no node" sentinel.
func nextNodeID() NodeId {
	return NodeId(nodeIDCounter.Add(1))
}

// State is a node's execution state. It transitions monotonically:
// Pending -> Ready -> Running -> (Success | Failed | Cancelled).
type State int

const (
	StatePending State = iota
	StateReady
	StateRunning
	StateSuccess
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateSuccess:
		return "Success"
	case StateFailed:
		return "Failed"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Action is the one operation every node executes. Input preserves the
// declared predecessor order; Output wraps a single packet payload or the
// empty value. Action.Run must be safe to invoke from a concurrent
// execution context and must not block the scheduler's own progress —
// actions that shell out or otherwise block should dispatch that work to a
// worker goroutine or a blocking-friendly pool (see action.CommandAction).
type Action interface {
	Run(ctx context.Context, in Input, env *Env) (Output, error)
}

// NativeAction adapts a plain function into an Action, for user code
// invoked directly with no external process or interpreter involved.
type NativeAction func(ctx context.Context, in Input, env *Env) (Output, error)

// Run implements Action.
func (f NativeAction) Run(ctx context.Context, in Input, env *Env) (Output, error) {
	return f(ctx, in, env)
}

// Node is a unit of work: an id, a human label, exactly one action, and
// the sets of predecessor/successor ids that define its edges.
type Node struct {
	id           NodeId
	name         string
	action       Action
	predecessors []NodeId
	successors   []NodeId

	state atomic.Int32
	err   error

	// condResult records a condition node's true/false outcome, since that
	// outcome doesn't fit in State (a condition node that evaluates false
	// is still State Success per §4.5 — only its successors are Cancelled).
	// 0 = not a condition node or not yet evaluated, 1 = true, 2 = false.
	condResult atomic.Int32
}

// NewNode allocates a fresh NodeId and returns a Node wrapping action,
// labeled name for logging. name need not be unique.
func NewNode(action Action, name string) *Node {
	n := &Node{
		id:     nextNodeID(),
		name:   name,
		action: action,
	}
	n.state.Store(int32(StatePending))
	return n
}

// ID returns the node's process-wide unique identifier.
func (n *Node) ID() NodeId { return n.id }

// Name returns the node's human label.
func (n *Node) Name() string { return n.name }

// SetPredecessors wires this node's incoming edges, replacing any
// previously declared predecessors. Order is preserved and is exactly the
// index order an Action sees via Input — this is the engine's resolution
// of the "append or replace" open question.
func (n *Node) SetPredecessors(preds ...*Node) {
	ids := make([]NodeId, len(preds))
	for i, p := range preds {
		ids[i] = p.ID()
	}
	n.predecessors = ids
}

// State returns the node's current execution state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// Err returns the error recorded for a Failed node, or nil.
func (n *Node) Err() error { return n.err }

// IsCondition reports whether n's action is a Conditional (see
// ConditionAction): such nodes prune their subtree on a false result
// instead of producing a payload.
func (n *Node) IsCondition() bool {
	c, ok := n.action.(Conditional)
	return ok && c.IsCondition()
}

func (n *Node) setState(s State) { n.state.Store(int32(s)) }

// ConditionResult returns the boolean outcome of a condition node's most
// recent evaluation. ok is false if n is not a condition node or has not
// run yet.
func (n *Node) ConditionResult() (result bool, ok bool) {
	switch n.condResult.Load() {
	case 1:
		return true, true
	case 2:
		return false, true
	default:
		return false, false
	}
}

func (n *Node) setConditionResult(v bool) {
	if v {
		n.condResult.Store(1)
	} else {
		n.condResult.Store(2)
	}
}
