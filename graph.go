package dagrs

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Graph holds the node table, the shared environment, and (once computed)
// the cached topological execution order. Per invariant 5, the node table
// is immutable once the scheduler starts.
type Graph struct {
	mu    sync.RWMutex
	id    string
	nodes map[NodeId]*Node
	order []NodeId
	env   *Env

	started atomic.Bool

	results   map[NodeId]Packet
	resultsMu sync.RWMutex
}

// NewGraph returns an empty graph with a random id (used in log lines and
// metrics labels).
func NewGraph() *Graph {
	return &Graph{
		id:      uuid.NewString(),
		nodes:   make(map[NodeId]*Node),
		env:     NewEnv(),
		results: make(map[NodeId]Packet),
	}
}

// WithTasks returns a graph pre-populated with nodes; edges are derived
// from each node's already-declared predecessor list (set via
// Node.SetPredecessors before calling WithTasks).
func WithTasks(nodes ...*Node) (*Graph, error) {
	g := NewGraph()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, n := range nodes {
		for _, predID := range n.predecessors {
			if err := g.AddEdge(predID, n.id); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// ID returns the graph's unique identifier.
func (g *Graph) ID() string { return g.id }

// SetEnv installs the environment to share across all actions. Must be
// called before Start.
func (g *Graph) SetEnv(env *Env) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.env = env
}

// Env returns the graph's environment.
func (g *Graph) Env() *Env { return g.env }

// AddNode inserts a node into the table. Fails with ErrDuplicateID if a
// node with that id already exists.
func (g *Graph) AddNode(n *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started.Load() {
		return &GraphError{Err: ErrAlreadyRun, Detail: "cannot add node after start"}
	}
	if _, exists := g.nodes[n.id]; exists {
		return &GraphError{Err: ErrDuplicateID, NodeID: n.id, HasNode: true}
	}
	g.nodes[n.id] = n
	return nil
}

// AddEdge idempotently records the edge from -> to on both endpoints.
// Fails with ErrUnknownNode if either endpoint is missing from the table.
func (g *Graph) AddEdge(from, to NodeId) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started.Load() {
		return &GraphError{Err: ErrAlreadyRun, Detail: "cannot add edge after start"}
	}
	u, ok := g.nodes[from]
	if !ok {
		return &GraphError{Err: ErrUnknownNode, NodeID: from, HasNode: true, Detail: "edge source"}
	}
	v, ok := g.nodes[to]
	if !ok {
		return &GraphError{Err: ErrUnknownNode, NodeID: to, HasNode: true, Detail: "edge target"}
	}
	if !containsID(u.successors, to) {
		u.successors = append(u.successors, to)
	}
	if !containsID(v.predecessors, from) {
		v.predecessors = append(v.predecessors, from)
	}
	return nil
}

func containsID(ids []NodeId, target NodeId) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// NodeByID returns the node registered under id, if any.
func (g *Graph) NodeByID(id NodeId) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// NodeCount returns the number of nodes in the table.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// isLoopNode reports whether n's action wraps a loop subgraph. The
// scheduler uses it to tag such nodes' start events; the acyclicity check
// needs no special case, since a loop's interior lives in its own Graph.
func isLoopNode(n *Node) bool {
	_, ok := n.action.(*loopAction)
	return ok
}

// Validate runs the structural checks of §4.1 without mutating the graph
// and without starting execution. It is safe to call more than once; the
// result is always recomputed from current graph state (testable
// property 7: idempotence).
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, err := g.computeOrder()
	return err
}

// computeOrder runs Kahn's algorithm over the graph (loop subgraphs
// contracted to their single meta-node) and returns a topological order,
// or a structural error. Caller must hold at least a read lock.
func (g *Graph) computeOrder() ([]NodeId, error) {
	if len(g.nodes) == 0 {
		return nil, &GraphError{Err: ErrEmptyGraph}
	}

	indegree := make(map[NodeId]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.predecessors)
	}

	// Kahn's algorithm, seeded with sources in ascending NodeId order so
	// the result (and the logged order) is deterministic across runs.
	queue := make([]NodeId, 0, len(g.nodes))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sortIDs(queue)

	order := make([]NodeId, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		n := g.nodes[id]
		next := make([]NodeId, 0, len(n.successors))
		for _, succID := range n.successors {
			indegree[succID]--
			if indegree[succID] == 0 {
				next = append(next, succID)
			}
		}
		sortIDs(next)
		queue = append(queue, next...)
		sortIDs(queue)
	}

	if len(order) != len(g.nodes) {
		return nil, &GraphError{Err: ErrCyclic}
	}

	// Multiple sources/sinks are accepted and joined under synthetic
	// [Start]/[End] markers (a logging convention, see emit.HeaderLine);
	// only an empty graph is rejected, by the length check above.
	return order, nil
}

func sortIDs(ids []NodeId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// sinkIDs returns the ids of every node with no successors, in ascending
// order. The terminal node used by GetResult is the single sink when there
// is exactly one; when several exist, GetResult reports the first (lowest
// id) sink's recorded output.
func (g *Graph) sinkIDs() []NodeId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var sinks []NodeId
	for id, n := range g.nodes {
		if len(n.successors) == 0 {
			sinks = append(sinks, id)
		}
	}
	sortIDs(sinks)
	return sinks
}

// recordResult stores the output packet produced by node id, for later
// retrieval via GetResult/GetOutput.
func (g *Graph) recordResult(id NodeId, p Packet) {
	g.resultsMu.Lock()
	defer g.resultsMu.Unlock()
	g.results[id] = p
}

// GetOutput returns the typed payload recorded for node id. It returns
// (zero, false) if the node never ran, was cancelled, or its recorded
// payload's type does not match T.
func GetOutput[T any](g *Graph, id NodeId) (T, bool) {
	var zero T
	g.resultsMu.RLock()
	p, ok := g.results[id]
	g.resultsMu.RUnlock()
	if !ok {
		return zero, false
	}
	return GetPacket[T](p)
}

// GetResult returns the typed payload of the graph's terminal (sink) node.
// When the graph has several sinks, the lowest-id sink is used.
func GetResult[T any](g *Graph) (T, bool) {
	var zero T
	sinks := g.sinkIDs()
	if len(sinks) == 0 {
		return zero, false
	}
	return GetOutput[T](g, sinks[0])
}

// NodeState returns the current execution state of the node with the
// given id, or StatePending/false if the node does not exist.
func (g *Graph) NodeState(id NodeId) (State, bool) {
	n, ok := g.NodeByID(id)
	if !ok {
		return StatePending, false
	}
	return n.State(), true
}

// firstFailedNode returns the lowest-id node left in StateFailed, or nil
// if none. A loop body's Exit/Continue nodes are not necessarily the
// nodes that failed — an interior node upstream of them fails Failed
// itself while Exit/Continue are merely Cancelled by propagation — so
// loopAction scans the whole body for the actual failure to attribute.
func (g *Graph) firstFailedNode() *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]NodeId, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)
	for _, id := range ids {
		if n := g.nodes[id]; n.State() == StateFailed {
			return n
		}
	}
	return nil
}
