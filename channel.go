package dagrs

import "sync"

// edgeChan is a bounded single-producer/single-consumer channel carrying
// the packets sent across one graph edge. Capacity C gives the FBP
// "reverse pressure" property required by §4.3: Send blocks cooperatively
// once the channel is full, which propagates backpressure to the
// producer's own goroutine rather than dropping data or growing memory
// unboundedly.
type edgeChan struct {
	ch        chan Packet
	closeOnce sync.Once
}

func newEdgeChan(capacity int) *edgeChan {
	if capacity <= 0 {
		capacity = defaultChannelCapacity
	}
	return &edgeChan{ch: make(chan Packet, capacity)}
}

// send delivers p on the channel, blocking if the channel is full, or
// returning early if ctx is cancelled. send must only ever be called by
// the single producer for this edge.
func (e *edgeChan) send(ctx ctxDoner, p Packet) error {
	select {
	case e.ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close is idempotent: closing an already-closed edgeChan is a no-op. The
// producer closes its outbound channels exactly once per run, but the
// scheduler's cancellation path may also race to close on fatal failure,
// so idempotence is required here rather than left to callers.
func (e *edgeChan) close() {
	e.closeOnce.Do(func() { close(e.ch) })
}

// receive blocks until either a packet arrives or the channel is closed.
// ok is false exactly when the channel has been closed and drained — the
// "Closed" signal of §4.3.
func (e *edgeChan) receive(ctx ctxDoner) (Packet, bool, error) {
	select {
	case p, ok := <-e.ch:
		return p, ok, nil
	case <-ctx.Done():
		return Packet{}, false, ctx.Err()
	}
}

// ctxDoner is the minimal slice of context.Context the channel fabric
// needs; it exists so channel.go has no direct "context" import cycle
// concerns when reused by the loop subgraph's inner scheduler.
type ctxDoner interface {
	Done() <-chan struct{}
	Err() error
}

const defaultChannelCapacity = 16

// fabric provisions and owns one edgeChan per graph edge for a single
// execution of a Graph. It is owned by the Scheduler for the life of that
// execution, never by the Graph itself (graphs can be re-wired between
// runs of different scopes, e.g. loop subgraph iterations).
type fabric struct {
	capacity int
	// outbound[u] holds one edgeChan per successor of u, in the same
	// order as Node.successors, so fan-out can iterate both slices
	// together.
	outbound map[NodeId][]*edgeChan
	// inbound[v] holds one edgeChan per predecessor of v, in the same
	// order as Node.predecessors, matching the Input index contract.
	inbound map[NodeId][]*edgeChan
}

func newFabric(g *Graph, capacity int) *fabric {
	f := &fabric{
		capacity: capacity,
		outbound: make(map[NodeId][]*edgeChan),
		inbound:  make(map[NodeId][]*edgeChan),
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, n := range g.nodes {
		for range n.successors {
			c := newEdgeChan(capacity)
			f.outbound[id] = append(f.outbound[id], c)
		}
	}
	// Wire inbound to the same edgeChan instances as the producer's
	// outbound slot, by walking successors again and indexing into the
	// consumer's predecessor list.
	for id, n := range g.nodes {
		for i, succID := range n.successors {
			c := f.outbound[id][i]
			succ := g.nodes[succID]
			idx := indexOf(succ.predecessors, id)
			ensureLen(f.inbound, succID, len(succ.predecessors))
			f.inbound[succID][idx] = c
		}
	}
	return f
}

func indexOf(ids []NodeId, target NodeId) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}

func ensureLen(m map[NodeId][]*edgeChan, id NodeId, n int) {
	if len(m[id]) >= n {
		return
	}
	grown := make([]*edgeChan, n)
	copy(grown, m[id])
	m[id] = grown
}
