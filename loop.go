package dagrs

import "context"

// loopInputEnvKey is the Env key a loop subgraph's entry node reads to
// obtain the packet carried into the current iteration. LoopInput is the
// public accessor; the key itself never needs to be named by user code.
const loopInputEnvKey = "dagrs.loop.input"

// LoopInput retrieves the packet an enclosing loop subgraph is feeding
// into the current iteration. A loop body's entry node action calls this
// instead of relying on Input, since the entry node has no predecessors
// of its own within the body graph.
func LoopInput(env *Env) (Packet, bool) {
	raw, ok := env.Get(loopInputEnvKey)
	if !ok {
		return Packet{}, false
	}
	p, ok := raw.(Packet)
	return p, ok
}

// LoopBody is one fresh instance of a loop subgraph's interior: a graph,
// its single entry point (which reads LoopInput instead of declared
// predecessors), a condition node whose true/false result after the pass
// decides whether to iterate again, and the node whose recorded
// output becomes both the next iteration's input and, on the final pass,
// the loop node's own output.
type LoopBody struct {
	Graph    *Graph
	Entry    NodeId
	Continue NodeId
	Exit     NodeId
}

// LoopBuilder constructs one fresh LoopBody. It is invoked once per
// iteration, since a Graph can only be Start-ed once (invariant 5) and
// the interior must be "re-scheduled as a fresh pass" each time around.
type LoopBuilder func() (*LoopBody, error)

// loopAction adapts a LoopBuilder into an ordinary Action, so a loop
// subgraph is, from the enclosing graph's perspective, a single node.
// isLoopNode uses this type to recognize such nodes for logging. The cycle
// check needs nothing from it: the interior lives in its own Graph value
// entirely, so the outer graph's topology already sees the loop as one
// node with no visibility into its cycles.
type loopAction struct {
	build     LoopBuilder
	loopBound int
}

// NewLoop wraps build as a single node usable anywhere an ordinary Action
// is: the enclosing graph sees one predecessor edge in, one successor
// edge out. bound caps iterations (0 uses the run's configured
// WithLoopBound, default 1024).
func NewLoop(name string, build LoopBuilder, bound int) *Node {
	return NewNode(&loopAction{build: build, loopBound: bound}, name)
}

func (l *loopAction) Run(ctx context.Context, in Input, env *Env) (Output, error) {
	bound := l.loopBound
	if bound <= 0 {
		if runBound, ok := ctx.Value(loopBoundKey{}).(int); ok && runBound > 0 {
			bound = runBound
		} else {
			bound = defaultLoopBound
		}
	}

	var packet Packet
	if in.Len() > 0 {
		packet = in.At(0)
	}

	for iter := 0; iter < bound; iter++ {
		body, err := l.build()
		if err != nil {
			return Output{}, err
		}

		iterEnv := NewEnv()
		for k, v := range env.values {
			iterEnv.Set(k, v)
		}
		iterEnv.Set(loopInputEnvKey, packet)
		body.Graph.SetEnv(iterEnv)

		ok, err := body.Graph.Start(ctx)
		if err != nil {
			return Output{}, err
		}
		if !ok {
			// The node that actually failed is not necessarily Exit or
			// Continue: a failure anywhere upstream of them propagates as
			// Cancelled on Exit/Continue, not Failed, so it must be found
			// by scanning the body rather than inspecting those two nodes.
			if failed := body.Graph.firstFailedNode(); failed != nil {
				return Output{}, failed.Err()
			}
			return Output{}, &RunError{Message: "loop body failed without a recorded failed node"}
		}

		if _, exists := body.Graph.NodeByID(body.Exit); !exists {
			return Output{}, &RunError{Message: "loop body exit node not found"}
		}
		exitPacket, _ := body.Graph.rawResult(body.Exit)
		packet = exitPacket

		contNode, exists := body.Graph.NodeByID(body.Continue)
		if !exists {
			return Output{}, &RunError{Message: "loop body continue node not found"}
		}
		if !contNode.IsCondition() {
			return Output{}, &RunError{Message: "loop body continue node must be a condition node"}
		}
		shouldContinue, evaluated := contNode.ConditionResult()
		if !evaluated {
			return Output{}, &RunError{Message: "loop body continue node did not evaluate"}
		}
		if !shouldContinue {
			return Output{Packet: packet}, nil
		}
	}

	return Output{}, ErrLoopBound
}

// rawResult returns the untyped packet recorded for id, bypassing the
// generic GetOutput accessor (loopAction doesn't know the payload type).
func (g *Graph) rawResult(id NodeId) (Packet, bool) {
	g.resultsMu.RLock()
	defer g.resultsMu.RUnlock()
	p, ok := g.results[id]
	return p, ok
}
