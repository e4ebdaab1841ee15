package dagrs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dagrs-dev/dagrs/emit"
)

// blockingSemKey is the context key under which Start stashes the
// blocking-work semaphore for the duration of one run.
type blockingSemKey struct{}

// loopBoundKey is the context key under which Start stashes the run's
// configured default loop bound, so a loopAction built with bound 0 picks
// up WithLoopBound instead of the package-wide default.
type loopBoundKey struct{}

// BlockingSemaphore returns the run's blocking-work semaphore from ctx, if
// any. Actions that shell out or otherwise block (action.CommandAction,
// action.InterpreterAction) should Acquire(1) before doing blocking work
// and Release(1) after, so a handful of slow actions can't starve the rest
// of the graph's node goroutines.
func BlockingSemaphore(ctx context.Context) (*semaphore.Weighted, bool) {
	sem, ok := ctx.Value(blockingSemKey{}).(*semaphore.Weighted)
	return sem, ok
}

// RunHandle is the non-blocking handle returned by Graph.RunAsync.
type RunHandle struct {
	done chan struct{}
	ok   bool
	err  error
}

// Wait blocks until the run finishes and returns its outcome.
func (h *RunHandle) Wait() (bool, error) {
	<-h.done
	return h.ok, h.err
}

// RunAsync starts the graph in a background goroutine and returns
// immediately with a handle to await completion.
func (g *Graph) RunAsync(ctx context.Context, opts ...Option) *RunHandle {
	h := &RunHandle{done: make(chan struct{})}
	go func() {
		h.ok, h.err = g.Start(ctx, opts...)
		close(h.done)
	}()
	return h
}

// Start validates the graph, then runs every node to completion,
// respecting edges and the FBP reverse-pressure/cancellation semantics of
// §4.3-§4.5. It returns once every node has reached a terminal state
// (Success, Failed, or Cancelled).
//
// The returned bool reports whether the run completed with no Failed
// node. A non-nil error is returned only for structural problems
// (Validate failing) or for Start being called a second time on the same
// graph; individual node failures are recorded on their nodes and do not
// abort sibling branches or surface as a returned error.
func (g *Graph) Start(ctx context.Context, opts ...Option) (bool, error) {
	if !g.started.CompareAndSwap(false, true) {
		return false, ErrAlreadyRun
	}

	order, err := func() ([]NodeId, error) {
		g.mu.RLock()
		defer g.mu.RUnlock()
		return g.computeOrder()
	}()
	if err != nil {
		return false, err
	}
	g.mu.Lock()
	g.order = order
	g.mu.Unlock()

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	g.env.freeze()

	names := make([]string, len(order))
	for i, id := range order {
		n, _ := g.NodeByID(id)
		names[i] = n.Name()
	}
	cfg.emitter.Emit(emit.Event{
		GraphID: g.id,
		Msg:     emit.MsgHeader,
		Meta:    map[string]any{"names": names},
	})

	f := newFabric(g, cfg.channelCapacity)
	sem := semaphore.NewWeighted(cfg.blockingLimit)
	runCtx := context.WithValue(ctx, blockingSemKey{}, sem)
	runCtx = context.WithValue(runCtx, loopBoundKey{}, cfg.loopBound)

	eg := &errgroup.Group{}
	for _, id := range order {
		n, _ := g.NodeByID(id)
		eg.Go(func() error {
			runNode(runCtx, g, n, f, cfg)
			return nil
		})
	}
	_ = eg.Wait()

	ok := true
	for _, id := range order {
		n, _ := g.NodeByID(id)
		if n.State() == StateFailed {
			ok = false
		}
	}
	return ok, nil
}

// runNode executes a single node's full lifecycle: gather predecessor
// packets, dispatch the action (with panic recovery), and propagate the
// outcome to successors by either sending a packet or closing the
// outbound channels without one.
func runNode(ctx context.Context, g *Graph, n *Node, f *fabric, cfg *config) {
	inbound := f.inbound[n.id]
	outbound := f.outbound[n.id]

	packets := make([]Packet, len(inbound))
	for i, ch := range inbound {
		p, ok, err := ch.receive(ctx)
		if err != nil {
			cancelNode(ctx, g, n, outbound, cfg)
			return
		}
		if !ok {
			cancelNode(ctx, g, n, outbound, cfg)
			return
		}
		packets[i] = p
	}

	n.setState(StateReady)
	n.setState(StateRunning)
	cfg.metrics.nodeStarted()
	startEvent := emit.Event{GraphID: g.id, NodeID: uint64(n.id), NodeName: n.name, Msg: emit.MsgNodeStart}
	if isLoopNode(n) {
		startEvent.Meta = map[string]any{"loop": true}
	}
	cfg.emitter.Emit(startEvent)
	start := time.Now()

	output, err := invoke(ctx, n, Input{packets: packets}, g.env)

	if err != nil && err == errConditionFalse {
		// A condition evaluating to false is a successful evaluation, not a
		// failure: the node itself reports Success, and its outbound
		// channels close without sending so its successors see the
		// "Closed" signal and cancel themselves (§4.5).
		n.setConditionResult(false)
		n.setState(StateSuccess)
		cfg.emitter.Emit(emit.Event{
			GraphID: g.id, NodeID: uint64(n.id), NodeName: n.name,
			Msg: emit.MsgNodeSuccess,
		})
		cfg.metrics.nodeFinished(g.id, n.name, time.Since(start), "success")
		g.recordResult(n.id, EmptyPacket)
		closeAll(outbound)
		return
	}

	if err != nil {
		runErr := &RunError{NodeID: n.id, Name: n.name, Message: err.Error(), Cause: err}
		n.err = runErr
		n.setState(StateFailed)
		cfg.emitter.Emit(emit.Event{
			GraphID: g.id, NodeID: uint64(n.id), NodeName: n.name,
			Msg:  emit.MsgNodeFailed,
			Meta: map[string]any{"error": runErr.Error()},
		})
		cfg.metrics.nodeFinished(g.id, n.name, time.Since(start), "failed")
		closeAll(outbound)
		return
	}

	if n.IsCondition() {
		n.setConditionResult(true)
	}
	n.setState(StateSuccess)
	cfg.emitter.Emit(emit.Event{
		GraphID: g.id, NodeID: uint64(n.id), NodeName: n.name,
		Msg: emit.MsgNodeSuccess,
	})
	cfg.metrics.nodeFinished(g.id, n.name, time.Since(start), "success")
	g.recordResult(n.id, output.Packet)

	for _, ch := range outbound {
		if sendErr := ch.send(ctx, output.Packet); sendErr == nil {
			cfg.metrics.channelSent(g.id)
		}
		ch.close()
	}
}

// cancelNode marks n Cancelled because a predecessor was itself skipped
// (or the run's context was cancelled), and propagates the skip to n's
// own successors by closing their channels without sending.
func cancelNode(ctx context.Context, g *Graph, n *Node, outbound []*edgeChan, cfg *config) {
	n.setState(StateCancelled)
	cfg.emitter.Emit(emit.Event{
		GraphID: g.id, NodeID: uint64(n.id), NodeName: n.name,
		Msg: emit.MsgNodeSkipped,
	})
	cfg.metrics.nodeFinished(g.id, n.name, 0, "cancelled")
	closeAll(outbound)
}

func closeAll(chans []*edgeChan) {
	for _, ch := range chans {
		ch.close()
	}
}

// invoke runs n's action, converting a panic into a RunError-compatible
// error instead of crashing the node's goroutine (§7: panics never escape
// a single node to take down the rest of the run).
func invoke(ctx context.Context, n *Node, in Input, env *Env) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return n.action.Run(ctx, in, env)
}
