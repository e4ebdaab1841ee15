package dagrs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthrough(delta int) NativeAction {
	return func(ctx context.Context, in Input, env *Env) (Output, error) {
		base := 0
		if in.Len() > 0 {
			if v, ok := GetPacket[int](in.At(0)); ok {
				base = v
			}
		}
		return NewOutput(base + delta), nil
	}
}

// S1: a linear chain a -> b -> c propagates a single value end to end.
func TestLinearChain(t *testing.T) {
	a := NewNode(passthrough(1), "a")
	b := NewNode(passthrough(10), "b")
	c := NewNode(passthrough(100), "c")
	b.SetPredecessors(a)
	c.SetPredecessors(b)

	g, err := WithTasks(a, b, c)
	require.NoError(t, err)

	ok, err := g.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	v, ok := GetResult[int](g)
	require.True(t, ok)
	assert.Equal(t, 111, v)

	assert.Equal(t, StateSuccess, a.State())
	assert.Equal(t, StateSuccess, b.State())
	assert.Equal(t, StateSuccess, c.State())
}

// S2: a diamond (a -> b, a -> c, {b,c} -> d) where d reads the shared Env
// multiplier and both of its predecessor outputs.
func TestDiamondWithEnvMultiplier(t *testing.T) {
	a := NewNode(passthrough(1), "a")
	b := NewNode(passthrough(10), "b")
	c := NewNode(passthrough(20), "c")
	d := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
		mult, _ := GetEnv[int](env, "multiplier")
		sum := 0
		for _, p := range in.All() {
			if v, ok := GetPacket[int](p); ok {
				sum += v
			}
		}
		return NewOutput(sum * mult), nil
	}), "d")

	b.SetPredecessors(a)
	c.SetPredecessors(a)
	d.SetPredecessors(b, c)

	g, err := WithTasks(a, b, c, d)
	require.NoError(t, err)

	env := NewEnv()
	env.Set("multiplier", 2)
	g.SetEnv(env)

	ok, err := g.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	v, ok := GetResult[int](g)
	require.True(t, ok)
	assert.Equal(t, (11+21)*2, v)
}

// S3: a graph with a cycle is rejected by Validate/Start before any
// action runs.
func TestCyclicGraphRejected(t *testing.T) {
	a := NewNode(passthrough(1), "a")
	b := NewNode(passthrough(1), "b")
	a.SetPredecessors(b)
	b.SetPredecessors(a)

	g, err := WithTasks(a, b)
	require.NoError(t, err, "structural cycles are only caught by Validate/Start, not graph assembly")

	err = g.Validate()
	require.Error(t, err)
	var gerr *GraphError
	require.ErrorAs(t, err, &gerr)
	assert.ErrorIs(t, gerr, ErrCyclic)

	_, err = g.Start(context.Background())
	assert.ErrorIs(t, err, ErrCyclic)
}

// S4: a failing node fails the overall run but does not abort an
// unrelated sibling branch.
func TestFatalFailurePropagatesWithoutAbortingSiblings(t *testing.T) {
	failing := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
		return Output{}, errors.New("boom")
	}), "failing")
	downstream := NewNode(passthrough(1), "downstream")
	downstream.SetPredecessors(failing)

	sibling := NewNode(passthrough(5), "sibling")

	g, err := WithTasks(failing, downstream, sibling)
	require.NoError(t, err)

	ok, err := g.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, StateFailed, failing.State())
	require.Error(t, failing.Err())
	assert.Equal(t, StateCancelled, downstream.State())
	assert.Equal(t, StateSuccess, sibling.State())
}

// S5: a false condition prunes its subtree as Cancelled, not Failed.
func TestConditionFalsePrunesSubtree(t *testing.T) {
	cond := NewNode(NewCondition(func(ctx context.Context, in Input, env *Env) (bool, error) {
		return false, nil
	}), "cond")
	pruned := NewNode(passthrough(1), "pruned")
	pruned.SetPredecessors(cond)

	g, err := WithTasks(cond, pruned)
	require.NoError(t, err)

	ok, err := g.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "a pruned-but-not-failed run still reports overall success")

	assert.Equal(t, StateSuccess, cond.State(), "a condition node that evaluates successfully to false is Success, not Cancelled")
	assert.Equal(t, StateCancelled, pruned.State())
}

// S6: a bounded loop subgraph iterates until its interior condition goes
// false, then exceeding the bound yields ErrLoopBound.
func TestLoopSubgraphTerminatesAndRespectsBound(t *testing.T) {
	buildCounting := func(limit int) LoopBuilder {
		return func() (*LoopBody, error) {
			entry := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
				p, _ := LoopInput(env)
				n, _ := GetPacket[int](p)
				return NewOutput(n + 1), nil
			}), "entry")
			cont := NewNode(NewCondition(func(ctx context.Context, in Input, env *Env) (bool, error) {
				v, _ := GetPacket[int](in.At(0))
				return v < limit, nil
			}), "continue")
			cont.SetPredecessors(entry)

			g, err := WithTasks(entry, cont)
			if err != nil {
				return nil, err
			}
			return &LoopBody{Graph: g, Entry: entry.ID(), Continue: cont.ID(), Exit: entry.ID()}, nil
		}
	}

	loopNode := NewLoop("loop", buildCounting(3), 10)
	g, err := WithTasks(loopNode)
	require.NoError(t, err)

	ok, err := g.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	v, ok := GetResult[int](g)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	boundedNode := NewLoop("loop2", buildCounting(1000), 5)
	g2, err := WithTasks(boundedNode)
	require.NoError(t, err)

	ok, err = g2.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateFailed, boundedNode.State())
	assert.ErrorIs(t, boundedNode.Err(), ErrLoopBound)
}

// A failure inside a loop body that occurs upstream of Exit/Continue
// (rather than on Exit/Continue itself) still fails the loop node, instead
// of being swallowed as if Continue had simply evaluated false.
func TestLoopInteriorFailureUpstreamOfExitPropagates(t *testing.T) {
	buildFailingBody := func() (*LoopBody, error) {
		entry := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
			return NewOutput(0), nil
		}), "entry")
		worker := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
			return Output{}, errors.New("interior boom")
		}), "worker")
		worker.SetPredecessors(entry)
		cont := NewNode(NewCondition(func(ctx context.Context, in Input, env *Env) (bool, error) {
			return false, nil
		}), "continue")
		cont.SetPredecessors(worker)
		exit := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
			return NewOutput(1), nil
		}), "exit")
		exit.SetPredecessors(worker)

		g, err := WithTasks(entry, worker, cont, exit)
		if err != nil {
			return nil, err
		}
		return &LoopBody{Graph: g, Entry: entry.ID(), Continue: cont.ID(), Exit: exit.ID()}, nil
	}

	loopNode := NewLoop("loop", buildFailingBody, 5)
	g, err := WithTasks(loopNode)
	require.NoError(t, err)

	ok, err := g.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "an interior failure upstream of Exit/Continue must not report loop success")
	assert.Equal(t, StateFailed, loopNode.State())
	require.Error(t, loopNode.Err())
	assert.ErrorContains(t, loopNode.Err(), "interior boom")
}

// A loop node built with bound 0 picks up the run's WithLoopBound instead
// of the package-wide default.
func TestLoopZeroBoundUsesRunConfiguredBound(t *testing.T) {
	buildNeverEnding := func() (*LoopBody, error) {
		entry := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
			p, _ := LoopInput(env)
			n, _ := GetPacket[int](p)
			return NewOutput(n + 1), nil
		}), "entry")
		cont := NewNode(NewCondition(func(ctx context.Context, in Input, env *Env) (bool, error) {
			return true, nil
		}), "continue")
		cont.SetPredecessors(entry)

		g, err := WithTasks(entry, cont)
		if err != nil {
			return nil, err
		}
		return &LoopBody{Graph: g, Entry: entry.ID(), Continue: cont.ID(), Exit: entry.ID()}, nil
	}

	loopNode := NewLoop("loop", buildNeverEnding, 0)
	g, err := WithTasks(loopNode)
	require.NoError(t, err)

	ok, err := g.Start(context.Background(), WithLoopBound(2))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, loopNode.Err(), ErrLoopBound)
}

// A producer feeding a slow consumer over a capacity-1 edge channel still
// runs to completion. Each node runs once, so this does not observe the
// producer blocking; it checks only that a small capacity does not stall
// the run.
func TestSmallChannelCapacityRunCompletes(t *testing.T) {
	produced := make(chan int, 100)
	producer := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
		produced <- 1
		return NewOutput(1), nil
	}), "producer")
	consumer := NewNode(NativeAction(func(ctx context.Context, in Input, env *Env) (Output, error) {
		time.Sleep(10 * time.Millisecond)
		return EmptyOutput(), nil
	}), "consumer")
	consumer.SetPredecessors(producer)

	g, err := WithTasks(producer, consumer)
	require.NoError(t, err)

	ok, err := g.Start(context.Background(), WithChannelCapacity(1))
	require.NoError(t, err)
	assert.True(t, ok)
}

// Validate is idempotent: calling it repeatedly never mutates graph state
// or produces different results.
func TestValidateIsIdempotent(t *testing.T) {
	a := NewNode(passthrough(1), "a")
	b := NewNode(passthrough(1), "b")
	b.SetPredecessors(a)
	g, err := WithTasks(a, b)
	require.NoError(t, err)

	require.NoError(t, g.Validate())
	require.NoError(t, g.Validate())
	require.NoError(t, g.Validate())
}

// Starting a graph twice is rejected.
func TestAlreadyRunRejected(t *testing.T) {
	a := NewNode(passthrough(1), "a")
	g, err := WithTasks(a)
	require.NoError(t, err)

	ok, err := g.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = g.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}
