package dagrs

import "context"

// ConditionFunc is the action variant whose result is a boolean rather
// than a packet (§4.2 item 3, §4.5). The scheduler recognizes a false
// result by the errConditionFalse sentinel ConditionAction.Run returns:
// true permits successors to proceed with an empty packet, false closes
// the condition's outbound channels without sending, pruning the
// transitive subtree as a Cancellation rather than a failure.
type ConditionFunc func(ctx context.Context, in Input, env *Env) (bool, error)

// Conditional is implemented by actions that decide control flow instead
// of producing a packet. ConditionAction is the concrete implementation
// the core package ships; parser- or user-supplied actions may also
// implement this interface directly.
type Conditional interface {
	Action
	IsCondition() bool
}

// ConditionAction wraps a ConditionFunc so it satisfies both Action (for
// uniform scheduler dispatch) and Conditional (so the scheduler knows to
// interpret its Output specially). Run returns an empty Output when the
// condition is true and the errConditionFalse sentinel when it is false;
// the scheduler tells the two apart by that sentinel.
type ConditionAction struct {
	fn ConditionFunc
}

// NewCondition returns an Action whose node is a condition node: its
// result prunes or permits successors instead of carrying a payload.
func NewCondition(fn ConditionFunc) *ConditionAction {
	return &ConditionAction{fn: fn}
}

// IsCondition marks this action as a Conditional for the scheduler.
func (c *ConditionAction) IsCondition() bool { return true }

// Run satisfies the Action interface. Callers that need the boolean result
// should use RunCondition directly; Run exists so ConditionAction can be
// stored wherever an Action is expected.
func (c *ConditionAction) Run(ctx context.Context, in Input, env *Env) (Output, error) {
	ok, err := c.fn(ctx, in, env)
	if err != nil {
		return Output{}, err
	}
	if ok {
		return EmptyOutput(), nil
	}
	return Output{}, errConditionFalse
}

// RunCondition evaluates the wrapped predicate directly, without the
// Action-interface boolean-to-error translation Run uses internally.
func (c *ConditionAction) RunCondition(ctx context.Context, in Input, env *Env) (bool, error) {
	return c.fn(ctx, in, env)
}

// errConditionFalse is a sentinel the scheduler recognizes to distinguish
// "condition evaluated to false" (a Cancellation, not a Failure) from a
// genuine action error. It never escapes to the caller.
var errConditionFalse = &conditionFalseError{}

type conditionFalseError struct{}

func (*conditionFalseError) Error() string { return "dagrs: condition evaluated to false" }
