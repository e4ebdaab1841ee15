package action

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dagrs-dev/dagrs"
)

// InterpreterAction runs a Lua script body as a node's action. Each
// predecessor packet is bound into the script's global "input" table
// (1-indexed, Lua convention) when it holds a string, number, or bool;
// other payload types are left out of the table since gopher-lua has no
// generic way to represent them. The script's return value (pushed via
// `return`) becomes the node's output payload.
type InterpreterAction struct {
	Script string
}

// NewInterpreterAction returns an InterpreterAction running script.
func NewInterpreterAction(script string) *InterpreterAction {
	return &InterpreterAction{Script: script}
}

func (a *InterpreterAction) Run(ctx context.Context, in dagrs.Input, env *dagrs.Env) (dagrs.Output, error) {
	if sem, ok := dagrs.BlockingSemaphore(ctx); ok {
		if err := sem.Acquire(ctx, 1); err != nil {
			return dagrs.Output{}, err
		}
		defer sem.Release(1)
	}

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	inputTable := L.NewTable()
	for i, p := range in.All() {
		if lv, ok := toLuaValue(L, p); ok {
			inputTable.RawSetInt(i+1, lv)
		}
	}
	L.SetGlobal("input", inputTable)

	if err := L.DoString(a.Script); err != nil {
		return dagrs.Output{}, fmt.Errorf("lua script failed: %w", err)
	}

	if L.GetTop() == 0 {
		return dagrs.EmptyOutput(), nil
	}
	ret := L.Get(-1)
	L.Pop(1)
	if ret == lua.LNil {
		return dagrs.EmptyOutput(), nil
	}
	return dagrs.NewOutput(fromLuaValue(ret)), nil
}

func toLuaValue(L *lua.LState, p dagrs.Packet) (lua.LValue, bool) {
	if s, ok := dagrs.GetPacket[string](p); ok {
		return lua.LString(s), true
	}
	if f, ok := dagrs.GetPacket[float64](p); ok {
		return lua.LNumber(f), true
	}
	if i, ok := dagrs.GetPacket[int](p); ok {
		return lua.LNumber(i), true
	}
	if b, ok := dagrs.GetPacket[bool](p); ok {
		return lua.LBool(b), true
	}
	return nil, false
}

func fromLuaValue(v lua.LValue) any {
	switch v.Type() {
	case lua.LTString:
		return v.String()
	case lua.LTNumber:
		return float64(v.(lua.LNumber))
	case lua.LTBool:
		return bool(v.(lua.LBool))
	default:
		return v.String()
	}
}
