// Package action supplies concrete Action implementations beyond the
// core package's NativeAction: running a shell command, a Lua script, or
// an HTTP request, and reading their result as a node's output payload.
package action

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dagrs-dev/dagrs"
)

// CommandAction runs the program name with args directly (not through a
// shell; wrap it as "sh", "-c", ... for shell syntax) and delivers stdout as the node's output packet (trimmed
// of trailing newline). A non-zero exit status becomes an error carrying
// stderr; the scheduler wraps it in a RunError attributed to the node.
//
// Run acquires the graph run's blocking-work semaphore before exec.Cmd
// waits on the child process, and releases it afterward, so a slow
// external command can't starve the other node goroutines sharing the
// scheduler (§4.2's "must not block the scheduler's own progress").
type CommandAction struct {
	Name string
	Args []string
}

// NewCommandAction returns a CommandAction that runs name with args.
func NewCommandAction(name string, args ...string) *CommandAction {
	return &CommandAction{Name: name, Args: args}
}

func (c *CommandAction) Run(ctx context.Context, in dagrs.Input, env *dagrs.Env) (dagrs.Output, error) {
	if sem, ok := dagrs.BlockingSemaphore(ctx); ok {
		if err := sem.Acquire(ctx, 1); err != nil {
			return dagrs.Output{}, err
		}
		defer sem.Release(1)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if in.Len() > 0 {
		if s, ok := dagrs.GetPacket[string](in.At(0)); ok {
			cmd.Stdin = strings.NewReader(s)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return dagrs.Output{}, fmt.Errorf("command %s failed: %w: %s", c.Name, err, stderr.String())
	}

	return dagrs.NewOutput(strings.TrimRight(stdout.String(), "\n")), nil
}
