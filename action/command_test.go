package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagrs-dev/dagrs"
)

func TestCommandActionCapturesStdout(t *testing.T) {
	a := NewCommandAction("echo", "-n", "hello")
	out, err := a.Run(context.Background(), dagrs.Input{}, dagrs.NewEnv())
	require.NoError(t, err)
	s, ok := dagrs.GetPacket[string](out.Packet)
	require.True(t, ok)
	assert.Equal(t, "hello", s)
}

func TestCommandActionNonZeroExitFails(t *testing.T) {
	a := NewCommandAction("sh", "-c", "exit 3")
	_, err := a.Run(context.Background(), dagrs.Input{}, dagrs.NewEnv())
	assert.Error(t, err)
}
