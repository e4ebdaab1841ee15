package dagrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvGetEnvMissingAndTypeMismatch(t *testing.T) {
	env := NewEnv()
	env.Set("count", 5)

	v, ok := GetEnv[int](env, "count")
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	_, ok = GetEnv[string](env, "count")
	assert.False(t, ok)

	_, ok = GetEnv[int](env, "missing")
	assert.False(t, ok)

	_, ok = GetEnv[int](nil, "count")
	assert.False(t, ok)
}

func TestEnvSetAfterFreezePanics(t *testing.T) {
	env := NewEnv()
	env.freeze()
	assert.Panics(t, func() { env.Set("x", 1) })
}
