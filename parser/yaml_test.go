package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagrs-dev/dagrs"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseBuildsLinearGraph(t *testing.T) {
	path := writeYAML(t, `
dagrs:
  fetch:
    name: Fetch
    cmd: "echo hello"
  use:
    name: Use
    after: [fetch]
    cmd: "cat"
`)

	g, env, err := Parse(context.Background(), path, nil)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, 2, g.NodeCount())
	require.NoError(t, g.Validate())
}

func TestParseResolvesSpecificAction(t *testing.T) {
	path := writeYAML(t, `
dagrs:
  custom:
    name: Custom
`)

	registry := map[string]dagrs.Action{
		"custom": dagrs.NativeAction(func(ctx context.Context, in dagrs.Input, env *dagrs.Env) (dagrs.Output, error) {
			return dagrs.EmptyOutput(), nil
		}),
	}

	g, _, err := Parse(context.Background(), path, registry)
	require.NoError(t, err)
	assert.Equal(t, 1, g.NodeCount())
}

func TestParseUnknownAfterReferenceIsParseError(t *testing.T) {
	path := writeYAML(t, `
dagrs:
  a:
    name: A
    after: [missing]
    cmd: "true"
`)

	_, _, err := Parse(context.Background(), path, nil)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseMissingDagrsKeyIsParseError(t *testing.T) {
	path := writeYAML(t, "other: {}\n")

	_, _, err := Parse(context.Background(), path, nil)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}
