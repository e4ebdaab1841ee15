// Package parser builds a dagrs.Graph from the "dagrs:" YAML document
// format: a root map of task ids to task definitions, each carrying a
// name, an optional list of predecessor ids, and either an inline shell
// command, a typed script action, or a lookup key into the caller's
// registry of pre-built actions.
package parser

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dagrs-dev/dagrs"
	"github.com/dagrs-dev/dagrs/action"
)

// runSpec is the "run:" block of a task: a named action type plus the
// script body for interpreted types.
type runSpec struct {
	Type   string `yaml:"type"`
	Script string `yaml:"script"`
}

type taskSpec struct {
	Name  string   `yaml:"name"`
	After []string `yaml:"after"`
	Cmd   string   `yaml:"cmd"`
	Run   *runSpec `yaml:"run"`
}

// Parse reads the YAML document at path and builds a Graph and Env from
// it. specificActions resolves task ids (or run.type names) to
// pre-built actions for tasks that name neither cmd nor run, or whose
// run.type is not one of the built-in "shell"/"lua" types.
func Parse(ctx context.Context, path string, specificActions map[string]dagrs.Action) (*dagrs.Graph, *dagrs.Env, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, nil, &ParseError{Line: 0, Reason: err.Error()}
	}

	tasksNode, err := findTasksNode(&root)
	if err != nil {
		return nil, nil, err
	}

	ids, specs, err := decodeTasks(tasksNode)
	if err != nil {
		return nil, nil, err
	}

	nodes := make(map[string]*dagrs.Node, len(ids))
	for _, id := range ids {
		spec := specs[id]
		act, err := resolveAction(id, spec, specificActions)
		if err != nil {
			return nil, nil, err
		}
		if spec.Name == "" {
			return nil, nil, &ParseError{Reason: fmt.Sprintf("task %q missing required field name", id)}
		}
		nodes[id] = dagrs.NewNode(act, spec.Name)
	}

	for _, id := range ids {
		spec := specs[id]
		if len(spec.After) == 0 {
			continue
		}
		preds := make([]*dagrs.Node, 0, len(spec.After))
		for _, predID := range spec.After {
			pred, ok := nodes[predID]
			if !ok {
				return nil, nil, &ParseError{Reason: fmt.Sprintf("task %q: after references unknown task %q", id, predID)}
			}
			preds = append(preds, pred)
		}
		nodes[id].SetPredecessors(preds...)
	}

	ordered := make([]*dagrs.Node, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, nodes[id])
	}

	g, err := dagrs.WithTasks(ordered...)
	if err != nil {
		return nil, nil, err
	}
	env := dagrs.NewEnv()
	g.SetEnv(env)
	return g, env, nil
}

func resolveAction(id string, spec taskSpec, registry map[string]dagrs.Action) (dagrs.Action, error) {
	switch {
	case spec.Cmd != "":
		return action.NewCommandAction("sh", "-c", spec.Cmd), nil
	case spec.Run != nil && spec.Run.Type == "shell":
		return action.NewCommandAction("sh", "-c", spec.Run.Script), nil
	case spec.Run != nil && spec.Run.Type == "lua":
		return action.NewInterpreterAction(spec.Run.Script), nil
	case spec.Run != nil:
		act, ok := registry[spec.Run.Type]
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("task %q: unknown run type %q", id, spec.Run.Type)}
		}
		return act, nil
	default:
		act, ok := registry[id]
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("task %q: no cmd, run, or registered action", id)}
		}
		return act, nil
	}
}

// findTasksNode walks the document to the mapping value of the top-level
// "dagrs" key, reporting a ParseError with its source line on any
// structural mismatch.
func findTasksNode(root *yaml.Node) (*yaml.Node, error) {
	if len(root.Content) == 0 {
		return nil, &ParseError{Reason: "empty document"}
	}
	docRoot := root.Content[0]
	if docRoot.Kind != yaml.MappingNode {
		return nil, &ParseError{Line: docRoot.Line, Reason: "document root must be a mapping"}
	}
	for i := 0; i+1 < len(docRoot.Content); i += 2 {
		key := docRoot.Content[i]
		if key.Value == "dagrs" {
			val := docRoot.Content[i+1]
			if val.Kind != yaml.MappingNode {
				return nil, &ParseError{Line: val.Line, Reason: "dagrs: must be a mapping of task id to task"}
			}
			return val, nil
		}
	}
	return nil, &ParseError{Line: docRoot.Line, Reason: "missing top-level dagrs: key"}
}

// decodeTasks returns task ids in document order alongside their decoded
// specs, so node creation and downstream ordering in the generated
// header log line are stable across runs of the same file.
func decodeTasks(tasksNode *yaml.Node) ([]string, map[string]taskSpec, error) {
	ids := make([]string, 0, len(tasksNode.Content)/2)
	specs := make(map[string]taskSpec, len(tasksNode.Content)/2)
	for i := 0; i+1 < len(tasksNode.Content); i += 2 {
		key := tasksNode.Content[i]
		val := tasksNode.Content[i+1]
		var spec taskSpec
		if err := val.Decode(&spec); err != nil {
			return nil, nil, &ParseError{Line: val.Line, Reason: err.Error()}
		}
		ids = append(ids, key.Value)
		specs[key.Value] = spec
	}
	return ids, specs, nil
}
