// Package emit provides pluggable observability for dagrs graph execution:
// structured logging matching the engine's required log format, and an
// optional OpenTelemetry span emitter for distributed tracing.
package emit

// Event is a single observability event emitted during graph execution.
type Event struct {
	// GraphID identifies the graph run that produced this event.
	GraphID string

	// NodeID/NodeName identify the node this event concerns. Empty for
	// graph-level events (the header line).
	NodeID   uint64
	NodeName string

	// Msg is the event kind: one of the Msg* constants below.
	Msg string

	// Meta carries event-specific structured data (e.g. the error for a
	// node_failed event, or the ordered name list for the header event).
	Meta map[string]any
}

// Event kinds. These map directly onto the log lines required by the
// engine's log format: a header line and per-task start/success/failure
// lines.
const (
	MsgHeader      = "header"
	MsgNodeStart   = "node_start"
	MsgNodeSuccess = "node_success"
	MsgNodeFailed  = "node_failed"
	MsgNodeSkipped = "node_cancelled"
)
