package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LogEmitter writes the engine's required log lines to a writer:
//
//	[Start] -> name1 -> name2 -> ... -> [End]
//	Executing Task[name: X]
//	Task executed successfully. [name: X]
//	Task failed. [name: X] <error>
//
// In JSON mode it instead writes one JSON object per line (JSONL),
// carrying the same information for machine consumption.
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	level    Level
	jsonMode bool
}

// NewLogEmitter writes text-formatted lines at level to writer (os.Stdout
// if nil).
func NewLogEmitter(writer io.Writer, level Level) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, level: level}
}

// NewJSONLogEmitter writes one JSON object per event to writer.
func NewJSONLogEmitter(writer io.Writer, level Level) *LogEmitter {
	e := NewLogEmitter(writer, level)
	e.jsonMode = true
	return e
}

// Emit writes a single event, subject to level filtering.
func (l *LogEmitter) Emit(event Event) {
	if levelOf(event.Msg) < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		l.writeJSON(event)
		return
	}
	l.writeText(event)
}

func (l *LogEmitter) writeText(event Event) {
	switch event.Msg {
	case MsgHeader:
		names, _ := event.Meta["names"].([]string)
		_, _ = fmt.Fprintln(l.writer, HeaderLine(names))
	case MsgNodeStart:
		_, _ = fmt.Fprintf(l.writer, "Executing Task[name: %s]\n", event.NodeName)
	case MsgNodeSuccess:
		_, _ = fmt.Fprintf(l.writer, "Task executed successfully. [name: %s]\n", event.NodeName)
	case MsgNodeFailed:
		errMsg, _ := event.Meta["error"].(string)
		_, _ = fmt.Fprintf(l.writer, "Task failed. [name: %s] %s\n", event.NodeName, errMsg)
	case MsgNodeSkipped:
		_, _ = fmt.Fprintf(l.writer, "Task cancelled. [name: %s]\n", event.NodeName)
	default:
		_, _ = fmt.Fprintf(l.writer, "[%s] name=%s\n", event.Msg, event.NodeName)
	}
}

func (l *LogEmitter) writeJSON(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":%q}\n", err.Error())
		return
	}
	_, _ = fmt.Fprintln(l.writer, string(data))
}

// EmitBatch writes every event in order.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		l.Emit(e)
	}
	return nil
}

// Flush is a no-op: LogEmitter writes synchronously with no internal
// buffering beyond what the underlying io.Writer itself does.
func (l *LogEmitter) Flush(_ context.Context) error { return nil }

// HeaderLine formats the required "[Start] -> ... -> [End]" line without
// writing it, for callers that want it outside the Emitter abstraction.
func HeaderLine(names []string) string {
	if len(names) == 0 {
		return "[Start] -> [End]"
	}
	return "[Start] -> " + strings.Join(names, " -> ") + " -> [End]"
}
