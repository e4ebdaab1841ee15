package emit

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each event into a point-in-time OpenTelemetry span,
// so a graph run's task executions show up in any OTel-compatible tracing
// backend without the core scheduler importing a tracer directly.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter wraps tracer (e.g. otel.Tracer("dagrs")) as an Emitter.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	o.annotate(span, event)
	span.End()
}

func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)
		o.annotate(span, event)
		span.End()
	}
	return nil
}

func (o *OTelEmitter) annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("dagrs.graph_id", event.GraphID),
		attribute.String("dagrs.node_name", event.NodeName),
		attribute.String("dagrs.node_id", strconv.FormatUint(event.NodeID, 10)),
	)
	for k, v := range event.Meta {
		if s, ok := v.(string); ok {
			span.SetAttributes(attribute.String("dagrs.meta."+k, s))
		}
	}
	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

// Flush is a no-op here; callers that need to force-export buffered spans
// should call ForceFlush on their own TracerProvider, since the Emitter
// interface only has access to the Tracer, not the provider that owns the
// batching span processor.
func (o *OTelEmitter) Flush(context.Context) error { return nil }
