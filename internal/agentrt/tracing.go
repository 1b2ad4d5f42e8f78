package agentrt

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer emits spans for the bounded tool-call loop. Grounded on
// nevindra-oasis's observer/tracer.go and observer/provider.go: one
// span per SendMessage call and per tool dispatch, tagged with the same
// agent/provider/tool attributes the teacher's ObservedProvider
// records. With no SDK TracerProvider registered (the default), every
// span here is the global no-op implementation — a host opts in by
// calling otel.SetTracerProvider, which cmd/crewcode does at startup.
var tracer = otel.Tracer("github.com/jholhewres/crewcode/internal/agentrt")

func startSendSpan(ctx context.Context, a *Agent) (context.Context, trace.Span) {
	return tracer.Start(ctx, "agent.send_message", trace.WithAttributes(
		attribute.String("agent.id", a.Config.ID),
		attribute.String("agent.provider", a.Config.Provider),
		attribute.String("agent.model", a.Config.Model),
	))
}

func startToolSpan(ctx context.Context, agentID, tool string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "agent.tool_call", trace.WithAttributes(
		attribute.String("agent.id", agentID),
		attribute.String("tool.name", tool),
	))
}

func endSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
