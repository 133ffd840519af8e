package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stridelabs/stride/internal/tool"
)

const tracerName = "github.com/stridelabs/stride/internal/agent"

func startLoopSpan(ctx context.Context, sessionID, goal string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("goal", goal),
		))
}

func endLoopSpan(span trace.Span, res *Result, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.String("state", string(res.State)),
		attribute.Int("actions", res.Actions),
	)
	if res.State == StateFailed {
		span.SetStatus(codes.Error, res.Message)
	}
}

func startToolSpan(ctx context.Context, toolName, description string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tool.invoke",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
			attribute.String("tool.description", description),
		))
}

func endToolSpan(span trace.Span, res tool.Result) {
	defer span.End()
	span.SetAttributes(attribute.Bool("tool.success", res.Success))
	if res.Error != nil {
		span.SetStatus(codes.Error, res.Error.Message)
		span.SetAttributes(attribute.String("tool.error_code", res.Error.Code))
	}
}
