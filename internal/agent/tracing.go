package agent

import (
	"context"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codefionn/planrunner/internal/plan"
)

const tracerName = "github.com/codefionn/planrunner/internal/agent"

// maxAttributeLen bounds free text copied into span attributes.
const maxAttributeLen = 512

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer().Start(ctx, name)
}

// startRunSpan starts the span covering a whole task.
func startRunSpan(ctx context.Context, goal string) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "agent.run")
	span.SetAttributes(attribute.String("task.goal", truncate(goal)))
	return ctx, span
}

// startStepSpan starts the span of step n.
func startStepSpan(ctx context.Context, n int, current plan.Step) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "agent.step")
	span.SetAttributes(
		attribute.Int("step.index", n),
		attribute.String("step.description", truncate(current.Description)),
		attribute.Int("step.outputs", len(current.OutputVariables)),
	)
	return ctx, span
}

// endSpan records the outcome and ends span.
func endSpan(span trace.Span, outcome string, err error) {
	if outcome != "" {
		span.SetAttributes(attribute.String("outcome", truncate(outcome)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func truncate(s string) string {
	if len(s) <= maxAttributeLen {
		return s
	}
	cut := maxAttributeLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
