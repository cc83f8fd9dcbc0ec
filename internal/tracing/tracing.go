// Package tracing wires the session runtime's agent/LLM/tool spans to a
// real OpenTelemetry SDK pipeline. The teacher's own internal/tracing
// package (referenced from internal/agent/loop.go as tracing.Collector /
// tracing.WithTraceID / tracing.WithCollector) was not present in the
// retrieved corpus subset; this rebuilds the same call-site shape
// (StartAgentSpan/StartLLMSpan/StartToolSpan, one span per turn/LLM-call/
// tool-call) directly against go.opentelemetry.io/otel instead of a
// hand-rolled collector.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/prizm-dev/prizm/internal/chat"

// Config selects the OTLP exporter transport and endpoint. Endpoint == ""
// disables tracing entirely (Init returns a no-op shutdown).
type Config struct {
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" (default) or "http"
	Insecure    bool
}

// Init installs a global TracerProvider exporting spans over OTLP. The
// returned shutdown func must be called at process exit to flush pending
// spans, matching the teacher's pattern of deferred cleanup around
// long-lived background collectors.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.Protocol == "http" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartAgentSpan opens the span covering one full agent turn.
func StartAgentSpan(ctx context.Context, scope, sessionID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("prizm.scope", scope),
		attribute.String("prizm.session_id", sessionID),
	))
}

// StartLLMSpan opens the span covering one provider call within a turn.
func StartLLMSpan(ctx context.Context, model string, iteration int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "agent.llm_call", trace.WithAttributes(
		attribute.String("prizm.model", model),
		attribute.Int("prizm.iteration", iteration),
	))
}

// StartToolSpan opens the span covering one tool invocation.
func StartToolSpan(ctx context.Context, toolName, toolCallID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "agent.tool_call", trace.WithAttributes(
		attribute.String("prizm.tool_name", toolName),
		attribute.String("prizm.tool_call_id", toolCallID),
	))
}

// EndSpan records err (if any) on span and closes it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
