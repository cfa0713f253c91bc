package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig selects where spans go. An empty Endpoint disables export.
type TracingConfig struct {
	Endpoint       string
	Insecure       bool
	SampleRatio    float64
	ServiceName    string
	ServiceVersion string
}

// InitTracing installs an OTLP/gRPC tracer provider as the global provider.
// With tracing disabled the global no-op provider stays in place and the
// returned shutdown func does nothing.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		slog.Info("tracing disabled: no OTLP endpoint configured")
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(provider)
	slog.Info("tracing initialized",
		slog.String("endpoint", cfg.Endpoint),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return provider.Shutdown, nil
}

// StartSpan starts a span on the named tracer, tagging it with the
// correlation id carried by ctx.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if corr := GetCorrelation(ctx); corr != "" {
		attrs = append(attrs, attribute.String("correlation_id", corr))
	}
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError attaches err to span and marks it failed. Nil errors are ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks span as completed without errors.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// VoiceAttrs returns span attributes describing a voice transition.
func VoiceAttrs(guildID, userID, oldChannelID, newChannelID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("discord.guild_id", guildID),
		attribute.String("discord.user_id", userID),
		attribute.String("discord.channel.old", oldChannelID),
		attribute.String("discord.channel.new", newChannelID),
	}
}

// ChannelAttrs returns span attributes naming a managed channel.
func ChannelAttrs(channelID, name string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("discord.channel.id", channelID),
		attribute.String("discord.channel.name", name),
	}
}
