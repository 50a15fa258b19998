// Package otel exports traces of HTTP requests, GraphQL operations, loader
// batches and store queries through OpenTelemetry.
package otel

import (
	"context"
	"sync"
	"time"

	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
	"github.com/hanpama/inkgraph/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures an OTLP exporter and attaches span subscribers to bus.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Attach(bus, tp.Tracer("inkgraph"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach records spans with tracer for the events published on bus.
func Attach(bus *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register(bus)
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // rid -> trace.Span
	gqlSpans  sync.Map // rid -> trace.Span
}

// parent returns ctx carrying the innermost open span of its request.
func (s *subscriber) parent(ctx context.Context) context.Context {
	rid, _ := reqid.FromContext(ctx)
	if v, ok := s.gqlSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	offs := []func(){
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("request.id", rid),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),

		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.GraphQLStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx), "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
			)
			s.gqlSpans.Store(rid, span)
		}),

		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.GraphQLFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.gqlSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			if len(e.Errors) > 0 {
				span.SetStatus(codes.Error, e.Errors[0].Error())
			}
			span.End()
		}),

		// Batches and queries are reported after they finish, so their spans
		// are back-dated to the recorded start.
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.LoaderBatch) {
			_, span := s.tracer.Start(s.parent(ctx), "dataloader.batch", trace.WithTimestamp(e.Start))
			span.SetAttributes(
				attribute.String("dataloader.name", e.Loader),
				attribute.Int("dataloader.keys", e.Keys),
			)
			end(span, e.Err, e.Start.Add(e.Duration))
		}),

		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.StoreQuery) {
			_, span := s.tracer.Start(s.parent(ctx), "store."+e.Op,
				trace.WithSpanKind(trace.SpanKindClient), trace.WithTimestamp(e.Start))
			span.SetAttributes(
				semconv.DBSystemKey.String(e.Backend),
				semconv.DBOperationKey.String(e.Op),
				attribute.String("db.collection", e.Collection),
			)
			end(span, e.Err, e.Start.Add(e.Duration))
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func end(span trace.Span, err error, at time.Time) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(at))
}
