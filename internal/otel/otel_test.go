package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
	"github.com/hanpama/inkgraph/internal/reqid"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), eventbus.New(), "", "inkgraph")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSpansNestUnderRequest(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	bus := eventbus.New()
	unsubscribe := Attach(bus, tp.Tracer("test"))
	defer unsubscribe()

	ctx, _ := reqid.NewContext(context.Background(), "")
	req := httptest.NewRequest("POST", "/graphql", nil)
	start := time.Now()

	eventbus.PublishTo(ctx, bus, events.HTTPStart{Request: req})
	eventbus.PublishTo(ctx, bus, events.GraphQLStart{OperationName: "Feed", OperationType: "query"})
	eventbus.PublishTo(ctx, bus, events.LoaderBatch{Loader: "userById", Keys: 3, Start: start, Duration: time.Millisecond})
	eventbus.PublishTo(ctx, bus, events.StoreQuery{Backend: "sqlite", Collection: "users", Op: "find", Start: start, Duration: time.Millisecond, Err: errors.New("locked")})
	eventbus.PublishTo(ctx, bus, events.GraphQLFinish{OperationName: "Feed", OperationType: "query"})
	eventbus.PublishTo(ctx, bus, events.HTTPFinish{Request: req, Status: 200})

	ended := sr.Ended()
	require.Len(t, ended, 4)
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		byName[s.Name()] = s
	}
	httpSpan, gql := byName["http.request"], byName["graphql.operation"]
	require.NotNil(t, httpSpan)
	require.NotNil(t, gql)
	assert.Equal(t, httpSpan.SpanContext().SpanID(), gql.Parent().SpanID())

	batch := byName["dataloader.batch"]
	require.NotNil(t, batch)
	assert.Equal(t, gql.SpanContext().SpanID(), batch.Parent().SpanID())
	assert.True(t, batch.StartTime().Equal(start))
	assert.True(t, batch.EndTime().Equal(start.Add(time.Millisecond)))

	query := byName["store.find"]
	require.NotNil(t, query)
	assert.Equal(t, codes.Error, query.Status().Code)
	assert.Equal(t, gql.SpanContext().SpanID(), query.Parent().SpanID())
}

func TestUnsubscribeStopsTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	bus := eventbus.New()
	Attach(bus, tp.Tracer("test"))()

	eventbus.PublishTo(context.Background(), bus, events.LoaderBatch{Loader: "postById", Start: time.Now()})
	assert.Empty(t, sr.Ended())
}
