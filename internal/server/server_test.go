package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
	"github.com/hanpama/inkgraph/internal/graph"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/reqid"
	schema "github.com/hanpama/inkgraph/internal/schema"
)

const testSDL = `
type Query {
  hello: String
  whoami: String
  broken: String
}
`

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL("test.graphql", testSDL)
	require.NoError(t, err)
	bind := func(field string, fn func(ctx context.Context) (any, error)) {
		require.NoError(t, sch.Bind("Query", field, func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return fn(ctx)
		}, true))
	}
	bind("hello", func(context.Context) (any, error) { return "world", nil })
	bind("whoami", func(ctx context.Context) (any, error) {
		if id := auth.IdentityFrom(ctx); id != nil {
			return id.Email, nil
		}
		return nil, nil
	})
	bind("broken", func(context.Context) (any, error) { return nil, errors.New("connection refused") })

	h, err := New(graph.NewRuntime(sch), sch, opts...)
	require.NoError(t, err)
	return h
}

type response struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Path       []any          `json:"path"`
		Locations  []specLocation `json:"locations"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func post(t *testing.T, h http.Handler, body string, header ...string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var res response
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	}
	return w, res
}

func TestHello(t *testing.T) {
	w, res := post(t, newTestHandler(t), `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"hello": "world"}, res.Data)
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))

	w, _ = post(t, h, `{"query":"{ hello }"}`, "Origin", "http://example.com")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSSpecificOrigin(t *testing.T) {
	h := newTestHandler(t, WithCORS("http://allowed.test"))

	w, _ := post(t, h, `{"query":"{ hello }"}`, "Origin", "http://allowed.test")
	assert.Equal(t, "http://allowed.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	w, _ = post(t, h, `{"query":"{ hello }"}`, "Origin", "http://other.test")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))
	w, res := post(t, h, `{"query":"{ hello }"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "BAD_REQUEST", res.Errors[0].Extensions["code"])
}

func TestMalformedRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"query":`, "invalid JSON"},
		{"missing query", `{"variables":{}}`, "missing 'query'"},
		{"empty batch", `[]`, "empty batch"},
	}
	h := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, res := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, tt.want, res.Errors[0].Message)
			assert.Equal(t, "BAD_REQUEST", res.Errors[0].Extensions["code"])
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/graphql", nil)
	w := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(t)

	const given = "0190a2c4-8b5e-7c3d-9f00-1234567890ab"
	w, _ := post(t, h, `{"query":"{ hello }"}`, reqid.Header, given)
	assert.Equal(t, given, w.Header().Get(reqid.Header))

	w, _ = post(t, h, `{"query":"{ hello }"}`, reqid.Header, "not a uuid")
	got := w.Header().Get(reqid.Header)
	assert.NotEmpty(t, got)
	assert.NotEqual(t, "not a uuid", got)
}

func TestParseAndValidationFailures(t *testing.T) {
	h := newTestHandler(t)

	_, res := post(t, h, `{"query":"{ hello "}`)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "GRAPHQL_PARSE_FAILED", res.Errors[0].Extensions["code"])
	assert.NotEmpty(t, res.Errors[0].Locations)
	assert.Nil(t, res.Data)

	_, res = post(t, h, `{"query":"{ nope }"}`)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", res.Errors[0].Extensions["code"])
	assert.Equal(t, []specLocation{{Line: 1, Column: 3}}, res.Errors[0].Locations)
}

func TestInternalErrorsAreMasked(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newTestHandler(t, WithLogger(zap.New(core)))

	_, res := post(t, h, `{"query":"{ hello broken }"}`)
	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, "Unexpected server error", e.Message)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", e.Extensions["code"])
	assert.Equal(t, []any{"broken"}, e.Path)
	assert.Equal(t, "world", res.Data["hello"])
	assert.NotContains(t, e.Message, "connection refused")

	entries := logs.FilterMessage("internal error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "broken", fields["path"])
	assert.Contains(t, fields["error"], "connection refused")
	assert.NotEmpty(t, fields["request_id"])
}

func TestBearerIdentity(t *testing.T) {
	signer := auth.NewHMACSigner("secret", time.Hour)
	core, logs := observer.New(zapcore.DebugLevel)
	h := newTestHandler(t, WithSigner(signer), WithLogger(zap.New(core)))

	token, err := signer.Sign(auth.Identity{SubjectID: "u1", Role: model.RoleReader, Email: "ada@example.com"})
	require.NoError(t, err)

	_, res := post(t, h, `{"query":"{ whoami }"}`, "Authorization", "Bearer "+token)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "ada@example.com", res.Data["whoami"])

	_, res = post(t, h, `{"query":"{ whoami }"}`, "Authorization", "Bearer garbage")
	assert.Empty(t, res.Errors)
	assert.Nil(t, res.Data["whoami"])
	assert.Equal(t, 1, logs.FilterMessage("ignoring bearer token").Len())

	_, res = post(t, h, `{"query":"{ whoami }"}`)
	assert.Nil(t, res.Data["whoami"])
}

func TestBatchRunsEachOperationInItsOwnContext(t *testing.T) {
	var prepared atomic.Int32
	var finished []events.HTTPFinish
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })
	defer eventbus.SubscribeTo(bus, func(_ context.Context, e events.HTTPFinish) { finished = append(finished, e) })()
	h := newTestHandler(t, WithOperationContext(func(ctx context.Context) context.Context {
		prepared.Add(1)
		return ctx
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`[{"query":"{ hello }"},{"query":"{ nope }"},{"query":"query Q { hello }","operationName":"Q"}]`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res []response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res, 3)
	assert.Equal(t, "world", res[0].Data["hello"])
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", res[1].Errors[0].Extensions["code"])
	assert.Equal(t, "world", res[2].Data["hello"])
	assert.EqualValues(t, 2, prepared.Load())
	require.Len(t, finished, 1)
	assert.Equal(t, 3, finished[0].Operations)
	assert.Equal(t, http.StatusOK, finished[0].Status)
}

func TestGetWithVariablesAndGraphiQL(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/graphql?query=%7B+hello+%7D", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.Header.Set("Accept", "text/html")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "graphiql")

	off := newTestHandler(t, WithGraphiQL(false))
	w = httptest.NewRecorder()
	off.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
