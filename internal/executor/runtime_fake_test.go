package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	language "github.com/hanpama/inkgraph/internal/language"
	schema "github.com/hanpama/inkgraph/internal/schema"
)

// call records one resolver invocation. Batch is 0 for sync calls and the
// 1-based flush number for async ones.
type call struct {
	Field string
	Args  map[string]any
	Batch int
}

// fakeRuntime resolves fields through the resolvers bound on the schema and
// records every invocation.
type fakeRuntime struct {
	schema *schema.Schema

	mu      sync.Mutex
	calls   []call
	batches int
}

func newFakeRuntime(s *schema.Schema) *fakeRuntime { return &fakeRuntime{schema: s} }

func (r *fakeRuntime) resolve(ctx context.Context, objectType, field string, source any, args map[string]any, batch int) (any, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{Field: objectType + "." + field, Args: args, Batch: batch})
	r.mu.Unlock()

	f := r.schema.Field(objectType, field)
	if f == nil || f.Resolve == nil {
		return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
	}
	return f.Resolve(ctx, source, args)
}

func (r *fakeRuntime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	return r.resolve(ctx, objectType, field, source, args, 0)
}

func (r *fakeRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	r.mu.Lock()
	r.batches++
	batch := r.batches
	r.mu.Unlock()

	out := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		v, err := r.resolve(ctx, t.ObjectType, t.Field, t.Source, t.Args, batch)
		out[i] = AsyncResolveResult{Value: v, Error: err}
	}
	return out
}

func (r *fakeRuntime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s", abstractType)
}

func (r *fakeRuntime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	if typeName == "Int" {
		if _, ok := value.(int); !ok {
			return nil, fmt.Errorf("Int cannot represent %T", value)
		}
	}
	return value, nil
}

// callsIn returns the recorded field names of the given flush, in order.
func (r *fakeRuntime) callsIn(batch int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if c.Batch == batch {
			out = append(out, c.Field)
		}
	}
	return out
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func mustBuildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL("test.graphql", sdl)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func value(v any) schema.ResolveFunc {
	return func(context.Context, any, map[string]any) (any, error) { return v, nil }
}

func failing(err error) schema.ResolveFunc {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// field returns the property name of a map source.
func field(name string) schema.ResolveFunc {
	return func(_ context.Context, src any, _ map[string]any) (any, error) {
		return src.(map[string]any)[name], nil
	}
}
