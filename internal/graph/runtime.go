package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/hanpama/inkgraph/internal/dataloader"
	"github.com/hanpama/inkgraph/internal/executor"
	"github.com/hanpama/inkgraph/internal/model"
	schema "github.com/hanpama/inkgraph/internal/schema"
)

// Deferred is a value that becomes available once the loaders of the
// operation have been dispatched. Async resolvers return one instead of
// blocking on a load.
type Deferred func() (any, error)

func deferThunk[V any](th dataloader.Thunk[V]) Deferred {
	return func() (any, error) { return th() }
}

// Runtime resolves fields with the resolvers bound on a schema.
type Runtime struct {
	schema *schema.Schema
}

var _ executor.Runtime = (*Runtime)(nil)

func NewRuntime(s *schema.Schema) *Runtime { return &Runtime{schema: s} }

func (r *Runtime) resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	f := r.schema.Field(objectType, field)
	if f == nil || f.Resolve == nil {
		return nil, fmt.Errorf("graph: no resolver for %s.%s", objectType, field)
	}
	return f.Resolve(ctx, source, args)
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	v, err := r.resolve(ctx, objectType, field, source, args)
	if err != nil {
		return nil, err
	}
	if d, ok := v.(Deferred); ok {
		return d()
	}
	return v, nil
}

// BatchResolveAsync calls every resolver of the depth, flushes the loaders
// once so their keys share one fetch each, then forces the deferred values.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	deferred := make([]Deferred, len(tasks))
	for i, t := range tasks {
		v, err := r.resolve(ctx, t.ObjectType, t.Field, t.Source, t.Args)
		if err != nil {
			results[i].Error = err
			continue
		}
		if d, ok := v.(Deferred); ok {
			deferred[i] = d
			continue
		}
		results[i].Value = v
	}

	if l, err := LoadersFrom(ctx); err == nil {
		l.Dispatch(ctx)
	}

	for i, d := range deferred {
		if d != nil {
			results[i].Value, results[i].Error = d()
		}
	}
	return results
}

func (r *Runtime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	switch value.(type) {
	case *model.User:
		return "User", nil
	case *model.Post:
		return "Post", nil
	case *model.Comment:
		return "Comment", nil
	default:
		return "", fmt.Errorf("graph: cannot resolve %s from %T", abstractType, value)
	}
}

// TimeFormat is the wire format of timestamps.
const TimeFormat = time.RFC3339Nano

func (r *Runtime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	switch v := value.(type) {
	case string, bool, int, float64:
		return v, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case model.Role:
		return string(v), nil
	case model.Category:
		return string(v), nil
	case time.Time:
		return v.UTC().Format(TimeFormat), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.UTC().Format(TimeFormat), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	default:
		return nil, fmt.Errorf("graph: %s cannot represent %T", typeName, value)
	}
}
