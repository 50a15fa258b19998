package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/inkgraph/internal/executor"
	"github.com/hanpama/inkgraph/internal/model"
	schema "github.com/hanpama/inkgraph/internal/schema"
)

func TestSerializeLeafValue(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 89, time.FixedZone("X", 3600))
	var noTime *time.Time
	var noCursor *string
	cursor := "id-005"

	tests := []struct {
		name  string
		typ   string
		value any
		want  any
	}{
		{"string", "String", "x", "x"},
		{"string pointer", "String", &cursor, "id-005"},
		{"nil string pointer", "String", noCursor, nil},
		{"role", "Role", model.RoleAdmin, "ADMIN"},
		{"category", "PostCategory", model.CategoryEducation, "EDUCATION"},
		{"time in utc", "String", at, "2025-03-04T04:06:07.000000089Z"},
		{"time pointer", "String", &at, "2025-03-04T04:06:07.000000089Z"},
		{"nil time pointer", "String", noTime, nil},
		{"int", "Int", 3, 3},
		{"int64", "Int", int64(4), 4},
		{"bool", "Boolean", true, true},
	}
	r := NewRuntime(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.SerializeLeafValue(context.Background(), tt.typ, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := r.SerializeLeafValue(context.Background(), "String", struct{}{})
	require.Error(t, err)
}

func TestResolveType(t *testing.T) {
	r := NewRuntime(nil)
	name, err := r.ResolveType(context.Background(), "Node", &model.Comment{})
	require.NoError(t, err)
	assert.Equal(t, "Comment", name)

	_, err = r.ResolveType(context.Background(), "Node", "nope")
	require.Error(t, err)
}

func TestBatchResolveAsyncKeepsAlignment(t *testing.T) {
	s := schema.NewSchema("")
	obj := schema.NewType("Query", schema.TypeKindObject, "")
	for _, name := range []string{"plain", "deferred", "failing"} {
		obj.AddField(schema.NewField(name, "", schema.NamedType("String")))
	}
	s.AddType(obj).SetQueryType("Query")
	boom := errors.New("boom")

	require.NoError(t, s.Bind("Query", "plain", func(context.Context, any, map[string]any) (any, error) { return "p", nil }, true))
	require.NoError(t, s.Bind("Query", "deferred", func(context.Context, any, map[string]any) (any, error) {
		return Deferred(func() (any, error) { return "d", nil }), nil
	}, true))
	require.NoError(t, s.Bind("Query", "failing", func(context.Context, any, map[string]any) (any, error) { return nil, boom }, true))

	st := newHarness(t).raw
	loaders := NewLoaders(st)
	loaders.UserByID.Load(context.Background(), "nobody")
	ctx := WithLoaders(context.Background(), loaders)

	r := NewRuntime(s)
	tasks := []executor.AsyncResolveTask{
		{ObjectType: "Query", Field: "deferred"},
		{ObjectType: "Query", Field: "failing"},
		{ObjectType: "Query", Field: "plain"},
	}
	require.Equal(t, 1, loaders.UserByID.Pending())
	results := r.BatchResolveAsync(ctx, tasks)
	assert.Zero(t, loaders.UserByID.Pending())

	require.Len(t, results, 3)
	assert.Equal(t, "d", results[0].Value)
	assert.ErrorIs(t, results[1].Error, boom)
	assert.Equal(t, "p", results[2].Value)
}

func TestResolveSyncForcesDeferred(t *testing.T) {
	s := schema.NewSchema("")
	s.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("v", "", schema.NamedType("String"))))
	require.NoError(t, s.Bind("Query", "v", func(context.Context, any, map[string]any) (any, error) {
		return Deferred(func() (any, error) { return "forced", nil }), nil
	}, false))

	got, err := NewRuntime(s).ResolveSync(context.Background(), "Query", "v", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "forced", got)

	_, err = NewRuntime(s).ResolveSync(context.Background(), "Query", "missing", nil, nil)
	require.Error(t, err)
}
