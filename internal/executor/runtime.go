package executor

import (
	"context"
)

// Runtime is the host integration surface for field resolution, batching,
// abstract type resolution and leaf-value serialization.
//
// Contract
//   - ResolveSync is only called for fields with Async == false.
//   - BatchResolveAsync is called once per depth with every async task
//     collected at that depth, and only when there is at least one.
//   - Errors returned from any method are converted into located errors by
//     the executor's ErrorPresenter.
//   - Implementations must be safe for concurrent use by different
//     operations and must not mutate source or args values.
type Runtime interface {
	// ResolveSync resolves a synchronous field value immediately.
	// Return (nil, nil) to produce a null for nullable fields.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one execution depth of async field tasks.
	//
	// Requirements:
	//   - Return len(results) == len(tasks).
	//   - results[i] corresponds to tasks[i].
	//   - Return independent errors per element without failing the whole batch.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType returns the concrete object type name of a value of an
	// interface or union type.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue converts a scalar or enum value into a JSON-safe Go
	// value. Enums serialize to their symbolic name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error contains a failure specific to this element; other elements in the
	// same batch are unaffected.
	Error error
}
