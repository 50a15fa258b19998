// Package reqid carries a per-request identifier through contexts.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header used to propagate request ids.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent carrying id. A new random id is
// generated when id is empty or not a valid UUID.
func NewContext(parent context.Context, id string) (context.Context, string) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
