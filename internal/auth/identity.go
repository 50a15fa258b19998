// Package auth derives caller identities and guards access to fields.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/hanpama/inkgraph/internal/model"
)

// Identity is the authenticated caller of one request.
type Identity struct {
	SubjectID string
	Role      model.Role
	Email     string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id. A nil id marks the caller
// as anonymous.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity, or nil for anonymous callers.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
