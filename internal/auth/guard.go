package auth

import (
	"slices"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/model"
)

// RequireAuthentication returns id when the caller is authenticated.
func RequireAuthentication(id *Identity) (*Identity, error) {
	if id == nil {
		return nil, apperr.NewForbiddenError(apperr.MsgAuthenticationRequired)
	}
	return id, nil
}

// RequireRole returns id when the caller is authenticated and holds one of
// roles. With no roles it only requires authentication.
func RequireRole(id *Identity, roles ...model.Role) (*Identity, error) {
	id, err := RequireAuthentication(id)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 && !slices.Contains(roles, id.Role) {
		return nil, apperr.NewForbiddenError(apperr.MsgInsufficientPermissions)
	}
	return id, nil
}
