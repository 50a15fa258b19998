// Package directive turns the authorization directives of the schema into
// guarded resolvers. The wrapping happens once, when the schema is
// assembled; requests only run the guard.
package directive

import (
	"context"
	"fmt"
	"strings"

	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/model"
	schema "github.com/hanpama/inkgraph/internal/schema"
)

// Directive names recognized on field definitions.
const (
	IsAuth  = "isAuth"
	HasRole = "hasRole"
)

// Kind enumerates the Marker variants.
type Kind uint8

const (
	None Kind = iota
	Auth
	Role
)

// Marker is the access requirement of one field. The zero value requires
// nothing.
type Marker struct {
	kind  Kind
	roles []model.Role
}

// RequiresAuth marks a field as available to any authenticated caller.
func RequiresAuth() Marker { return Marker{kind: Auth} }

// RequiresRole marks a field as available to callers holding one of roles.
func RequiresRole(roles ...model.Role) Marker {
	return Marker{kind: Role, roles: append([]model.Role(nil), roles...)}
}

func (m Marker) Kind() Kind          { return m.kind }
func (m Marker) Roles() []model.Role { return m.roles }
func (m Marker) IsZero() bool        { return m.kind == None }

func (m Marker) String() string {
	switch m.kind {
	case Auth:
		return "@" + IsAuth
	case Role:
		names := make([]string, len(m.roles))
		for i, r := range m.roles {
			names[i] = string(r)
		}
		return fmt.Sprintf("@%s(roles: [%s])", HasRole, strings.Join(names, ", "))
	default:
		return ""
	}
}

// Check runs the guard for m against the caller identity in ctx.
func (m Marker) Check(ctx context.Context) error {
	var err error
	switch m.kind {
	case Auth:
		_, err = auth.RequireAuthentication(auth.IdentityFrom(ctx))
	case Role:
		_, err = auth.RequireRole(auth.IdentityFrom(ctx), m.roles...)
	}
	return err
}

// Intercept wraps resolve so the guard for m runs first. A failing guard
// returns its error without calling resolve.
func Intercept(resolve schema.ResolveFunc, m Marker) schema.ResolveFunc {
	if m.kind == None || resolve == nil {
		return resolve
	}
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		if err := m.Check(ctx); err != nil {
			return nil, err
		}
		return resolve(ctx, source, args)
	}
}

// MarkerOf reads the access requirement declared on f. @hasRole takes
// precedence over @isAuth.
func MarkerOf(f *schema.Field) (Marker, error) {
	if d := f.Directive(HasRole); d != nil {
		raw, ok := d.Args["roles"].([]any)
		if !ok {
			return Marker{}, fmt.Errorf("%s: @%s requires a roles list", f.Name, HasRole)
		}
		roles := make([]model.Role, 0, len(raw))
		for _, v := range raw {
			s, _ := v.(string)
			r := model.Role(s)
			if !r.Valid() {
				return Marker{}, fmt.Errorf("%s: unknown role %v", f.Name, v)
			}
			roles = append(roles, r)
		}
		return RequiresRole(roles...), nil
	}
	if f.Directive(IsAuth) != nil {
		return RequiresAuth(), nil
	}
	return Marker{}, nil
}

// Apply wraps the resolver of every object field that carries an access
// directive and returns the markers found, keyed by "Type.field".
// Fields must be bound before Apply runs.
func Apply(s *schema.Schema) (map[string]Marker, error) {
	markers := make(map[string]Marker)
	for _, t := range s.Types {
		if t.Kind != schema.TypeKindObject {
			continue
		}
		for _, f := range t.Fields {
			m, err := MarkerOf(f)
			if err != nil {
				return nil, fmt.Errorf("%s.%w", t.Name, err)
			}
			if m.IsZero() {
				continue
			}
			if f.Resolve == nil {
				return nil, fmt.Errorf("%s.%s: %s on unbound field", t.Name, f.Name, m)
			}
			f.Resolve = Intercept(f.Resolve, m)
			markers[t.Name+"."+f.Name] = m
		}
	}
	return markers, nil
}
