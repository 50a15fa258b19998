// Package introspection serves the __schema and __type meta fields.
//
// The meta types come from the source schema; Install binds a resolver to
// each of their fields so any runtime that resolves through the schema's
// bound fields answers introspection queries.
package introspection

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	schema "github.com/hanpama/inkgraph/internal/schema"
)

// Values resolved for __Type are type references. A named reference stands
// for the named type itself.
type typeRef = *schema.TypeRef

type resolver func(s *schema.Schema, source any, args map[string]any) (any, error)

// Install adds the introspection types and meta fields to s and binds them.
func Install(s *schema.Schema) error {
	if err := s.AddIntrospection(); err != nil {
		return err
	}
	for typeName, fields := range bindings {
		t := s.Types[typeName]
		if t == nil {
			return fmt.Errorf("introspection: schema has no %s type", typeName)
		}
		for _, f := range t.Fields {
			fn, ok := fields[f.Name]
			if !ok {
				return fmt.Errorf("introspection: no resolver for %s.%s", typeName, f.Name)
			}
			f.Resolve = bind(s, fn)
			f.Async = false
		}
	}
	q := s.QueryType
	if err := s.Bind(q, "__schema", bind(s, func(s *schema.Schema, _ any, _ map[string]any) (any, error) {
		return s, nil
	}), false); err != nil {
		return err
	}
	return s.Bind(q, "__type", bind(s, func(s *schema.Schema, _ any, args map[string]any) (any, error) {
		name, _ := args["name"].(string)
		if s.Types[name] == nil {
			return nil, nil
		}
		return schema.NamedType(name), nil
	}), false)
}

func bind(s *schema.Schema, fn resolver) schema.ResolveFunc {
	return func(_ context.Context, source any, args map[string]any) (any, error) {
		return fn(s, source, args)
	}
}

// on adapts a resolver over a typed source.
func on[T any](fn func(s *schema.Schema, src T, args map[string]any) any) resolver {
	return func(s *schema.Schema, source any, args map[string]any) (any, error) {
		src, ok := source.(T)
		if !ok {
			return nil, fmt.Errorf("introspection: unexpected source %T", source)
		}
		return fn(s, src, args), nil
	}
}

var bindings = map[string]map[string]resolver{
	"__Schema": {
		"description": on(func(s *schema.Schema, src *schema.Schema, _ map[string]any) any { return optional(src.Description) }),
		"types": on(func(_ *schema.Schema, src *schema.Schema, _ map[string]any) any {
			names := make([]string, 0, len(src.Types))
			for name := range src.Types {
				names = append(names, name)
			}
			sort.Strings(names)
			refs := make([]typeRef, len(names))
			for i, name := range names {
				refs[i] = schema.NamedType(name)
			}
			return refs
		}),
		"queryType":        on(func(_ *schema.Schema, src *schema.Schema, _ map[string]any) any { return rootRef(src.QueryType) }),
		"mutationType":     on(func(_ *schema.Schema, src *schema.Schema, _ map[string]any) any { return rootRef(src.MutationType) }),
		"subscriptionType": on(func(_ *schema.Schema, src *schema.Schema, _ map[string]any) any { return rootRef(src.SubscriptionType) }),
		"directives": on(func(_ *schema.Schema, src *schema.Schema, _ map[string]any) any {
			out := make([]*schema.Directive, 0, len(src.Directives))
			for _, d := range src.Directives {
				out = append(out, d)
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
			return out
		}),
	},
	"__Type": {
		"kind": on(func(s *schema.Schema, ref typeRef, _ map[string]any) any {
			switch ref.Kind {
			case schema.TypeRefKindList:
				return "LIST"
			case schema.TypeRefKindNonNull:
				return "NON_NULL"
			}
			if t := s.Types[ref.Named]; t != nil {
				return string(t.Kind)
			}
			return nil
		}),
		"name": on(func(_ *schema.Schema, ref typeRef, _ map[string]any) any {
			if ref.Kind != schema.TypeRefKindNamed {
				return nil
			}
			return ref.Named
		}),
		"description": named(func(_ *schema.Schema, t *schema.Type, _ map[string]any) any { return optional(t.Description) }),
		"specifiedByURL": named(func(_ *schema.Schema, t *schema.Type, _ map[string]any) any {
			if t.SpecifiedByURL == nil {
				return nil
			}
			return *t.SpecifiedByURL
		}),
		"isOneOf": named(func(_ *schema.Schema, t *schema.Type, _ map[string]any) any {
			if t.Kind != schema.TypeKindInputObject {
				return nil
			}
			return t.OneOf
		}),
		"fields": named(func(_ *schema.Schema, t *schema.Type, args map[string]any) any {
			if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
				return nil
			}
			all := includeDeprecated(args)
			out := []*schema.Field{}
			for _, f := range t.Fields {
				if strings.HasPrefix(f.Name, "__") || (f.IsDeprecated && !all) {
					continue
				}
				out = append(out, f)
			}
			return out
		}),
		"interfaces": named(func(_ *schema.Schema, t *schema.Type, _ map[string]any) any {
			if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
				return nil
			}
			return refs(t.Interfaces)
		}),
		"possibleTypes": named(func(s *schema.Schema, t *schema.Type, _ map[string]any) any {
			switch t.Kind {
			case schema.TypeKindUnion:
				return refs(t.PossibleTypes)
			case schema.TypeKindInterface:
				var names []string
				for name, other := range s.Types {
					if other.Kind == schema.TypeKindObject && contains(other.Interfaces, t.Name) {
						names = append(names, name)
					}
				}
				sort.Strings(names)
				return refs(names)
			}
			return nil
		}),
		"enumValues": named(func(_ *schema.Schema, t *schema.Type, args map[string]any) any {
			if t.Kind != schema.TypeKindEnum {
				return nil
			}
			all := includeDeprecated(args)
			out := []*schema.EnumValue{}
			for _, v := range t.EnumValues {
				if !v.IsDeprecated || all {
					out = append(out, v)
				}
			}
			return out
		}),
		"inputFields": named(func(_ *schema.Schema, t *schema.Type, args map[string]any) any {
			if t.Kind != schema.TypeKindInputObject {
				return nil
			}
			return inputValues(t.InputFields, args)
		}),
		"ofType": on(func(_ *schema.Schema, ref typeRef, _ map[string]any) any {
			if ref.Kind == schema.TypeRefKindNamed {
				return nil
			}
			return ref.OfType
		}),
	},
	"__Field": {
		"name":              on(func(_ *schema.Schema, f *schema.Field, _ map[string]any) any { return f.Name }),
		"description":       on(func(_ *schema.Schema, f *schema.Field, _ map[string]any) any { return optional(f.Description) }),
		"args":              on(func(_ *schema.Schema, f *schema.Field, args map[string]any) any { return inputValues(f.Arguments, args) }),
		"type":              on(func(_ *schema.Schema, f *schema.Field, _ map[string]any) any { return f.Type }),
		"isDeprecated":      on(func(_ *schema.Schema, f *schema.Field, _ map[string]any) any { return f.IsDeprecated }),
		"deprecationReason": on(func(_ *schema.Schema, f *schema.Field, _ map[string]any) any { return reason(f.IsDeprecated, f.DeprecationReason) }),
	},
	"__InputValue": {
		"name":        on(func(_ *schema.Schema, v *schema.InputValue, _ map[string]any) any { return v.Name }),
		"description": on(func(_ *schema.Schema, v *schema.InputValue, _ map[string]any) any { return optional(v.Description) }),
		"type":        on(func(_ *schema.Schema, v *schema.InputValue, _ map[string]any) any { return v.Type }),
		"defaultValue": on(func(s *schema.Schema, v *schema.InputValue, _ map[string]any) any {
			if v.DefaultValue == nil {
				return nil
			}
			return render(s, v.Type, v.DefaultValue)
		}),
		"isDeprecated":      on(func(_ *schema.Schema, v *schema.InputValue, _ map[string]any) any { return v.IsDeprecated }),
		"deprecationReason": on(func(_ *schema.Schema, v *schema.InputValue, _ map[string]any) any { return reason(v.IsDeprecated, v.DeprecationReason) }),
	},
	"__EnumValue": {
		"name":              on(func(_ *schema.Schema, v *schema.EnumValue, _ map[string]any) any { return v.Name }),
		"description":       on(func(_ *schema.Schema, v *schema.EnumValue, _ map[string]any) any { return optional(v.Description) }),
		"isDeprecated":      on(func(_ *schema.Schema, v *schema.EnumValue, _ map[string]any) any { return v.IsDeprecated }),
		"deprecationReason": on(func(_ *schema.Schema, v *schema.EnumValue, _ map[string]any) any { return reason(v.IsDeprecated, v.DeprecationReason) }),
	},
	"__Directive": {
		"name":         on(func(_ *schema.Schema, d *schema.Directive, _ map[string]any) any { return d.Name }),
		"description":  on(func(_ *schema.Schema, d *schema.Directive, _ map[string]any) any { return optional(d.Description) }),
		"locations":    on(func(_ *schema.Schema, d *schema.Directive, _ map[string]any) any { return append([]string{}, d.Locations...) }),
		"args":         on(func(_ *schema.Schema, d *schema.Directive, args map[string]any) any { return inputValues(d.Arguments, args) }),
		"isRepeatable": on(func(_ *schema.Schema, d *schema.Directive, _ map[string]any) any { return d.IsRepeatable }),
	},
}

// named adapts a resolver that only applies to named type references.
func named(fn func(s *schema.Schema, t *schema.Type, args map[string]any) any) resolver {
	return on(func(s *schema.Schema, ref typeRef, args map[string]any) any {
		t := s.Types[ref.Named]
		if ref.Kind != schema.TypeRefKindNamed || t == nil {
			return nil
		}
		return fn(s, t, args)
	})
}

func rootRef(name string) any {
	if name == "" {
		return nil
	}
	return schema.NamedType(name)
}

func refs(names []string) []typeRef {
	out := make([]typeRef, len(names))
	for i, n := range names {
		out[i] = schema.NamedType(n)
	}
	return out
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, why string) any {
	if !deprecated {
		return nil
	}
	return why
}

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func inputValues(in []*schema.InputValue, args map[string]any) []*schema.InputValue {
	all := includeDeprecated(args)
	out := []*schema.InputValue{}
	for _, v := range in {
		if !v.IsDeprecated || all {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// render prints a default value as a GraphQL literal of type t.
func render(s *schema.Schema, t *schema.TypeRef, v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		if nt := s.Types[t.GetNamedType()]; nt != nil && nt.Kind == schema.TypeKindEnum {
			return val
		}
		return strconv.Quote(val)
	case []any:
		elem := t
		for elem.Kind == schema.TypeRefKindNonNull {
			elem = elem.OfType
		}
		if elem.Kind == schema.TypeRefKindList {
			elem = elem.OfType
		}
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = render(s, elem, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		input := s.Types[t.GetNamedType()]
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			ft := schema.NamedType("String")
			if input != nil {
				for _, f := range input.InputFields {
					if f.Name == k {
						ft = f.Type
					}
				}
			}
			parts[i] = k + ": " + render(s, ft, val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}
