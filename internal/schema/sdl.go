package schema

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	language "github.com/hanpama/inkgraph/internal/language"
)

// BuildFromSDL parses and validates sdl and returns the corresponding
// Schema. Fields are left unbound; introspection meta fields are omitted.
func BuildFromSDL(name, sdl string) (*Schema, error) {
	src, err := language.LoadSchema(&language.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, err
	}
	s := NewSchema(src.Description)
	s.ast = src
	if src.Query != nil {
		s.SetQueryType(src.Query.Name)
	}
	if src.Mutation != nil {
		s.SetMutationType(src.Mutation.Name)
	}
	if src.Subscription != nil {
		s.SetSubscriptionType(src.Subscription.Name)
	}

	for _, name := range sortedKeys(src.Types) {
		if strings.HasPrefix(name, "__") {
			continue
		}
		if t := buildType(src.Types[name]); t != nil {
			s.AddType(t)
		}
	}
	for _, name := range sortedKeys(src.Directives) {
		s.AddDirective(buildDirective(src.Directives[name]))
	}
	return s, nil
}

// AddIntrospection registers the introspection meta types declared by the
// source schema and adds the __schema and __type fields to the query type.
// The new fields are left unbound.
func (s *Schema) AddIntrospection() error {
	q := s.GetQueryType()
	if s.ast == nil || q == nil {
		return errors.New("schema: introspection needs an SDL schema with a query type")
	}
	for _, name := range sortedKeys(s.ast.Types) {
		if !strings.HasPrefix(name, "__") {
			continue
		}
		if t := buildType(s.ast.Types[name]); t != nil {
			s.AddType(t)
		}
	}
	if q.Field("__schema") == nil {
		q.AddField(NewField("__schema", "Access the current type schema of this server.", NonNullType(NamedType("__Schema"))))
	}
	if q.Field("__type") == nil {
		q.AddField(NewField("__type", "Request the type information of a single type.", NamedType("__Type")).
			AddArgument(NewInputValue("name", "", NonNullType(NamedType("String")))))
	}
	return nil
}

func buildType(def *language.Definition) *Type {
	var kind TypeKind
	switch def.Kind {
	case language.Object:
		kind = TypeKindObject
	case language.Interface:
		kind = TypeKindInterface
	case language.Union:
		kind = TypeKindUnion
	case language.Scalar:
		kind = TypeKindScalar
	case language.Enum:
		kind = TypeKindEnum
	case language.InputObject:
		kind = TypeKindInputObject
	default:
		return nil
	}
	t := NewType(def.Name, kind, def.Description)
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, name := range def.Types {
		t.AddPossibleType(name)
	}
	for _, v := range def.EnumValues {
		ev := NewEnumValue(v.Name, v.Description)
		if reason, ok := deprecation(v.Directives); ok {
			ev.Deprecate(reason)
		}
		t.AddEnumValue(ev)
	}
	for _, fd := range def.Fields {
		if strings.HasPrefix(fd.Name, "__") {
			continue
		}
		if kind == TypeKindInputObject {
			in := NewInputValue(fd.Name, fd.Description, typeRef(fd.Type)).SetDefault(literal(fd.DefaultValue))
			t.AddInputField(in)
			continue
		}
		t.AddField(buildField(fd))
	}
	if def.Directives.ForName("oneOf") != nil {
		t.SetOneOf(true)
	}
	return t
}

func buildField(fd *language.FieldDefinition) *Field {
	f := NewField(fd.Name, fd.Description, typeRef(fd.Type))
	for _, a := range fd.Arguments {
		f.AddArgument(NewInputValue(a.Name, a.Description, typeRef(a.Type)).SetDefault(literal(a.DefaultValue)))
	}
	for _, d := range fd.Directives {
		if d.Name == "deprecated" {
			continue
		}
		applied := &AppliedDirective{Name: d.Name, Args: map[string]any{}}
		for _, arg := range d.Arguments {
			applied.Args[arg.Name] = literal(arg.Value)
		}
		f.AddDirective(applied)
	}
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	return f
}

func buildDirective(def *language.DirectiveDefinition) *Directive {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	for _, loc := range def.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, a := range def.Arguments {
		d.AddArgument(NewInputValue(a.Name, a.Description, typeRef(a.Type)).SetDefault(literal(a.DefaultValue)))
	}
	return d
}

func deprecation(dirs language.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	reason := "No longer supported"
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		reason = arg.Value.Raw
	}
	return reason, true
}

func typeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var inner *TypeRef
	if t.Elem != nil {
		inner = ListType(typeRef(t.Elem))
	} else {
		inner = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(inner)
	}
	return inner
}

// literal converts a constant SDL value to Go. Ints become int.
func literal(v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.IntValue:
		n, _ := strconv.Atoi(v.Raw)
		return n
	case language.FloatValue:
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case language.BooleanValue:
		return v.Raw == "true"
	case language.NullValue:
		return nil
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = literal(c.Value)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = literal(c.Value)
		}
		return out
	default:
		return v.Raw
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
