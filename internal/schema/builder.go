package schema

import "fmt"

// NewSchema returns an empty schema with the built-in scalars and the
// skip/include directives registered.
func NewSchema(description string) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
	for _, t := range builtinScalars {
		s.AddType(t)
	}
	s.AddDirective(includeDirective).AddDirective(skipDirective)
	return s
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

// AddType registers t, replacing any type of the same name.
func (s *Schema) AddType(t *Type) *Schema {
	if s.Types == nil {
		s.Types = make(map[string]*Type)
	}
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	if s.Directives == nil {
		s.Directives = make(map[string]*Directive)
	}
	s.Directives[d.Name] = d
	return s
}

// Field returns the field definition typeName.fieldName, or nil.
func (s *Schema) Field(typeName, fieldName string) *Field {
	t := s.Types[typeName]
	if t == nil {
		return nil
	}
	return t.Field(fieldName)
}

// Bind installs fn as the resolver of typeName.fieldName. Async fields are
// resolved in per-depth batches by the executor.
func (s *Schema) Bind(typeName, fieldName string, fn ResolveFunc, async bool) error {
	f := s.Field(typeName, fieldName)
	if f == nil {
		return fmt.Errorf("bind %s.%s: no such field", typeName, fieldName)
	}
	f.Resolve = fn
	f.Async = async
	return nil
}

// Unbound lists the object fields, as "Type.field", that have no resolver.
func (s *Schema) Unbound() []string {
	var out []string
	for _, name := range sortedKeys(s.Types) {
		t := s.Types[name]
		if t.Kind != TypeKindObject {
			continue
		}
		for _, f := range t.Fields {
			if f.Resolve == nil {
				out = append(out, t.Name+"."+f.Name)
			}
		}
	}
	return out
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

// Field returns the field called name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *Type) AddField(f *Field) *Type                { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type         { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type      { t.PossibleTypes = append(t.PossibleTypes, name); return t }
func (t *Type) AddEnumValue(v *EnumValue) *Type        { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type      { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type              { t.OneOf = oneOf; return t }
func NewFieldMap(fields ...*Field) []*Field            { return fields }
func NewEnumValue(name, description string) *EnumValue { return &EnumValue{Name: name, Description: description} }

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field              { f.Async = async; return f }
func (f *Field) SetResolve(fn ResolveFunc) *Field        { f.Resolve = fn; return f }
func (f *Field) AddArgument(a *InputValue) *Field        { f.Arguments = append(f.Arguments, a); return f }
func (f *Field) AddDirective(d *AppliedDirective) *Field { f.Directives = append(f.Directives, d); return f }

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue { v.DefaultValue = value; return v }

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(r bool) *Directive      { d.IsRepeatable = r; return d }
func (d *Directive) AddArgument(a *InputValue) *Directive { d.Arguments = append(d.Arguments, a); return d }
