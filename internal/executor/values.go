package executor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	language "github.com/hanpama/inkgraph/internal/language"
	schema "github.com/hanpama/inkgraph/internal/schema"
)

// coerceVariableValues coerces the request's variables against the
// operation's variable definitions.
func coerceVariableValues(
	s *schema.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(operation.VariableDefinitions))
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := variableValues[name]
		if !ok {
			val, ok = variableValues[strings.TrimPrefix(name, "$")]
		}
		if !ok {
			switch {
			case varDef.DefaultValue != nil:
				val = valueFromAST(varDef.DefaultValue, nil)
			case t.NonNull:
				return nil, fmt.Errorf("Variable \"$%s\" of required type \"%s\" was not provided.", name, t.String())
			default:
				continue
			}
		}
		if val == nil && t.NonNull {
			return nil, fmt.Errorf("Variable \"$%s\" of non-null type \"%s\" must not be null.", name, t.String())
		}
		cv, err := coerceValue(s, val, typeRefFromAST(t))
		if err != nil {
			return nil, fmt.Errorf("Variable \"$%s\" got invalid value; %v", name, err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces the arguments of one field. Failures are
// recorded at path and the offending argument is left out.
func coerceArgumentValues(
	fieldDef *schema.Field,
	arguments language.ArgumentList,
	variableValues map[string]any,
	state *executionState,
	path Path,
) map[string]any {
	coerced := make(map[string]any, len(fieldDef.Arguments))
	for _, argDef := range fieldDef.Arguments {
		name := argDef.Name
		arg := arguments.ForName(name)

		var (
			val     any
			present bool
		)
		if arg != nil {
			present = true
			if arg.Value != nil && arg.Value.Kind == language.Variable {
				val, present = variableValues[arg.Value.Raw]
			} else {
				val = valueFromAST(arg.Value, variableValues)
			}
		}
		if !present {
			switch {
			case argDef.DefaultValue != nil:
				val = argDef.DefaultValue
			case schema.IsNonNull(argDef.Type):
				state.addError(fmt.Sprintf("Argument %q of required type was not provided", name), path)
				continue
			default:
				continue
			}
		}

		cv, err := coerceValue(state.schema, val, argDef.Type)
		if err != nil {
			state.addError(fmt.Sprintf("Argument %q has invalid value: %v", name, err), path)
			continue
		}
		coerced[name] = cv
	}
	return coerced
}

// valueFromAST converts a literal to a Go value, substituting variables at
// any depth. Unknown variables become nil.
func valueFromAST(value *language.Value, variableValues map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		return variableValues[value.Raw]
	case language.IntValue:
		if iv, err := strconv.ParseInt(value.Raw, 10, 64); err == nil {
			return int(iv)
		}
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = valueFromAST(c.Value, variableValues)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			if f.Value != nil && f.Value.Kind == language.Variable {
				if v, ok := variableValues[f.Value.Raw]; ok {
					m[f.Name] = v
				}
				continue
			}
			m[f.Name] = valueFromAST(f.Value, variableValues)
		}
		return m
	default:
		return nil
	}
}

// coerceValue coerces value to targetType, resolving named types in s.
func coerceValue(s *schema.Schema, value any, targetType *schema.TypeRef) (any, error) {
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("expected non-null value")
		}
		return coerceValue(s, value, schema.Unwrap(targetType))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(targetType) {
		inner := schema.Unwrap(targetType)
		items, ok := value.([]any)
		if !ok {
			// A single item is coerced to a list of one.
			v, err := coerceValue(s, value, inner)
			if err != nil {
				return nil, err
			}
			return []any{v}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := coerceValue(s, item, inner)
			if err != nil {
				return nil, fmt.Errorf("at index %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	name := schema.GetNamedType(targetType)
	switch name {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("String cannot represent a non string value: %v", value)
	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	case "ID":
		return coerceID(value)
	}

	var t *schema.Type
	if s != nil {
		t = s.Types[name]
	}
	if t == nil {
		return value, nil
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		return coerceEnum(t, value)
	case schema.TypeKindInputObject:
		return coerceInputObject(s, t, value)
	default:
		return value, nil
	}
}

func coerceInt(value any) (any, error) {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int32:
		return int(v), nil
	case int64:
		f = float64(v)
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", value)
	}
	return int(f), nil
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("Float cannot represent non numeric value: %v", value)
}

func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("ID cannot represent value: %v", value)
}

func coerceEnum(t *schema.Type, value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("Enum %q cannot represent non-string value: %v", t.Name, value)
	}
	for _, ev := range t.EnumValues {
		if ev.Name == str {
			return str, nil
		}
	}
	return nil, fmt.Errorf("Value %q does not exist in %q enum", str, t.Name)
}

func coerceInputObject(s *schema.Schema, t *schema.Type, value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("Expected type %q to be an object", t.Name)
	}
	known := make(map[string]struct{}, len(t.InputFields))
	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		known[f.Name] = struct{}{}
		v, present := obj[f.Name]
		if !present {
			if f.DefaultValue != nil {
				v = f.DefaultValue
			} else if schema.IsNonNull(f.Type) {
				return nil, fmt.Errorf("Field %q of required type %q was not provided", t.Name+"."+f.Name, f.Type.String())
			} else {
				continue
			}
		}
		cv, err := coerceValue(s, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("at %q: %w", f.Name, err)
		}
		out[f.Name] = cv
	}
	for k := range obj {
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("Field %q is not defined by type %q", k, t.Name)
		}
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("Exactly one key must be specified for OneOf type %q", t.Name)
	}
	return out, nil
}
