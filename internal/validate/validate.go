// Package validate checks mutation inputs against the rules declared in
// their struct tags and decodes GraphQL argument maps into those inputs.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/model"
)

// Names of the registered input schemas.
const (
	Signup        = "signup"
	Login         = "login"
	CreateUser    = "createUser"
	CreatePost    = "createPost"
	CreateComment = "createComment"
)

var schemas = map[string]reflect.Type{
	Signup:        reflect.TypeOf(model.SignupInput{}),
	Login:         reflect.TypeOf(model.LoginInput{}),
	CreateUser:    reflect.TypeOf(model.CreateUserInput{}),
	CreatePost:    reflect.TypeOf(model.CreatePostInput{}),
	CreateComment: reflect.TypeOf(model.CreateCommentInput{}),
}

var v = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Errors lists every failed rule of one input.
type Errors struct {
	Details []apperr.FieldError
}

func (e *Errors) Error() string {
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Message
	}
	return strings.Join(msgs, "; ")
}

// ValidationError converts e into the domain error reported to clients.
func (e *Errors) ValidationError(message string) *apperr.ValidationError {
	return apperr.NewValidationError(message, e.Details...)
}

// Validate checks input against the schema registered as name. Rule
// failures are returned as *Errors; an unknown name or an input of the
// wrong type is a programming error and is returned as a plain error.
func Validate(name string, input any) error {
	want, ok := schemas[name]
	if !ok {
		return fmt.Errorf("validate: unknown schema %q", name)
	}
	rv := reflect.ValueOf(input)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fmt.Errorf("validate: nil %s input", name)
		}
		rv = rv.Elem()
	}
	if rv.Type() != want {
		return fmt.Errorf("validate: schema %q expects %s, got %T", name, want, input)
	}

	err := v.Struct(rv.Interface())
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	out := &Errors{Details: make([]apperr.FieldError, 0, len(fes))}
	for _, fe := range fes {
		path := "input." + fe.Field()
		out.Details = append(out.Details, apperr.FieldError{Path: path, Message: message(path, fe)})
	}
	return out
}

func message(path string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return path + " is a required field"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", path, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", path, fe.Param())
	case "email":
		return path + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of the following values: %s", path, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid (%s)", path, fe.Tag())
	}
}

// Decode copies args[key] into dst, a pointer to an input struct, matching
// keys by json name. String fields other than passwords are trimmed.
func Decode(args map[string]any, key string, dst any) error {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fmt.Errorf("decode: missing argument %q", key)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      dst,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	trim(reflect.ValueOf(dst))
	return nil
}

func trim(rv reflect.Value) {
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() != reflect.String || !f.CanSet() || jsonName(t.Field(i)) == "password" {
			continue
		}
		f.SetString(strings.TrimSpace(f.String()))
	}
}
