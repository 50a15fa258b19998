package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses SDL sources together with the built-in prelude and
// validates the resulting schema.
func LoadSchema(sources ...*Source) (*Schema, error) {
	s, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadQuery parses source and validates it against s. A syntax error is
// returned as parseErr; rule violations are returned as invalid.
func LoadQuery(s *Schema, source string) (doc *QueryDocument, parseErr *Error, invalid ErrorList) {
	doc, err := ParseQuery(source)
	if err != nil {
		return nil, AsError(err), nil
	}
	if _, list := gqlparser.LoadQuery(s, source); len(list) > 0 {
		return nil, nil, list
	}
	return doc, nil, nil
}

// AsError converts err into a located GraphQL error.
func AsError(err error) *Error {
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Message: err.Error()}
}
