package executor

import (
	"context"
	"errors"
)

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// ErrorPresenter turns an error raised while resolving the field at path into
// the error reported to the caller.
type ErrorPresenter func(ctx context.Context, err error, path Path) GraphQLError

// DefaultErrorPresenter reports err's message unchanged. A GraphQLError is
// passed through with path filled in.
func DefaultErrorPresenter(_ context.Context, err error, path Path) GraphQLError {
	var ge GraphQLError
	if errors.As(err, &ge) {
		if ge.Path == nil {
			ge.Path = path
		}
		return ge
	}
	return GraphQLError{Message: err.Error(), Path: path}
}

func requestError(code, msg string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: msg, Extensions: map[string]any{"code": code}}}}
}

const (
	codeOperationNotFound = "OPERATION_RESOLUTION_FAILURE"
	codeBadUserInput      = "BAD_USER_INPUT"
)
