package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/model"
)

func details(t *testing.T, err error) []apperr.FieldError {
	t.Helper()
	var ve *Errors
	require.True(t, errors.As(err, &ve), "want *Errors, got %T: %v", err, err)
	return ve.Details
}

func TestValidateSignup(t *testing.T) {
	ok := model.SignupInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"}
	require.NoError(t, Validate(Signup, ok))
	require.NoError(t, Validate(Signup, &ok))

	bad := model.SignupInput{Name: "A", Email: "nope", Password: "123", Role: "ROOT"}
	want := []apperr.FieldError{
		{Path: "input.name", Message: "input.name must be at least 2 characters"},
		{Path: "input.email", Message: "input.email must be a valid email"},
		{Path: "input.password", Message: "input.password must be at least 6 characters"},
		{Path: "input.role", Message: "input.role must be one of the following values: AUTHOR, READER, ADMIN"},
	}
	if diff := cmp.Diff(want, details(t, Validate(Signup, bad))); diff != "" {
		t.Fatalf("details mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name      string
		schema    string
		input     any
		wantPaths []string
	}{
		{"login ok", Login, model.LoginInput{Email: "a@b.co", Password: "123456"}, nil},
		{"login long password", Login, model.LoginInput{Email: "a@b.co", Password: strings.Repeat("x", 129)}, []string{"input.password"}},
		{"createUser missing role", CreateUser, model.CreateUserInput{Name: "Bo", Email: "b@b.co"}, []string{"input.role"}},
		{"createPost short body", CreatePost, model.CreatePostInput{Title: "Hey", Body: "short", AuthorID: "u", Category: model.CategoryTechnology}, []string{"input.body"}},
		{"createPost bad category", CreatePost, model.CreatePostInput{Title: "Hey", Body: "long enough body", AuthorID: "u", Category: "FOOD"}, []string{"input.category"}},
		{"createPost empty", CreatePost, model.CreatePostInput{}, []string{"input.title", "input.body", "input.authorId", "input.category"}},
		{"createComment ok", CreateComment, model.CreateCommentInput{Text: "hi", AuthorID: "u", PostID: "p"}, nil},
		{"createComment too long", CreateComment, model.CreateCommentInput{Text: strings.Repeat("x", 501), AuthorID: "u", PostID: "p"}, []string{"input.text"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema, tt.input)
			if tt.wantPaths == nil {
				require.NoError(t, err)
				return
			}
			var paths []string
			for _, d := range details(t, err) {
				paths = append(paths, d.Path)
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
}

func TestValidateProgrammingErrors(t *testing.T) {
	err := Validate("nope", model.LoginInput{})
	require.Error(t, err)
	var ve *Errors
	assert.False(t, errors.As(err, &ve))

	err = Validate(Login, model.SignupInput{})
	require.Error(t, err)
	assert.False(t, errors.As(err, &ve))
}

func TestErrorsToValidationError(t *testing.T) {
	err := Validate(CreatePost, model.CreatePostInput{})
	var ve *Errors
	require.True(t, errors.As(err, &ve))
	got := ve.ValidationError("Invalid post input")
	assert.Equal(t, "Invalid post input", got.Message)
	assert.Len(t, got.Details, 4)
	assert.True(t, apperr.IsValidation(got))
}

func TestDecode(t *testing.T) {
	args := map[string]any{"input": map[string]any{
		"name":     "  Ada ",
		"email":    " ada@example.com",
		"password": " pw with spaces ",
		"role":     "AUTHOR",
	}}
	var in model.SignupInput
	require.NoError(t, Decode(args, "input", &in))
	assert.Equal(t, model.SignupInput{Name: "Ada", Email: "ada@example.com", Password: " pw with spaces ", Role: model.RoleAuthor}, in)

	require.Error(t, Decode(map[string]any{}, "input", &in))
	require.Error(t, Decode(map[string]any{"input": map[string]any{"bogus": 1}}, "input", &in))
}
