package graph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
)

func TestNestedQueryIssuesOneStoreCallPerDepth(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)
	bob := h.user("bob", model.RoleAuthor)
	carol := h.user("carol", model.RoleReader)
	p1 := h.post(ada, "Go one", model.CategoryTechnology)
	p2 := h.post(bob, "Go two", model.CategoryTechnology)
	h.post(ada, "Go three", model.CategoryEducation)
	h.comment(bob, p1, "nice")
	h.comment(carol, p1, "agreed")
	h.comment(carol, p2, "hm")
	h.log.take()

	res := h.do(nil, `{
		getPosts {
			title
			author { name posts { title comments { text author { name } } } }
		}
	}`, nil)
	require.Empty(t, res.Errors)

	assert.Equal(t, []string{
		"posts.Find",      // getPosts
		"users.FindByIDs", // Post.author for every post
		"posts.Find",      // User.posts for every author
		"comments.Find",   // Post.comments for every post
		"users.FindByIDs", // Comment.author, only the uncached carol
	}, h.log.take())
	assert.Contains(t, dataJSON(t, res), `{"author":{"name":"carol"},"text":"agreed"}`)
}

func TestSiblingEdgesShareOneDispatch(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)
	p := h.post(ada, "Go one", model.CategoryTechnology)
	h.post(ada, "Go two", model.CategoryTechnology)
	h.comment(ada, p, "self reply")
	h.log.take()

	res := h.do(nil, `{ getPosts { author { name } comments { text } } }`, nil)
	require.Empty(t, res.Errors)

	calls := h.log.take()
	require.Len(t, calls, 3)
	assert.Equal(t, "posts.Find", calls[0])
	assert.ElementsMatch(t, []string{"users.FindByIDs", "comments.Find"}, calls[1:])
}

func TestEmptyRelationsAreLists(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)
	p := h.post(ada, "Lonely", model.CategoryLifestyle)
	reader := h.user("rita", model.RoleReader)

	res := h.do(identity(reader), `query($post: ID!, $user: ID!) {
		getPostById(id: $post) { comments { text } }
		getUserById(id: $user) { posts { title } }
	}`, map[string]any{"post": p.ID, "user": reader.ID})
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"getPostById":{"comments":[]},"getUserById":{"posts":[]}}`, dataJSON(t, res))
}

func TestPointLookupsReportNotFound(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAdmin)

	res := h.do(identity(ada), `{ getPostById(id: "missing") { id } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Post not found", res.Errors[0].Message)
	assert.Equal(t, []string{"NOT_FOUND"}, codes(res))

	res = h.do(identity(ada), `{ getUserById(id: "missing") { id } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "User not found", res.Errors[0].Message)
}

func TestFieldGuards(t *testing.T) {
	h := newHarness(t)
	admin := h.user("root", model.RoleAdmin)
	author := h.user("ada", model.RoleAuthor)

	tests := []struct {
		name    string
		caller  *model.User
		query   string
		message string
	}{
		{"anonymous getUsers", nil, `{ getUsers { id } }`, apperr.MsgAuthenticationRequired},
		{"author getUsers", author, `{ getUsers { id } }`, apperr.MsgInsufficientPermissions},
		{"anonymous getUserById", nil, `{ getUserById(id: "x") { id } }`, apperr.MsgAuthenticationRequired},
		{"anonymous me", nil, `{ me { id } }`, apperr.MsgAuthenticationRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var caller *auth.Identity
			if tt.caller != nil {
				caller = identity(tt.caller)
			}
			res := h.do(caller, tt.query, nil)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, tt.message, res.Errors[0].Message)
			assert.Equal(t, []string{"FORBIDDEN"}, codes(res))
		})
	}

	res := h.do(identity(admin), `{ getUsers { name } me { name } }`, nil)
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"getUsers":[{"name":"ada"},{"name":"root"}],"me":{"name":"root"}}`, dataJSON(t, res))
}

func TestReaderCannotCreatePost(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)
	reader := h.user("rita", model.RoleReader)
	h.log.take()

	// The input is invalid too; the guard must answer first.
	res := h.do(identity(reader), `mutation($author: ID!) {
		createPost(input: {title: "x", body: "short", authorId: $author, category: TECHNOLOGY}) { id }
	}`, map[string]any{"author": ada.ID})

	require.Len(t, res.Errors, 1)
	assert.Equal(t, apperr.MsgInsufficientPermissions, res.Errors[0].Message)
	assert.Equal(t, []string{"FORBIDDEN"}, codes(res))
	assert.Empty(t, h.log.take(), "no store call may happen")
}

func TestCreatePost(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)
	h.log.take()

	res := h.do(identity(ada), `mutation($author: ID!) {
		createPost(input: {title: "  Generics  ", body: "a body long enough", authorId: $author, category: TECHNOLOGY}) {
			title category postCategory author { name }
		}
	}`, map[string]any{"author": ada.ID})
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"createPost":{"title":"Generics","category":"TECHNOLOGY","postCategory":"TECHNOLOGY","author":{"name":"ada"}}}`, dataJSON(t, res))
	assert.Equal(t, []string{"users.Exists", "posts.Create", "users.FindByIDs"}, h.log.take())
}

func TestCreatePostValidation(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)

	res := h.do(identity(ada), `mutation {
		createPost(input: {title: "Go", body: "a body long enough", authorId: "ghost", category: TECHNOLOGY}) { id }
	}`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Invalid post input", res.Errors[0].Message)
	assert.Equal(t, []apperr.FieldError{{Path: "input.title", Message: "input.title must be at least 3 characters"}},
		res.Errors[0].Extensions["details"])

	res = h.do(identity(ada), `mutation {
		createPost(input: {title: "Go home", body: "a body long enough", authorId: "ghost", category: TECHNOLOGY}) { id }
	}`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Author not found", res.Errors[0].Message)
	n, err := h.raw.Posts().Count(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateCommentMissingReferences(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)
	p := h.post(ada, "Go one", model.CategoryTechnology)

	tests := []struct {
		name, author, post, message string
	}{
		{"author", "ghost", p.ID, "Author not found"},
		{"post", ada.ID, "ghost", "Post not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.do(identity(ada), `mutation($author: ID!, $post: ID!) {
				createComment(input: {text: "hello", authorId: $author, postId: $post}) { id }
			}`, map[string]any{"author": tt.author, "post": tt.post})
			require.Len(t, res.Errors, 1)
			assert.Equal(t, tt.message, res.Errors[0].Message)
			assert.Equal(t, []string{"NOT_FOUND"}, codes(res))

			n, err := h.raw.Comments().Count(context.Background(), store.Filter{})
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}

	res := h.do(identity(ada), `mutation($author: ID!, $post: ID!) {
		createComment(input: {text: "hello", authorId: $author, postId: $post}) { text post { title } author { name } }
	}`, map[string]any{"author": ada.ID, "post": p.ID})
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"createComment":{"text":"hello","post":{"title":"Go one"},"author":{"name":"ada"}}}`, dataJSON(t, res))
}

func TestSignupAndLogin(t *testing.T) {
	h := newHarness(t)
	const signup = `mutation($email: String!) {
		signup(input: {name: "Dana", email: $email, password: "hunter22"}) { token user { id name email role } }
	}`

	res := h.do(nil, signup, map[string]any{"email": " dana@example.com "})
	require.Empty(t, res.Errors)
	payload := res.Data.(map[string]any)["signup"].(map[string]any)
	user := payload["user"].(map[string]any)
	assert.Equal(t, "dana@example.com", user["email"])
	assert.Equal(t, "READER", user["role"])

	claims, err := h.signer.Verify(payload["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, user["id"], claims.Subject)
	assert.Equal(t, model.RoleReader, claims.Role)

	res = h.do(nil, signup, map[string]any{"email": "dana@example.com"})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Email already in use", res.Errors[0].Message)
	assert.Equal(t, []string{"BAD_USER_INPUT"}, codes(res))

	const login = `mutation($email: String!, $password: String!) {
		login(input: {email: $email, password: $password}) { token user { name } }
	}`
	tests := []struct {
		name, email, password, path string
	}{
		{"unknown email", "nobody@example.com", "hunter22", "input.email"},
		{"wrong password", "dana@example.com", "hunter23", "input.password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.do(nil, login, map[string]any{"email": tt.email, "password": tt.password})
			require.Len(t, res.Errors, 1)
			assert.Equal(t, "Invalid credentials", res.Errors[0].Message)
			assert.Equal(t, []apperr.FieldError{{Path: tt.path, Message: "Invalid email or password"}}, res.Errors[0].Extensions["details"])
		})
	}

	res = h.do(nil, login, map[string]any{"email": "dana@example.com", "password": "hunter22"})
	require.Empty(t, res.Errors)
	assert.Equal(t, "Dana", res.Data.(map[string]any)["login"].(map[string]any)["user"].(map[string]any)["name"])
}

func TestCreateUserIsAdminOnly(t *testing.T) {
	h := newHarness(t)
	admin := h.user("root", model.RoleAdmin)
	author := h.user("ada", model.RoleAuthor)
	const q = `mutation { createUser(input: {name: "Eve", email: "eve@example.com", role: AUTHOR}) { name role } }`

	res := h.do(identity(author), q, nil)
	assert.Equal(t, []string{"FORBIDDEN"}, codes(res))

	res = h.do(identity(admin), q, nil)
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"createUser":{"name":"Eve","role":"AUTHOR"}}`, dataJSON(t, res))
}

func TestPostsConnectionPages(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)
	for _, title := range []string{"P1", "P2", "P3", "P4", "P5"} {
		h.post(ada, title, model.CategoryTechnology)
	}
	h.post(ada, "Other", model.CategoryLifestyle)

	const q = `query($after: String) {
		getPostsConnection(category: TECHNOLOGY, first: 2, after: $after) {
			edges { node { title } }
			pageInfo { endCursor hasNextPage }
			totalCount
		}
	}`
	res := h.do(nil, q, nil)
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"getPostsConnection":{
		"edges":[{"node":{"title":"P5"}},{"node":{"title":"P4"}}],
		"pageInfo":{"endCursor":"id-005","hasNextPage":true},
		"totalCount":5}}`, dataJSON(t, res))

	res = h.do(nil, q, map[string]any{"after": "id-005"})
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"getPostsConnection":{
		"edges":[{"node":{"title":"P3"}},{"node":{"title":"P2"}}],
		"pageInfo":{"endCursor":"id-003","hasNextPage":true},
		"totalCount":5}}`, dataJSON(t, res))
}

func TestEmptyConnectionHasNoEndCursor(t *testing.T) {
	h := newHarness(t)
	res := h.do(nil, `{
		getPostsConnection(category: EDUCATION) {
			edges { cursor }
			pageInfo { endCursor hasNextPage }
			totalCount
		}
	}`, nil)
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"getPostsConnection":{
		"edges":[],
		"pageInfo":{"endCursor":null,"hasNextPage":false},
		"totalCount":0}}`, dataJSON(t, res))
}

func TestGetPostsOffsetAndSearch(t *testing.T) {
	h := newHarness(t)
	ada := h.user("ada", model.RoleAuthor)
	for _, title := range []string{"Go basics", "Cooking", "Go advanced", "Going out"} {
		h.post(ada, title, model.CategoryTechnology)
	}

	res := h.do(nil, `{ getPosts(search: "go", limit: 2, offset: 1) { title } }`, nil)
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"getPosts":[{"title":"Go advanced"},{"title":"Go basics"}]}`, dataJSON(t, res))

	res = h.do(nil, `{ getPosts(limit: -1) { title } }`, nil)
	assert.Equal(t, []string{"BAD_USER_INPUT"}, codes(res))
}

func TestIntrospection(t *testing.T) {
	h := newHarness(t)
	res := h.do(nil, `{
		__schema { queryType { name } mutationType { name } }
		__type(name: "Post") { kind fields(includeDeprecated: true) { name isDeprecated deprecationReason } }
	}`, nil)
	require.Empty(t, res.Errors)

	var out struct {
		Schema struct {
			QueryType    struct{ Name string } `json:"queryType"`
			MutationType struct{ Name string } `json:"mutationType"`
		} `json:"__schema"`
		Type struct {
			Kind   string `json:"kind"`
			Fields []struct {
				Name              string  `json:"name"`
				IsDeprecated      bool    `json:"isDeprecated"`
				DeprecationReason *string `json:"deprecationReason"`
			} `json:"fields"`
		} `json:"__type"`
	}
	require.NoError(t, json.Unmarshal([]byte(dataJSON(t, res)), &out))
	assert.Equal(t, "Query", out.Schema.QueryType.Name)
	assert.Equal(t, "Mutation", out.Schema.MutationType.Name)
	assert.Equal(t, "OBJECT", out.Type.Kind)
	var deprecated []string
	for _, f := range out.Type.Fields {
		if f.IsDeprecated {
			deprecated = append(deprecated, f.Name+": "+*f.DeprecationReason)
		}
	}
	assert.Equal(t, []string{"postCategory: Use category."}, deprecated)
}
