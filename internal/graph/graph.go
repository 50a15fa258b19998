// Package graph is the resolution graph of the API: the schema, the
// resolvers bound to it, and the per-operation loaders they share.
//
// Scalar fields are plain projections of the model structs. Relationship
// fields are async and load through the operation's Loaders, so every
// sibling at one depth lands in a single store query per edge. Root fields
// talk to the store directly.
package graph

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/directive"
	"github.com/hanpama/inkgraph/internal/introspection"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/pagination"
	schema "github.com/hanpama/inkgraph/internal/schema"
	"github.com/hanpama/inkgraph/internal/store"
)

//go:embed schema.graphql
var SDL string

// Resolver holds the collaborators shared by every operation. It is
// read-only once the schema is built.
type Resolver struct {
	Store  store.Store
	Hasher auth.Hasher
	Signer auth.Signer
}

type binding struct {
	typ, field string
	resolve    schema.ResolveFunc
	async      bool
}

// NewSchema builds the executable schema with r's resolvers bound, the
// access directives installed and introspection enabled. Every object field
// must be bound.
func NewSchema(r *Resolver) (*schema.Schema, error) {
	s, err := schema.BuildFromSDL("schema.graphql", SDL)
	if err != nil {
		return nil, fmt.Errorf("graph schema: %w", err)
	}
	for _, b := range r.bindings() {
		if err := s.Bind(b.typ, b.field, b.resolve, b.async); err != nil {
			return nil, fmt.Errorf("graph schema: %w", err)
		}
	}
	if err := introspection.Install(s); err != nil {
		return nil, fmt.Errorf("graph schema: %w", err)
	}
	if unbound := s.Unbound(); len(unbound) > 0 {
		return nil, fmt.Errorf("graph schema: unbound fields: %s", strings.Join(unbound, ", "))
	}
	if _, err := directive.Apply(s); err != nil {
		return nil, fmt.Errorf("graph schema: %w", err)
	}
	return s, nil
}

func (r *Resolver) bindings() []binding {
	async := func(typ, field string, fn schema.ResolveFunc) binding {
		return binding{typ: typ, field: field, resolve: fn, async: true}
	}
	sync := func(typ, field string, fn schema.ResolveFunc) binding {
		return binding{typ: typ, field: field, resolve: fn}
	}
	type (
		edge       = pagination.Edge[*model.Post]
		connection = *pagination.Connection[*model.Post]
	)

	return []binding{
		async("Query", "getUsers", r.getUsers),
		async("Query", "getUserById", r.getUserByID),
		async("Query", "getPosts", r.getPosts),
		async("Query", "getPostsConnection", r.getPostsConnection),
		async("Query", "getPostById", r.getPostByID),
		async("Query", "me", r.me),

		async("Mutation", "signup", r.signup),
		async("Mutation", "login", r.login),
		async("Mutation", "createUser", r.createUser),
		async("Mutation", "createPost", r.createPost),
		async("Mutation", "createComment", r.createComment),

		sync("User", "id", project(func(u *model.User) any { return u.ID })),
		sync("User", "name", project(func(u *model.User) any { return u.Name })),
		sync("User", "email", project(func(u *model.User) any { return u.Email })),
		sync("User", "role", project(func(u *model.User) any { return u.Role })),
		sync("User", "createdAt", project(func(u *model.User) any { return u.CreatedAt })),
		async("User", "posts", userPosts),

		sync("Post", "id", project(func(p *model.Post) any { return p.ID })),
		sync("Post", "title", project(func(p *model.Post) any { return p.Title })),
		sync("Post", "body", project(func(p *model.Post) any { return p.Body })),
		sync("Post", "category", project(func(p *model.Post) any { return p.Category })),
		sync("Post", "postCategory", project(func(p *model.Post) any { return p.Category })),
		sync("Post", "createdAt", project(func(p *model.Post) any { return p.CreatedAt })),
		sync("Post", "updatedAt", project(func(p *model.Post) any { return p.UpdatedAt })),
		async("Post", "author", postAuthor),
		async("Post", "comments", postComments),

		sync("Comment", "id", project(func(c *model.Comment) any { return c.ID })),
		sync("Comment", "text", project(func(c *model.Comment) any { return c.Text })),
		sync("Comment", "createdAt", project(func(c *model.Comment) any { return c.CreatedAt })),
		sync("Comment", "updatedAt", project(func(c *model.Comment) any { return c.UpdatedAt })),
		async("Comment", "author", commentAuthor),
		async("Comment", "post", commentPost),

		sync("PostEdge", "cursor", project(func(e edge) any { return e.Cursor })),
		sync("PostEdge", "node", project(func(e edge) any { return e.Node })),
		sync("PageInfo", "endCursor", project(func(p pagination.PageInfo) any { return p.EndCursor })),
		sync("PageInfo", "hasNextPage", project(func(p pagination.PageInfo) any { return p.HasNextPage })),
		sync("PostConnection", "edges", project(func(c connection) any { return c.Edges })),
		sync("PostConnection", "pageInfo", project(func(c connection) any { return c.PageInfo })),
		sync("PostConnection", "totalCount", project(func(c connection) any { return c.TotalCount })),

		sync("AuthPayload", "token", project(func(p *AuthPayload) any { return p.Token })),
		sync("AuthPayload", "user", project(func(p *AuthPayload) any { return p.User })),
	}
}

// project adapts a getter on a concrete source type to a resolver.
func project[T any](get func(T) any) schema.ResolveFunc {
	return func(_ context.Context, source any, _ map[string]any) (any, error) {
		v, err := sourceAs[T](source)
		if err != nil {
			return nil, err
		}
		return get(v), nil
	}
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func optionalString(args map[string]any, name string) *string {
	s, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &s
}

func optionalInt(args map[string]any, name string) *int {
	n, ok := args[name].(int)
	if !ok {
		return nil
	}
	return &n
}
