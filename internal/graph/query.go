package graph

import (
	"context"
	"fmt"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/pagination"
	"github.com/hanpama/inkgraph/internal/store"
)

func (r *Resolver) getUsers(ctx context.Context, _ any, _ map[string]any) (any, error) {
	users, err := r.Store.Users().Find(ctx, store.Query{Sort: store.SortCreatedDesc})
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return users, nil
}

func (r *Resolver) getUserByID(ctx context.Context, _ any, args map[string]any) (any, error) {
	u, err := r.Store.Users().FindByID(ctx, stringArg(args, "id"))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, apperr.NewNotFoundError("User not found")
	}
	return u, nil
}

func (r *Resolver) getPostByID(ctx context.Context, _ any, args map[string]any) (any, error) {
	p, err := r.Store.Posts().FindByID(ctx, stringArg(args, "id"))
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if p == nil {
		return nil, apperr.NewNotFoundError("Post not found")
	}
	return p, nil
}

func postFilter(args map[string]any) store.Filter {
	return store.Filter{
		Category:      model.Category(stringArg(args, "category")),
		TitleContains: stringArg(args, "search"),
	}
}

func (r *Resolver) getPosts(ctx context.Context, _ any, args map[string]any) (any, error) {
	return pagination.Offset(ctx, r.Store.Posts(), postFilter(args), pagination.OffsetArgs{
		Limit:  optionalInt(args, "limit"),
		Offset: optionalInt(args, "offset"),
	})
}

func (r *Resolver) getPostsConnection(ctx context.Context, _ any, args map[string]any) (any, error) {
	return pagination.Cursor(ctx, r.Store.Posts(), postFilter(args), pagination.CursorArgs{
		First: optionalInt(args, "first"),
		After: optionalString(args, "after"),
	}, func(p *model.Post) string { return p.ID })
}

// me runs behind @isAuth, so the identity is always present.
func (r *Resolver) me(ctx context.Context, _ any, _ map[string]any) (any, error) {
	id := auth.IdentityFrom(ctx)
	if id == nil {
		return nil, nil
	}
	l, err := LoadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	return deferThunk(l.UserByID.Load(ctx, id.SubjectID)), nil
}
