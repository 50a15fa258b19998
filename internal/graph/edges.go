package graph

import (
	"context"
	"fmt"

	"github.com/hanpama/inkgraph/internal/model"
)

func sourceAs[T any](source any) (T, error) {
	v, ok := source.(T)
	if !ok {
		return v, fmt.Errorf("graph: expected %T source, got %T", v, source)
	}
	return v, nil
}

func userPosts(ctx context.Context, source any, _ map[string]any) (any, error) {
	u, err := sourceAs[*model.User](source)
	if err != nil {
		return nil, err
	}
	l, err := LoadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	return deferThunk(l.PostsByAuthorID.Load(ctx, u.ID)), nil
}

func postAuthor(ctx context.Context, source any, _ map[string]any) (any, error) {
	p, err := sourceAs[*model.Post](source)
	if err != nil {
		return nil, err
	}
	l, err := LoadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	return deferThunk(l.UserByID.Load(ctx, p.AuthorID)), nil
}

func postComments(ctx context.Context, source any, _ map[string]any) (any, error) {
	p, err := sourceAs[*model.Post](source)
	if err != nil {
		return nil, err
	}
	l, err := LoadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	return deferThunk(l.CommentsByPostID.Load(ctx, p.ID)), nil
}

func commentAuthor(ctx context.Context, source any, _ map[string]any) (any, error) {
	c, err := sourceAs[*model.Comment](source)
	if err != nil {
		return nil, err
	}
	l, err := LoadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	return deferThunk(l.UserByID.Load(ctx, c.AuthorID)), nil
}

func commentPost(ctx context.Context, source any, _ map[string]any) (any, error) {
	c, err := sourceAs[*model.Comment](source)
	if err != nil {
		return nil, err
	}
	l, err := LoadersFrom(ctx)
	if err != nil {
		return nil, err
	}
	return deferThunk(l.PostByID.Load(ctx, c.PostID)), nil
}
