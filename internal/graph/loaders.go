package graph

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/inkgraph/internal/dataloader"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
)

// Loaders is the set of batch loaders of one operation.
type Loaders struct {
	UserByID         *dataloader.Loader[string, *model.User]
	PostByID         *dataloader.Loader[string, *model.Post]
	CommentsByPostID *dataloader.Loader[string, []*model.Comment]
	PostsByAuthorID  *dataloader.Loader[string, []*model.Post]
}

// NewLoaders returns loaders with empty caches. Call it once per operation.
func NewLoaders(st store.Store, opts ...dataloader.Option) *Loaders {
	return &Loaders{
		UserByID:         NewUserByIDLoader(st, opts...),
		PostByID:         NewPostByIDLoader(st, opts...),
		CommentsByPostID: NewCommentsByPostIDLoader(st, opts...),
		PostsByAuthorID:  NewPostsByAuthorIDLoader(st, opts...),
	}
}

func NewUserByIDLoader(st store.Store, opts ...dataloader.Option) *dataloader.Loader[string, *model.User] {
	return dataloader.New("userById", st.Users().FindByIDs, opts...)
}

func NewPostByIDLoader(st store.Store, opts ...dataloader.Option) *dataloader.Loader[string, *model.Post] {
	return dataloader.New("postById", st.Posts().FindByIDs, opts...)
}

// NewCommentsByPostIDLoader loads the comments of each post, oldest first.
func NewCommentsByPostIDLoader(st store.Store, opts ...dataloader.Option) *dataloader.Loader[string, []*model.Comment] {
	return dataloader.New("commentsByPostId", func(ctx context.Context, postIDs []string) ([][]*model.Comment, error) {
		rows, err := st.Comments().Find(ctx, store.Query{
			Filter: store.Filter{PostIDs: postIDs},
			Sort:   store.SortCreatedAsc,
		})
		if err != nil {
			return nil, err
		}
		return dataloader.GroupByKeys(postIDs, rows, func(c *model.Comment) string { return c.PostID }), nil
	}, opts...)
}

// NewPostsByAuthorIDLoader loads the posts of each author, newest first.
func NewPostsByAuthorIDLoader(st store.Store, opts ...dataloader.Option) *dataloader.Loader[string, []*model.Post] {
	return dataloader.New("postsByAuthorId", func(ctx context.Context, authorIDs []string) ([][]*model.Post, error) {
		rows, err := st.Posts().Find(ctx, store.Query{
			Filter: store.Filter{AuthorIDs: authorIDs},
			Sort:   store.SortCreatedDesc,
		})
		if err != nil {
			return nil, err
		}
		return dataloader.GroupByKeys(authorIDs, rows, func(p *model.Post) string { return p.AuthorID }), nil
	}, opts...)
}

// Dispatch flushes every loader concurrently and waits for all of them.
func (l *Loaders) Dispatch(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { l.UserByID.Dispatch(ctx); return nil })
	g.Go(func() error { l.PostByID.Dispatch(ctx); return nil })
	g.Go(func() error { l.CommentsByPostID.Dispatch(ctx); return nil })
	g.Go(func() error { l.PostsByAuthorID.Dispatch(ctx); return nil })
	_ = g.Wait()
}

type loadersKey struct{}

var errNoLoaders = errors.New("graph: no loaders in context")

// WithLoaders returns a copy of ctx carrying l.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey{}, l)
}

// LoadersFrom returns the loaders carried by ctx.
func LoadersFrom(ctx context.Context) (*Loaders, error) {
	l, _ := ctx.Value(loadersKey{}).(*Loaders)
	if l == nil {
		return nil, errNoLoaders
	}
	return l, nil
}
