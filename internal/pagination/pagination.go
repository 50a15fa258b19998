// Package pagination windows filtered store results in two modes: offset
// slicing for plain lists and cursor slicing for connections.
package pagination

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/store"
)

const (
	DefaultLimit = 10
	DefaultFirst = 5
)

// Source is the part of a store collection the paginators need.
type Source[T any] interface {
	Find(ctx context.Context, q store.Query) ([]T, error)
	Count(ctx context.Context, f store.Filter) (int, error)
}

// OffsetArgs selects an offset window. Nil fields take their defaults.
type OffsetArgs struct {
	Limit  *int
	Offset *int
}

// Offset returns up to Limit rows matching filter, newest first, after
// skipping Offset rows.
func Offset[T any](ctx context.Context, src Source[T], filter store.Filter, args OffsetArgs) ([]T, error) {
	limit, offset := DefaultLimit, 0
	if args.Limit != nil {
		limit = *args.Limit
	}
	if args.Offset != nil {
		offset = *args.Offset
	}
	var details []apperr.FieldError
	if limit < 0 {
		details = append(details, apperr.FieldError{Path: "limit", Message: "limit must not be negative"})
	}
	if offset < 0 {
		details = append(details, apperr.FieldError{Path: "offset", Message: "offset must not be negative"})
	}
	if len(details) > 0 {
		return nil, apperr.NewValidationError("Invalid pagination arguments", details...)
	}
	if limit == 0 {
		return []T{}, nil
	}
	rows, err := src.Find(ctx, store.Query{Filter: filter, Sort: store.SortCreatedDesc, Skip: offset, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("offset page: %w", err)
	}
	return rows, nil
}

// CursorArgs selects a cursor window. A nil First takes its default; a nil
// After starts at the newest row.
type CursorArgs struct {
	First *int
	After *string
}

type Edge[T any] struct {
	Cursor string
	Node   T
}

type PageInfo struct {
	// EndCursor is the cursor of the last edge, nil when there are none.
	EndCursor   *string
	HasNextPage bool
}

type Connection[T any] struct {
	Edges      []Edge[T]
	PageInfo   PageInfo
	TotalCount int
}

// Cursor returns the First rows matching filter that sort after the After
// cursor, ordered by key descending. key yields the cursor of a row and must
// be the ordering key of store.SortIDDesc. Cursors are returned as-is and
// never parsed.
func Cursor[T any](ctx context.Context, src Source[T], filter store.Filter, args CursorArgs, key func(T) string) (*Connection[T], error) {
	first := DefaultFirst
	if args.First != nil {
		first = *args.First
	}
	if first < 0 {
		return nil, apperr.NewValidationError("Invalid pagination arguments",
			apperr.FieldError{Path: "first", Message: "first must not be negative"})
	}

	window := filter
	if args.After != nil && *args.After != "" {
		window.IDBefore = *args.After
	}

	var (
		rows  []T
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = src.Find(gctx, store.Query{Filter: window, Sort: store.SortIDDesc, Limit: first + 1})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = src.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cursor page: %w", err)
	}

	conn := &Connection[T]{TotalCount: total, Edges: []Edge[T]{}}
	if len(rows) > first {
		conn.PageInfo.HasNextPage = true
		rows = rows[:first]
	}
	for _, r := range rows {
		conn.Edges = append(conn.Edges, Edge[T]{Cursor: key(r), Node: r})
	}
	if n := len(conn.Edges); n > 0 {
		end := conn.Edges[n-1].Cursor
		conn.PageInfo.EndCursor = &end
	}
	return conn, nil
}
