package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hanpama/inkgraph/internal/dataloader"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
)

type scanner interface {
	Scan(dest ...any) error
}

// table maps one entity kind onto its SQL table.
type table[T any] struct {
	name    string
	columns []string
	filters []string
	// column backing each supported filter field
	filterColumns map[string]string
	scan          func(scanner) (T, error)
	values        func(T) []any
	id            func(T) string
	// stamp returns a copy of v carrying id and createdAt.
	stamp func(v T, id string, createdAt time.Time) T
}

type collection[T any] struct {
	s *Store
	t table[T]
}

var _ store.Collection[*model.User] = (*collection[*model.User])(nil)

func newCollection[T any](s *Store, t table[T]) *collection[T] {
	return &collection[T]{s: s, t: t}
}

func (c *collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	rows, err := c.Find(ctx, store.Query{Filter: store.Filter{IDs: []string{id}}, Limit: 1})
	if err != nil || len(rows) == 0 {
		return zero, err
	}
	return rows[0], nil
}

func (c *collection[T]) FindByIDs(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	rows, err := c.Find(ctx, store.Query{Filter: store.Filter{IDs: ids}})
	if err != nil {
		return nil, err
	}
	return dataloader.OrderByKeys(ids, rows, c.t.id), nil
}

func (c *collection[T]) Find(ctx context.Context, q store.Query) ([]T, error) {
	where, args, err := c.where(q.Filter)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s ORDER BY %s", strings.Join(c.t.columns, ", "), c.t.name, where, orderBy(q.Sort))
	b.WriteString(c.s.dialect.limit(q.Limit, q.Skip))

	out := []T{}
	err = c.s.query(ctx, c.t.name, "find", b.String(), args, func(r *sql.Rows) error {
		v, err := c.t.scan(r)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.t.name, err)
	}
	return out, nil
}

func (c *collection[T]) Count(ctx context.Context, f store.Filter) (int, error) {
	where, args, err := c.where(f)
	if err != nil {
		return 0, err
	}
	var n int
	err = c.s.query(ctx, c.t.name, "count", "SELECT COUNT(*) FROM "+c.t.name+where, args, func(r *sql.Rows) error {
		return r.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.t.name, err)
	}
	return n, nil
}

func (c *collection[T]) Exists(ctx context.Context, id string) (bool, error) {
	var found bool
	q := "SELECT 1 FROM " + c.t.name + " WHERE id = ?" + c.s.dialect.limit(1, 0)
	err := c.s.query(ctx, c.t.name, "exists", q, []any{id}, func(*sql.Rows) error {
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", c.t.name, err)
	}
	return found, nil
}

func (c *collection[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	row := c.t.stamp(v, c.s.newID(), c.s.now().UTC())
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(c.t.columns)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", c.t.name, strings.Join(c.t.columns, ", "), marks)
	if _, err := c.s.exec(ctx, c.t.name, "create", q, c.t.values(row)...); err != nil {
		return zero, fmt.Errorf("create %s: %w", c.t.name, err)
	}
	return row, nil
}

func (c *collection[T]) where(f store.Filter) (string, []any, error) {
	if err := f.Check(c.t.name, c.t.filters...); err != nil {
		return "", nil, err
	}
	var (
		conds []string
		args  []any
	)
	in := func(field string, values []string) {
		conds = append(conds, fmt.Sprintf("%s IN (%s)", c.t.filterColumns[field], strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")))
		for _, v := range values {
			args = append(args, v)
		}
	}
	eq := func(field string, value any) {
		conds = append(conds, c.t.filterColumns[field]+" = ?")
		args = append(args, value)
	}
	if len(f.IDs) > 0 {
		in(store.FieldIDs, f.IDs)
	}
	if f.IDBefore != "" {
		conds = append(conds, "id < ?")
		args = append(args, f.IDBefore)
	}
	if f.Email != "" {
		eq(store.FieldEmail, f.Email)
	}
	if f.Category != "" {
		eq(store.FieldCategory, string(f.Category))
	}
	if f.TitleContains != "" {
		conds = append(conds, "LOWER("+c.t.filterColumns[store.FieldTitleContains]+") LIKE ? ESCAPE '!'")
		args = append(args, "%"+escapeLike(strings.ToLower(f.TitleContains))+"%")
	}
	if len(f.AuthorIDs) > 0 {
		in(store.FieldAuthorIDs, f.AuthorIDs)
	}
	if len(f.PostIDs) > 0 {
		in(store.FieldPostIDs, f.PostIDs)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func orderBy(s store.Sort) string {
	switch s {
	case store.SortCreatedAsc:
		return "created_at ASC, id ASC"
	case store.SortIDDesc:
		return "id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

func toNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

var userTable = table[*model.User]{
	name:    "users",
	columns: []string{"id", "name", "email", "role", "password_hash", "created_at", "updated_at"},
	filters: store.UserFilters,
	filterColumns: map[string]string{
		store.FieldIDs:   "id",
		store.FieldEmail: "email",
	},
	scan: func(r scanner) (*model.User, error) {
		var (
			u       model.User
			created int64
			updated sql.NullInt64
		)
		if err := r.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &created, &updated); err != nil {
			return nil, err
		}
		u.CreatedAt = time.Unix(0, created).UTC()
		u.UpdatedAt = fromNanos(updated)
		return &u, nil
	},
	values: func(u *model.User) []any {
		return []any{u.ID, u.Name, u.Email, string(u.Role), u.PasswordHash, u.CreatedAt.UnixNano(), toNanos(u.UpdatedAt)}
	},
	id: func(u *model.User) string { return u.ID },
	stamp: func(u *model.User, id string, at time.Time) *model.User {
		c := *u
		c.ID, c.CreatedAt = id, at
		return &c
	},
}

var postTable = table[*model.Post]{
	name:    "posts",
	columns: []string{"id", "author_id", "category", "title", "body", "created_at", "updated_at"},
	filters: store.PostFilters,
	filterColumns: map[string]string{
		store.FieldIDs:           "id",
		store.FieldCategory:      "category",
		store.FieldTitleContains: "title",
		store.FieldAuthorIDs:     "author_id",
	},
	scan: func(r scanner) (*model.Post, error) {
		var (
			p       model.Post
			created int64
			updated sql.NullInt64
		)
		if err := r.Scan(&p.ID, &p.AuthorID, &p.Category, &p.Title, &p.Body, &created, &updated); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(0, created).UTC()
		p.UpdatedAt = fromNanos(updated)
		return &p, nil
	},
	values: func(p *model.Post) []any {
		return []any{p.ID, p.AuthorID, string(p.Category), p.Title, p.Body, p.CreatedAt.UnixNano(), toNanos(p.UpdatedAt)}
	},
	id: func(p *model.Post) string { return p.ID },
	stamp: func(p *model.Post, id string, at time.Time) *model.Post {
		c := *p
		c.ID, c.CreatedAt = id, at
		return &c
	},
}

var commentTable = table[*model.Comment]{
	name:    "comments",
	columns: []string{"id", "author_id", "post_id", "body", "created_at", "updated_at"},
	filters: store.CommentFilters,
	filterColumns: map[string]string{
		store.FieldIDs:       "id",
		store.FieldAuthorIDs: "author_id",
		store.FieldPostIDs:   "post_id",
	},
	scan: func(r scanner) (*model.Comment, error) {
		var (
			c       model.Comment
			created int64
			updated sql.NullInt64
		)
		if err := r.Scan(&c.ID, &c.AuthorID, &c.PostID, &c.Text, &created, &updated); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(0, created).UTC()
		c.UpdatedAt = fromNanos(updated)
		return &c, nil
	},
	values: func(c *model.Comment) []any {
		return []any{c.ID, c.AuthorID, c.PostID, c.Text, c.CreatedAt.UnixNano(), toNanos(c.UpdatedAt)}
	},
	id: func(c *model.Comment) string { return c.ID },
	stamp: func(c *model.Comment, id string, at time.Time) *model.Comment {
		cp := *c
		cp.ID, cp.CreatedAt = id, at
		return &cp
	},
}
