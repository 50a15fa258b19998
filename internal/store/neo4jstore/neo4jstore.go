// Package neo4jstore implements store.Store on Neo4j. Users, posts and
// comments are :User, :Post and :Comment nodes; authorship and replies are
// kept as (:User)-[:AUTHORED]->(:Post), (:User)-[:WROTE]->(:Comment) and
// (:Comment)-[:ON]->(:Post) relationships.
package neo4jstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/hanpama/inkgraph/internal/dataloader"
	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
)

const backend = "neo4j"

type Option func(*Store)

func WithClock(now func() time.Time) Option   { return func(s *Store) { s.now = now } }
func WithIDs(newID func() string) Option      { return func(s *Store) { s.newID = newID } }
func WithQueryTimeout(d time.Duration) Option { return func(s *Store) { s.timeout = d } }
func WithCloser(close func() error) Option    { return func(s *Store) { s.closer = close } }

type Store struct {
	runner  Runner
	now     func() time.Time
	newID   func() string
	timeout time.Duration
	closer  func() error

	users    *collection[*model.User]
	posts    *collection[*model.Post]
	comments *collection[*model.Comment]
}

var _ store.Store = (*Store)(nil)

func New(runner Runner, opts ...Option) *Store {
	s := &Store{runner: runner, now: time.Now, newID: store.NewID, timeout: 5 * time.Second}
	for _, o := range opts {
		o(s)
	}
	s.users = &collection[*model.User]{s: s, l: userLabel}
	s.posts = &collection[*model.Post]{s: s, l: postLabel}
	s.comments = &collection[*model.Comment]{s: s, l: commentLabel}
	return s
}

func (s *Store) Users() store.Collection[*model.User]       { return s.users }
func (s *Store) Posts() store.Collection[*model.Post]       { return s.posts }
func (s *Store) Comments() store.Collection[*model.Comment] { return s.comments }

func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

var constraints = []string{
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (n:User) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT user_email IF NOT EXISTS FOR (n:User) REQUIRE n.email IS UNIQUE",
	"CREATE CONSTRAINT post_id IF NOT EXISTS FOR (n:Post) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT comment_id IF NOT EXISTS FOR (n:Comment) REQUIRE n.id IS UNIQUE",
}

// Migrate creates the uniqueness constraints.
func (s *Store) Migrate(ctx context.Context) error {
	for _, c := range constraints {
		if _, err := s.run(ctx, "schema", "migrate", c, nil); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) run(ctx context.Context, collection, op, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := s.runner.Run(ctx, cypher, params)
	eventbus.Publish(ctx, events.StoreQuery{
		Backend:    backend,
		Collection: collection,
		Op:         op,
		Start:      start,
		Duration:   time.Since(start),
		Err:        err,
	})
	return res, err
}

// label maps one entity kind onto a node label.
type label[T any] struct {
	name       string
	collection string
	filters    []string
	props      func(T) map[string]any
	decode     func(map[string]any) (T, error)
	id         func(T) string
	stamp      func(v T, id string, at time.Time) T
	// create is the CREATE statement; it must bind $props and return n.
	create string
}

type collection[T any] struct {
	s *Store
	l label[T]
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
	return dataloader.OrderByKeys(ids, rows, c.l.id), nil
}

func (c *collection[T]) Find(ctx context.Context, q store.Query) ([]T, error) {
	where, params, err := c.where(q.Filter)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n:%s)%s RETURN n ORDER BY %s", c.l.name, where, orderBy(q.Sort))
	if q.Skip > 0 {
		b.WriteString(" SKIP $skip")
		params["skip"] = int64(q.Skip)
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT $limit")
		params["limit"] = int64(q.Limit)
	}
	res, err := c.s.run(ctx, c.l.collection, "find", b.String(), params)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.l.collection, err)
	}
	out := make([]T, 0, len(res.Records))
	for _, rec := range res.Records {
		v, err := c.node(rec)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", c.l.collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *collection[T]) Count(ctx context.Context, f store.Filter) (int, error) {
	where, params, err := c.where(f)
	if err != nil {
		return 0, err
	}
	res, err := c.s.run(ctx, c.l.collection, "count", fmt.Sprintf("MATCH (n:%s)%s RETURN count(n) AS total", c.l.name, where), params)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.l.collection, err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	total, _, err := neo4j.GetRecordValue[int64](res.Records[0], "total")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.l.collection, err)
	}
	return int(total), nil
}

func (c *collection[T]) Exists(ctx context.Context, id string) (bool, error) {
	n, err := c.Count(ctx, store.Filter{IDs: []string{id}})
	return n > 0, err
}

func (c *collection[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	row := c.l.stamp(v, c.s.newID(), c.s.now().UTC())
	props := c.l.props(row)
	params := map[string]any{"props": props}
	for k, val := range props {
		params[k] = val
	}
	res, err := c.s.run(ctx, c.l.collection, "create", c.l.create, params)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", c.l.collection, err)
	}
	if len(res.Records) == 0 {
		return zero, fmt.Errorf("create %s: referenced node not found", c.l.collection)
	}
	return row, nil
}

func (c *collection[T]) node(rec *neo4j.Record) (T, error) {
	var zero T
	n, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "n")
	if err != nil {
		return zero, err
	}
	return c.l.decode(n.Props)
}

func (c *collection[T]) where(f store.Filter) (string, map[string]any, error) {
	params := map[string]any{}
	if err := f.Check(c.l.collection, c.l.filters...); err != nil {
		return "", nil, err
	}
	var conds []string
	add := func(cond, key string, value any) {
		conds = append(conds, cond)
		params[key] = value
	}
	if len(f.IDs) > 0 {
		add("n.id IN $ids", "ids", f.IDs)
	}
	if f.IDBefore != "" {
		add("n.id < $idBefore", "idBefore", f.IDBefore)
	}
	if f.Email != "" {
		add("n.email = $email", "email", f.Email)
	}
	if f.Category != "" {
		add("n.category = $category", "category", string(f.Category))
	}
	if f.TitleContains != "" {
		add("toLower(n.title) CONTAINS $titleContains", "titleContains", strings.ToLower(f.TitleContains))
	}
	if len(f.AuthorIDs) > 0 {
		add("n.authorId IN $authorIds", "authorIds", f.AuthorIDs)
	}
	if len(f.PostIDs) > 0 {
		add("n.postId IN $postIds", "postIds", f.PostIDs)
	}
	if len(conds) == 0 {
		return "", params, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), params, nil
}

func orderBy(s store.Sort) string {
	switch s {
	case store.SortCreatedAsc:
		return "n.createdAt ASC, n.id ASC"
	case store.SortIDDesc:
		return "n.id DESC"
	default:
		return "n.createdAt DESC, n.id DESC"
	}
}
