package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/executor"
	language "github.com/hanpama/inkgraph/internal/language"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
	"github.com/hanpama/inkgraph/internal/store/sqlstore"
)

// callLog records store calls as "collection.Method".
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(c string) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

func (l *callLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.calls
	l.calls = nil
	return out
}

type counted[T any] struct {
	store.Collection[T]
	name string
	log  *callLog
}

func (c counted[T]) FindByID(ctx context.Context, id string) (T, error) {
	c.log.add(c.name + ".FindByID")
	return c.Collection.FindByID(ctx, id)
}

func (c counted[T]) FindByIDs(ctx context.Context, ids []string) ([]T, error) {
	c.log.add(c.name + ".FindByIDs")
	return c.Collection.FindByIDs(ctx, ids)
}

func (c counted[T]) Find(ctx context.Context, q store.Query) ([]T, error) {
	c.log.add(c.name + ".Find")
	return c.Collection.Find(ctx, q)
}

func (c counted[T]) Count(ctx context.Context, f store.Filter) (int, error) {
	c.log.add(c.name + ".Count")
	return c.Collection.Count(ctx, f)
}

func (c counted[T]) Exists(ctx context.Context, id string) (bool, error) {
	c.log.add(c.name + ".Exists")
	return c.Collection.Exists(ctx, id)
}

func (c counted[T]) Create(ctx context.Context, v T) (T, error) {
	c.log.add(c.name + ".Create")
	return c.Collection.Create(ctx, v)
}

type countingStore struct {
	inner store.Store
	log   *callLog
}

func (s *countingStore) Users() store.Collection[*model.User] {
	return counted[*model.User]{s.inner.Users(), "users", s.log}
}

func (s *countingStore) Posts() store.Collection[*model.Post] {
	return counted[*model.Post]{s.inner.Posts(), "posts", s.log}
}

func (s *countingStore) Comments() store.Collection[*model.Comment] {
	return counted[*model.Comment]{s.inner.Comments(), "comments", s.log}
}

func (s *countingStore) Close() error { return s.inner.Close() }

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	raw    *sqlstore.Store
	log    *callLog
	exec   *executor.Executor
	signer *auth.HMACSigner
	hasher auth.Hasher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var seq, tick int
	raw, err := sqlstore.Open(context.Background(), sqlstore.SQLite, ":memory:",
		sqlstore.WithIDs(func() string { seq++; return fmt.Sprintf("id-%03d", seq) }),
		sqlstore.WithClock(func() time.Time { tick++; return epoch.Add(time.Duration(tick) * time.Second) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	require.NoError(t, raw.Migrate(context.Background()))

	h := &harness{
		t:      t,
		raw:    raw,
		log:    &callLog{},
		signer: auth.NewHMACSigner("test-secret", time.Hour),
		hasher: auth.NewBcryptHasher(4),
	}
	r := &Resolver{Store: &countingStore{inner: raw, log: h.log}, Hasher: h.hasher, Signer: h.signer}
	s, err := NewSchema(r)
	require.NoError(t, err)
	h.exec = executor.NewExecutor(NewRuntime(s), s, executor.WithErrorPresenter(present))
	return h
}

func present(_ context.Context, err error, path executor.Path) executor.GraphQLError {
	msg, ext, _ := apperr.Present(err)
	return executor.GraphQLError{Message: msg, Path: path, Extensions: ext}
}

// do validates and runs query as caller with fresh loaders.
func (h *harness) do(caller *auth.Identity, query string, vars map[string]any) *executor.ExecutionResult {
	h.t.Helper()
	doc, parseErr, invalid := language.LoadQuery(h.exec.Schema().AST(), query)
	require.Nil(h.t, parseErr)
	require.Empty(h.t, invalid)
	ctx := WithLoaders(context.Background(), NewLoaders(&countingStore{inner: h.raw, log: h.log}))
	ctx = auth.WithIdentity(ctx, caller)
	return h.exec.ExecuteRequest(ctx, doc, "", vars, nil)
}

func (h *harness) user(name string, role model.Role) *model.User {
	h.t.Helper()
	hash, err := h.hasher.Hash("secret123")
	require.NoError(h.t, err)
	u, err := h.raw.Users().Create(context.Background(), &model.User{Name: name, Email: name + "@example.com", Role: role, PasswordHash: hash})
	require.NoError(h.t, err)
	return u
}

func (h *harness) post(author *model.User, title string, category model.Category) *model.Post {
	h.t.Helper()
	p, err := h.raw.Posts().Create(context.Background(), &model.Post{AuthorID: author.ID, Title: title, Body: "a body long enough", Category: category})
	require.NoError(h.t, err)
	return p
}

func (h *harness) comment(author *model.User, post *model.Post, text string) *model.Comment {
	h.t.Helper()
	c, err := h.raw.Comments().Create(context.Background(), &model.Comment{AuthorID: author.ID, PostID: post.ID, Text: text})
	require.NoError(h.t, err)
	return c
}

func identity(u *model.User) *auth.Identity {
	return &auth.Identity{SubjectID: u.ID, Role: u.Role, Email: u.Email}
}

func dataJSON(t *testing.T, res *executor.ExecutionResult) string {
	t.Helper()
	b, err := json.Marshal(res.Data)
	require.NoError(t, err)
	return string(b)
}

func codes(res *executor.ExecutionResult) []string {
	var out []string
	for _, e := range res.Errors {
		c, _ := e.Extensions["code"].(string)
		out = append(out, c)
	}
	return out
}
