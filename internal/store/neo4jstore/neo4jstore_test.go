package neo4jstore

import (
	"context"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
)

type statement struct {
	cypher string
	params map[string]any
}

// fakeRunner records statements and answers each with the next queued
// result.
type fakeRunner struct {
	got     []statement
	results []*neo4j.EagerResult
	err     error
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	f.got = append(f.got, statement{cypher, params})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &neo4j.EagerResult{}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func nodes(props ...map[string]any) *neo4j.EagerResult {
	res := &neo4j.EagerResult{Keys: []string{"n"}}
	for _, p := range props {
		res.Records = append(res.Records, &neo4j.Record{Keys: []string{"n"}, Values: []any{neo4j.Node{Props: p}}})
	}
	return res
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func postProps(id string) map[string]any {
	return map[string]any{
		"id": id, "authorId": "u1", "category": "TECHNOLOGY", "title": "T", "body": "B",
		"createdAt": epoch.UnixNano(),
	}
}

func TestFindBuildsCypher(t *testing.T) {
	r := &fakeRunner{results: []*neo4j.EagerResult{nodes(postProps("p2"), postProps("p1"))}}
	s := New(r)

	got, err := s.Posts().Find(context.Background(), store.Query{
		Filter: store.Filter{Category: model.CategoryTechnology, TitleContains: "Go", IDBefore: "p9"},
		Sort:   store.SortIDDesc,
		Skip:   2,
		Limit:  3,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, &model.Post{ID: "p2", AuthorID: "u1", Category: model.CategoryTechnology, Title: "T", Body: "B", CreatedAt: epoch}, got[0])

	require.Len(t, r.got, 1)
	assert.Equal(t, "MATCH (n:Post) WHERE n.id < $idBefore AND n.category = $category AND toLower(n.title) CONTAINS $titleContains"+
		" RETURN n ORDER BY n.id DESC SKIP $skip LIMIT $limit", r.got[0].cypher)
	assert.Equal(t, map[string]any{
		"idBefore": "p9", "category": "TECHNOLOGY", "titleContains": "go", "skip": int64(2), "limit": int64(3),
	}, r.got[0].params)
}

func TestFindByIDsAligned(t *testing.T) {
	r := &fakeRunner{results: []*neo4j.EagerResult{nodes(postProps("p1"), postProps("p3"))}}
	got, err := New(r).Posts().FindByIDs(context.Background(), []string{"p3", "p2", "p1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "p3", got[0].ID)
	assert.Nil(t, got[1])
	assert.Equal(t, "p1", got[2].ID)
}

func TestCount(t *testing.T) {
	r := &fakeRunner{results: []*neo4j.EagerResult{{
		Keys:    []string{"total"},
		Records: []*neo4j.Record{{Keys: []string{"total"}, Values: []any{int64(7)}}},
	}}}
	n, err := New(r).Comments().Count(context.Background(), store.Filter{PostIDs: []string{"p1"}})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "MATCH (n:Comment) WHERE n.postId IN $postIds RETURN count(n) AS total", r.got[0].cypher)
}

func TestCreateCommentLinksNodes(t *testing.T) {
	r := &fakeRunner{results: []*neo4j.EagerResult{nodes(map[string]any{})}}
	s := New(r, WithIDs(func() string { return "c1" }), WithClock(func() time.Time { return epoch }))

	c, err := s.Comments().Create(context.Background(), &model.Comment{AuthorID: "u1", PostID: "p1", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, &model.Comment{ID: "c1", AuthorID: "u1", PostID: "p1", Text: "hi", CreatedAt: epoch}, c)

	stmt := r.got[0]
	assert.Contains(t, stmt.cypher, "CREATE (a)-[:WROTE]->(n:Comment)-[:ON]->(p)")
	assert.Equal(t, "u1", stmt.params["authorId"])
	assert.Equal(t, "p1", stmt.params["postId"])
	assert.Equal(t, epoch.UnixNano(), stmt.params["props"].(map[string]any)["createdAt"])
}

func TestCreateFailsWhenReferenceMissing(t *testing.T) {
	r := &fakeRunner{}
	_, err := New(r).Posts().Create(context.Background(), &model.Post{AuthorID: "ghost", Title: "T"})
	require.Error(t, err)
}

func TestUnsupportedFilter(t *testing.T) {
	r := &fakeRunner{}
	_, err := New(r).Users().Find(context.Background(), store.Query{Filter: store.Filter{PostIDs: []string{"p"}}})
	require.ErrorIs(t, err, store.ErrUnsupportedFilter)
	assert.Empty(t, r.got)
}

func TestMigrate(t *testing.T) {
	r := &fakeRunner{}
	require.NoError(t, New(r).Migrate(context.Background()))
	require.Len(t, r.got, len(constraints))
	assert.Contains(t, r.got[1].cypher, "n.email IS UNIQUE")
}

func TestDecodeRejectsWrongTypes(t *testing.T) {
	r := &fakeRunner{results: []*neo4j.EagerResult{nodes(map[string]any{"id": 12, "createdAt": epoch.UnixNano()})}}
	_, err := New(r).Users().FindByID(context.Background(), "x")
	require.Error(t, err)
}
