package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/adminkit/contrib/memory"
	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/admin"
	"github.com/relabs-tech/adminkit/core/where"
)

type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" admin:"required"`
	Author    string    `json:"author"`
	Pages     int       `json:"pages"`
	Published bool      `json:"published"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

func seededView(t *testing.T) *memory.View {
	t.Helper()
	view := memory.NewView(Book{})
	ctx := context.Background()
	seed := []map[string]interface{}{
		{"id": "1", "title": "The Go Programming Language", "author": "Donovan", "pages": float64(380), "published": true, "tags": []interface{}{"go", "reference"}, "created_at": "2015-10-26T00:00:00Z"},
		{"id": "2", "title": "Learning Go", "author": "Bodner", "pages": float64(375), "published": true, "tags": []interface{}{"go"}, "created_at": "2021-03-02T00:00:00Z"},
		{"id": "3", "title": "Database Internals", "author": "Petrov", "pages": float64(280), "published": false, "tags": []interface{}{"databases"}, "created_at": "2019-09-13T00:00:00Z"},
	}
	for _, item := range seed {
		_, err := view.Create(ctx, item)
		require.NoError(t, err)
	}
	return view
}

func bind(t *testing.T, view *memory.View, doc string) where.Predicate {
	t.Helper()
	parsed, err := where.Parse([]byte(doc))
	require.NoError(t, err)
	bound, err := where.Bind(parsed, view.Fields())
	require.NoError(t, err)
	return bound
}

func titles(items []map[string]interface{}) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item["title"].(string)
	}
	return out
}

func TestViewModel(t *testing.T) {
	view := memory.NewView(Book{})
	assert.Equal(t, "book", view.Identity())
	assert.Equal(t, "Book", view.Label())
	assert.Equal(t, "id", view.PKName())
	_, ok := view.Fields().Get("title")
	assert.True(t, ok)
}

func TestFindAllWhere(t *testing.T) {
	view := seededView(t)
	ctx := context.Background()

	cases := map[string][]string{
		`{"author": {"eq": "Bodner"}}`:                          {"Learning Go"},
		`{"author": {"neq": "Bodner"}}`:                         {"The Go Programming Language", "Database Internals"},
		`{"pages": {"gt": 300}}`:                                {"The Go Programming Language", "Learning Go"},
		`{"pages": {"between": [270, 300]}}`:                    {"Database Internals"},
		`{"pages": {"not_between": [270, 300]}}`:                {"The Go Programming Language", "Learning Go"},
		`{"author": {"in": ["Petrov", "Bodner"]}}`:              {"Learning Go", "Database Internals"},
		`{"author": {"notIn": ["Petrov", "Bodner"]}}`:           {"The Go Programming Language"},
		`{"title": {"contains": "go"}}`:                         {"The Go Programming Language", "Learning Go"},
		`{"title": {"not_contains": "go"}}`:                     {"Database Internals"},
		`{"title": {"startswith": "learning"}}`:                 {"Learning Go"},
		`{"title": {"endswith": "internals"}}`:                  {"Database Internals"},
		`{"published": {"is_true": true}}`:                      {"The Go Programming Language", "Learning Go"},
		`{"published": {"is_false": true}}`:                     {"Database Internals"},
		`{"created_at": {"lt": "2019-01-01"}}`:                  {"The Go Programming Language"},
		`{"pages": {"or": [{"lt": 300}, {"gt": 378}]}}`:         {"The Go Programming Language", "Database Internals"},
		`{"not": {"title": {"contains": "go"}}}`:                {"Database Internals"},
		`{"tags": {"eq": "databases"}}`:                         {"Database Internals"},
		`{"and": [{"pages": {"gt": 300}}, {"published": {"eq": true}}, {"author": {"eq": "Bodner"}}]}`: {"Learning Go"},
	}
	for doc, expected := range cases {
		items, err := view.FindAll(ctx, admin.Query{Where: bind(t, view, doc), Limit: 100})
		require.NoError(t, err, doc)
		assert.ElementsMatch(t, expected, titles(items), doc)
	}
}

func TestFindAllSearch(t *testing.T) {
	view := seededView(t)
	items, err := view.FindAll(context.Background(), admin.Query{Search: "internals", Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{"Database Internals"}, titles(items))
}

func TestFindAllOrderAndPaging(t *testing.T) {
	view := seededView(t)
	ctx := context.Background()

	items, err := view.FindAll(ctx, admin.Query{Order: []admin.Order{{Field: "pages"}}, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{"Database Internals", "Learning Go", "The Go Programming Language"}, titles(items))

	items, err = view.FindAll(ctx, admin.Query{Order: []admin.Order{{Field: "pages", Desc: true}}, Skip: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Learning Go"}, titles(items))

	items, err = view.FindAll(ctx, admin.Query{Skip: 10, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCount(t *testing.T) {
	view := seededView(t)
	ctx := context.Background()

	total, err := view.Count(ctx, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	total, err = view.Count(ctx, bind(t, view, `{"published": {"eq": true}}`), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	total, err = view.Count(ctx, nil, "go")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestCRUD(t *testing.T) {
	view := memory.NewView(Book{})
	ctx := context.Background()

	created, err := view.Create(ctx, map[string]interface{}{"title": "New Book"})
	require.NoError(t, err)
	pk := created["id"].(string)
	assert.NotEmpty(t, pk, "primary key is generated")

	item, err := view.FindByPK(ctx, pk)
	require.NoError(t, err)
	assert.Equal(t, "New Book", item["title"])

	_, err = view.FindByPK(ctx, "unknown")
	assert.ErrorIs(t, err, core.ErrNotFound)

	updated, err := view.Edit(ctx, pk, map[string]interface{}{"author": "Someone"})
	require.NoError(t, err)
	assert.Equal(t, "New Book", updated["title"], "partial edit keeps other fields")
	assert.Equal(t, "Someone", updated["author"])

	_, err = view.Edit(ctx, "unknown", map[string]interface{}{"author": "X"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	deleted, err := view.Delete(ctx, []string{pk, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = view.FindByPK(ctx, pk)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFindByPKs(t *testing.T) {
	view := seededView(t)
	items, err := view.FindByPKs(context.Background(), []string{"3", "1", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Database Internals", "The Go Programming Language"}, titles(items))
}

func TestEditCannotChangePK(t *testing.T) {
	view := seededView(t)
	updated, err := view.Edit(context.Background(), "1", map[string]interface{}{"id": "99", "author": "X"})
	require.NoError(t, err)
	assert.Equal(t, "1", updated["id"])
}
