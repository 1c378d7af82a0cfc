package sqlpg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/where"
)

func compileDoc(t *testing.T, list fields.List, doc string) (string, []interface{}) {
	t.Helper()
	parsed, err := where.Parse([]byte(doc))
	require.NoError(t, err)
	bound, err := where.Bind(parsed, list)
	require.NoError(t, err)
	condition, args, err := compileWhere(list, bound, "")
	require.NoError(t, err)
	return condition, args
}

func compilerFields() fields.List {
	name := fields.New("name", fields.String)
	name.Column = "name"
	pages := fields.New("pages", fields.Integer)
	tags := fields.New("tags", fields.Tags)
	tags.IsArray = true
	active := fields.New("active", fields.Bool)
	created := fields.New("created_at", fields.DateTime)
	return fields.List{name, pages, tags, active, created}
}

func TestCompileComparisons(t *testing.T) {
	list := compilerFields()

	condition, args := compileDoc(t, list, `{"name": {"eq": "go"}}`)
	assert.Equal(t, `"name" = $1`, condition)
	assert.Equal(t, []interface{}{"go"}, args)

	condition, args = compileDoc(t, list, `{"pages": {"gt": 100}}`)
	assert.Equal(t, `"pages" > $1`, condition)
	assert.Equal(t, []interface{}{int64(100)}, args, "integer columns get integer arguments")

	condition, args = compileDoc(t, list, `{"pages": {"between": [100, 200]}}`)
	assert.Equal(t, `"pages" BETWEEN $1 AND $2`, condition)
	assert.Len(t, args, 2)

	condition, args = compileDoc(t, list, `{"pages": {"notBetween": [100, 200]}}`)
	assert.Equal(t, `"pages" NOT BETWEEN $1 AND $2`, condition)
	assert.Len(t, args, 2)
}

func TestCompileIn(t *testing.T) {
	list := compilerFields()

	condition, args := compileDoc(t, list, `{"name": {"in": ["a", "b"]}}`)
	assert.Equal(t, `"name" = ANY($1)`, condition)
	require.Len(t, args, 1)

	condition, _ = compileDoc(t, list, `{"name": {"not_in": ["a", "b"]}}`)
	assert.Equal(t, `NOT ("name" = ANY($1))`, condition)

	// array columns use the overlap operator
	condition, _ = compileDoc(t, list, `{"tags": {"in": ["go"]}}`)
	assert.Equal(t, `"tags" && $1`, condition)

	condition, _ = compileDoc(t, list, `{"tags": {"eq": "go"}}`)
	assert.Equal(t, `$1 = ANY("tags")`, condition)
}

func TestCompileStringOps(t *testing.T) {
	list := compilerFields()

	condition, args := compileDoc(t, list, `{"name": {"contains": "go"}}`)
	assert.Equal(t, `"name" LIKE $1`, condition)
	assert.Equal(t, []interface{}{"%go%"}, args)

	condition, args = compileDoc(t, list, `{"name": {"startswith": "go"}}`)
	assert.Equal(t, `"name" LIKE $1`, condition)
	assert.Equal(t, []interface{}{"go%"}, args)

	condition, args = compileDoc(t, list, `{"name": {"endswith": "go"}}`)
	assert.Equal(t, `"name" LIKE $1`, condition)
	assert.Equal(t, []interface{}{"%go"}, args)

	condition, _ = compileDoc(t, list, `{"name": {"notContains": "go"}}`)
	assert.Equal(t, `NOT ("name" LIKE $1)`, condition)

	// wildcards in the term are escaped, never interpreted
	_, args = compileDoc(t, list, `{"name": {"contains": "50%_done"}}`)
	assert.Equal(t, []interface{}{`%50\%\_done%`}, args)
}

func TestCompileNullAndBool(t *testing.T) {
	list := compilerFields()

	condition, args := compileDoc(t, list, `{"name": {"is_null": true}}`)
	assert.Equal(t, `"name" IS NULL`, condition)
	assert.Empty(t, args)

	condition, _ = compileDoc(t, list, `{"name": {"is_not_null": true}}`)
	assert.Equal(t, `"name" IS NOT NULL`, condition)

	condition, _ = compileDoc(t, list, `{"active": {"is_true": true}}`)
	assert.Equal(t, `"active"`, condition)

	condition, _ = compileDoc(t, list, `{"active": {"is_false": true}}`)
	assert.Equal(t, `NOT "active"`, condition)
}

func TestCompileCombinators(t *testing.T) {
	list := compilerFields()

	condition, args := compileDoc(t, list,
		`{"and": [{"name": {"eq": "go"}}, {"or": [{"pages": {"lt": 100}}, {"pages": {"gt": 200}}]}]}`)
	assert.Equal(t, `("name" = $1 AND ("pages" < $2 OR "pages" > $3))`, condition)
	assert.Len(t, args, 3)

	condition, _ = compileDoc(t, list, `{"not": {"name": {"eq": "go"}}}`)
	assert.Equal(t, `NOT "name" = $1`, condition)
}

func TestCompileDateTimeArgs(t *testing.T) {
	list := compilerFields()
	_, args := compileDoc(t, list, `{"created_at": {"ge": "2024-05-01T00:00:00Z"}}`)
	require.Len(t, args, 1)
	_, ok := args[0].(time.Time)
	assert.True(t, ok, "datetime literals are passed as time.Time")
}

func TestCompileSearch(t *testing.T) {
	list := compilerFields()
	condition, args, err := compileWhere(list, nil, "term")
	require.NoError(t, err)
	assert.Equal(t, `("name" ILIKE $1)`, condition)
	assert.Equal(t, []interface{}{"%term%"}, args)
}

func TestCompileWhereAndSearchCombine(t *testing.T) {
	list := compilerFields()
	parsed, err := where.Parse([]byte(`{"pages": {"gt": 10}}`))
	require.NoError(t, err)
	bound, err := where.Bind(parsed, list)
	require.NoError(t, err)

	condition, args, err := compileWhere(list, bound, "go")
	require.NoError(t, err)
	assert.Equal(t, `"pages" > $1 AND ("name" ILIKE $2)`, condition)
	assert.Len(t, args, 2)
}
