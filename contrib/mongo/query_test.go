package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/where"
)

func filterFields() fields.List {
	name := fields.New("name", fields.String)
	pages := fields.New("pages", fields.Integer)
	active := fields.New("active", fields.Bool)
	return fields.List{name, pages, active}
}

func compileFilter(t *testing.T, doc string) bson.M {
	t.Helper()
	list := filterFields()
	parsed, err := where.Parse([]byte(doc))
	require.NoError(t, err)
	bound, err := where.Bind(parsed, list)
	require.NoError(t, err)
	filter, err := compileWhere(list, bound, "")
	require.NoError(t, err)
	return filter
}

func TestCompileComparisons(t *testing.T) {
	assert.Equal(t,
		bson.M{"name": bson.M{"$eq": "go"}},
		compileFilter(t, `{"name": {"eq": "go"}}`))

	assert.Equal(t,
		bson.M{"pages": bson.M{"$gt": float64(100)}},
		compileFilter(t, `{"pages": {"gt": 100}}`))

	assert.Equal(t,
		bson.M{"pages": bson.M{"$gte": float64(100), "$lte": float64(200)}},
		compileFilter(t, `{"pages": {"between": [100, 200]}}`))

	assert.Equal(t,
		bson.M{"name": bson.M{"$in": []interface{}{"a", "b"}}},
		compileFilter(t, `{"name": {"in": ["a", "b"]}}`))

	assert.Equal(t,
		bson.M{"name": bson.M{"$nin": []interface{}{"a"}}},
		compileFilter(t, `{"name": {"notIn": ["a"]}}`))
}

func TestCompileStringOps(t *testing.T) {
	assert.Equal(t,
		bson.M{"name": primitive.Regex{Pattern: "go", Options: "i"}},
		compileFilter(t, `{"name": {"contains": "go"}}`))

	assert.Equal(t,
		bson.M{"name": primitive.Regex{Pattern: "^go", Options: "i"}},
		compileFilter(t, `{"name": {"startswith": "go"}}`))

	assert.Equal(t,
		bson.M{"name": primitive.Regex{Pattern: "go$", Options: "i"}},
		compileFilter(t, `{"name": {"endswith": "go"}}`))

	assert.Equal(t,
		bson.M{"name": bson.M{"$not": primitive.Regex{Pattern: "go", Options: "i"}}},
		compileFilter(t, `{"name": {"not_contains": "go"}}`))

	// regex metacharacters in the term are quoted
	assert.Equal(t,
		bson.M{"name": primitive.Regex{Pattern: `a\.\*b`, Options: "i"}},
		compileFilter(t, `{"name": {"contains": "a.*b"}}`))
}

func TestCompileNullAndBool(t *testing.T) {
	assert.Equal(t,
		bson.M{"name": bson.M{"$eq": nil}},
		compileFilter(t, `{"name": {"is_null": true}}`))

	assert.Equal(t,
		bson.M{"name": bson.M{"$ne": nil}},
		compileFilter(t, `{"name": {"is_not_null": true}}`))

	assert.Equal(t,
		bson.M{"active": bson.M{"$eq": true}},
		compileFilter(t, `{"active": {"is_true": true}}`))
}

func TestCompileCombinators(t *testing.T) {
	filter := compileFilter(t, `{"or": [{"name": {"eq": "go"}}, {"pages": {"lt": 10}}]}`)
	assert.Equal(t, bson.M{"$or": []bson.M{
		{"name": bson.M{"$eq": "go"}},
		{"pages": bson.M{"$lt": float64(10)}},
	}}, filter)

	filter = compileFilter(t, `{"not": {"name": {"eq": "go"}}}`)
	assert.Equal(t, bson.M{"$nor": []bson.M{{"name": bson.M{"$eq": "go"}}}}, filter)

	filter = compileFilter(t, `{"name": {"eq": "go"}, "pages": {"gt": 5}}`)
	assert.Equal(t, bson.M{"$and": []bson.M{
		{"name": bson.M{"$eq": "go"}},
		{"pages": bson.M{"$gt": float64(5)}},
	}}, filter)
}

func TestCompileSearch(t *testing.T) {
	list := filterFields()
	filter, err := compileWhere(list, nil, "term")
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$or": []bson.M{
		{"name": primitive.Regex{Pattern: "term", Options: "i"}},
	}}, filter)
}

func TestCompileEmpty(t *testing.T) {
	list := filterFields()
	filter, err := compileWhere(list, nil, "")
	require.NoError(t, err)
	assert.Equal(t, bson.M{}, filter)
}
