package inspect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/inspect"
)

type Article struct {
	ID        string    `json:"id" db:"article_id"`
	Title     string    `json:"title" admin:"required"`
	Status    string    `json:"status" admin:"kind=enum,values=draft|published"`
	Body      string    `json:"body" admin:"kind=text,label=Story"`
	Rating    float64   `json:"rating"`
	Views     int       `json:"views"`
	Published bool      `json:"published"`
	Labels    []string  `json:"labels"`
	Extra     map[string]interface{} `json:"extra"`
	AuthorID  string    `json:"author_id" admin:"kind=has_one,identity=author"`
	CreatedAt time.Time `json:"created_at" admin:"readonly"`
	Secret    string    `json:"secret" admin:"-"`
	internal  string
}

func TestInspectModel(t *testing.T) {
	m := inspect.Inspect(Article{}, inspect.Options{NameTag: "db"})

	assert.Equal(t, "article", m.Name)
	assert.Equal(t, "article", m.Identity)
	assert.Equal(t, "id", m.PKName)

	_, ok := m.Fields.Get("secret")
	assert.False(t, ok, "admin:\"-\" fields must be skipped")
	_, ok = m.Fields.Get("internal")
	assert.False(t, ok, "unexported fields must be skipped")
}

func TestInspectKinds(t *testing.T) {
	m := inspect.Inspect(Article{}, inspect.Options{})

	kinds := map[string]fields.Kind{
		"title":      fields.String,
		"status":     fields.Enum,
		"body":       fields.Text,
		"rating":     fields.Float,
		"views":      fields.Integer,
		"published":  fields.Bool,
		"labels":     fields.Tags,
		"extra":      fields.JSON,
		"author_id":  fields.HasOne,
		"created_at": fields.DateTime,
	}
	for name, kind := range kinds {
		f, ok := m.Fields.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, kind, f.Kind, name)
	}

	labels, _ := m.Fields.Get("labels")
	assert.True(t, labels.IsArray)
	extra, _ := m.Fields.Get("extra")
	assert.False(t, extra.Searchable)
}

func TestInspectTagOverrides(t *testing.T) {
	m := inspect.Inspect(Article{}, inspect.Options{NameTag: "db"})

	id, _ := m.Fields.Get("id")
	assert.Equal(t, "article_id", id.Column, "storage name comes from the db tag")
	assert.True(t, id.ExcludeFromCreate)
	assert.True(t, id.ExcludeFromEdit)

	title, _ := m.Fields.Get("title")
	assert.True(t, title.Required)
	assert.Equal(t, "title", title.Column)

	body, _ := m.Fields.Get("body")
	assert.Equal(t, "Story", body.Label)

	status, _ := m.Fields.Get("status")
	require.Len(t, status.Values, 2)
	assert.Equal(t, "draft", status.Values[0].Value)

	author, _ := m.Fields.Get("author_id")
	assert.Equal(t, "author", author.Identity)

	created, _ := m.Fields.Get("created_at")
	assert.True(t, created.ExcludeFromCreate)
	assert.True(t, created.ExcludeFromEdit)
}

func TestInspectPanicsWithoutPK(t *testing.T) {
	type NoPK struct {
		Name string `json:"name"`
	}
	assert.Panics(t, func() { inspect.Inspect(NoPK{}, inspect.Options{}) })
}

func TestInspectPKOverride(t *testing.T) {
	type Device struct {
		Serial string `json:"serial" admin:"pk"`
		Name   string `json:"name"`
	}
	m := inspect.Inspect(Device{}, inspect.Options{})
	assert.Equal(t, "serial", m.PKName)
}
