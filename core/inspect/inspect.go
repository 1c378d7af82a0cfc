/*Package inspect derives admin field descriptors from Go struct types by
reflection.

A backend adapter registers a model as a Go struct; inspect turns the struct
into the field list the admin works with. Behavior is tuned with the `admin`
struct tag:

	type Article struct {
		ID        string    `json:"id" admin:"pk"`
		Title     string    `json:"title" admin:"required"`
		Status    string    `json:"status" admin:"kind=enum,values=draft|published"`
		Body      string    `json:"body" admin:"kind=text,label=Story"`
		AuthorID  string    `json:"author_id" admin:"kind=has_one,identity=author"`
		CreatedAt time.Time `json:"created_at"`
		Secret    string    `json:"-" admin:"-"`
	}

Each adapter picks the struct tag its storage layer uses for names, for
example `db` for SQL columns or `bson` for document keys; the `json` tag is
the fallback for the exposed API name.
*/
package inspect

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gobuffalo/flect"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/fields"
)

// Options controls how a struct is inspected
type Options struct {
	// NameTag is the struct tag holding the backend storage name, for
	// example "db" or "bson". The json tag always provides the API name.
	NameTag string
}

// Model is the full introspection result for one struct type
type Model struct {
	// Name is the singular model name derived from the type name
	Name string
	// Identity is the URL identity derived from the type name
	Identity string
	// PKName is the API name of the primary key field
	PKName string
	Fields fields.List
}

// Inspect derives a Model from the given struct value or pointer to struct.
// It panics on invalid static configuration, consistent with view
// registration happening once at startup.
func Inspect(v interface{}, opts Options) Model {
	m, err := inspect(v, opts)
	if err != nil {
		panic(fmt.Sprintf("inspect: %s", err))
	}
	return m
}

func inspect(v interface{}, opts Options) (Model, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return Model{}, fmt.Errorf("model must be a struct, got %T", v)
	}

	model := Model{
		Name:     flect.Underscore(t.Name()),
		Identity: core.Identity(t.Name()),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		tag := parseTag(sf.Tag.Get("admin"))
		if tag.skip {
			continue
		}

		name := tagName(sf, "json")
		if name == "-" {
			continue
		}
		column := name
		if opts.NameTag != "" {
			if c := tagName(sf, opts.NameTag); c != "" && c != "-" {
				column = c
			}
		}

		f, err := fieldFor(sf.Type)
		if err != nil {
			return Model{}, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		f.Name = name
		f.Column = column
		f.Label = core.Labelize(name)

		if err := tag.apply(&f); err != nil {
			return Model{}, fmt.Errorf("field %s: %w", sf.Name, err)
		}

		if tag.pk || (model.PKName == "" && strings.EqualFold(sf.Name, "id")) {
			model.PKName = name
			// primary keys are assigned by the backend
			f.ExcludeFromCreate = true
			f.ExcludeFromEdit = true
			f.Required = false
		}
		model.Fields = append(model.Fields, f)
	}

	if model.PKName == "" {
		return Model{}, fmt.Errorf("%s has no primary key, name a field ID or tag one with admin:\"pk\"", t.Name())
	}
	if err := model.Fields.Validate(); err != nil {
		return Model{}, err
	}
	return model, nil
}

// tagName returns the first comma-separated token of the given struct tag,
// falling back to the snake_case Go field name
func tagName(sf reflect.StructField, tag string) string {
	value := sf.Tag.Get(tag)
	if value == "" {
		return flect.Underscore(sf.Name)
	}
	if idx := strings.Index(value, ","); idx >= 0 {
		value = value[:idx]
	}
	if value == "" {
		return flect.Underscore(sf.Name)
	}
	return value
}

var timeType = reflect.TypeOf(time.Time{})

// fieldFor maps a Go type onto a field descriptor with kind and array flag
func fieldFor(t reflect.Type) (fields.Field, error) {
	var f fields.Field
	f.Searchable = true
	f.Orderable = true

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch {
	case t == timeType:
		f.Kind = fields.DateTime
	case t.Kind() == reflect.String:
		f.Kind = fields.String
	case t.Kind() == reflect.Bool:
		f.Kind = fields.Bool
	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64:
		f.Kind = fields.Integer
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		f.Kind = fields.Float
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		f.Kind = fields.String // []byte
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.String:
		f.Kind = fields.Tags
		f.IsArray = true
	case t.Kind() == reflect.Slice:
		elem, err := fieldFor(t.Elem())
		if err != nil {
			return f, err
		}
		f.Kind = elem.Kind
		f.IsArray = true
	case t.Kind() == reflect.Map || t.Kind() == reflect.Struct:
		f.Kind = fields.JSON
		f.Searchable = false
		f.Orderable = false
	default:
		return f, fmt.Errorf("unsupported type %s", t)
	}
	return f, nil
}

type adminTag struct {
	skip    bool
	pk      bool
	options map[string]string
}

// parseTag parses the admin struct tag, a comma-separated list of key=value
// options and bare flags
func parseTag(raw string) adminTag {
	tag := adminTag{options: map[string]string{}}
	if raw == "-" {
		tag.skip = true
		return tag
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value := part, ""
		if idx := strings.Index(part, "="); idx >= 0 {
			key, value = part[:idx], part[idx+1:]
		}
		if key == "pk" {
			tag.pk = true
			continue
		}
		tag.options[key] = value
	}
	return tag
}

func (tag adminTag) apply(f *fields.Field) error {
	for key, value := range tag.options {
		switch key {
		case "kind":
			f.Kind = fields.Kind(value)
		case "label":
			f.Label = value
		case "required":
			f.Required = value != "false"
		case "searchable":
			f.Searchable = value != "false"
		case "orderable":
			f.Orderable = value != "false"
		case "values":
			f.Kind = fields.Enum
			f.Values = fields.EnumValuesOf(strings.Split(value, "|")...)
		case "identity":
			f.Identity = value
		case "hidden":
			f.ExcludeFromList = true
			f.ExcludeFromDetail = true
		case "readonly":
			f.ExcludeFromCreate = true
			f.ExcludeFromEdit = true
		default:
			return fmt.Errorf("unknown admin tag option %q", key)
		}
	}
	return nil
}
