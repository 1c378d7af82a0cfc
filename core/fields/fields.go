/*Package fields implements the unified field descriptors the admin exposes
for every backend model. Backend adapters convert their native schema
information into a List of Field values; everything above the adapter layer
only ever sees these descriptors.
*/
package fields

import (
	"fmt"

	"github.com/relabs-tech/adminkit/core"
)

// Kind is the unique key describing how a field is rendered and filtered
type Kind string

// all supported field kinds
const (
	Bool       Kind = "bool"
	Integer    Kind = "integer"
	Float      Kind = "float"
	Decimal    Kind = "decimal"
	String     Kind = "string"
	Text       Kind = "text"
	Tags       Kind = "tags"
	Email      Kind = "email"
	Phone      Kind = "phone"
	URL        Kind = "url"
	Color      Kind = "color"
	Enum       Kind = "enum"
	DateTime   Kind = "datetime"
	Date       Kind = "date"
	Time       Kind = "time"
	JSON       Kind = "json"
	File       Kind = "file"
	Image      Kind = "image"
	HasOne     Kind = "has_one"
	HasMany    Kind = "has_many"
	Collection Kind = "collection"
)

// IsNumeric returns true for the number-valued kinds
func (k Kind) IsNumeric() bool {
	return k == Integer || k == Float || k == Decimal
}

// IsTextual returns true for the kinds whose values are free text. These
// are the kinds covered by full-text search.
func (k Kind) IsTextual() bool {
	switch k {
	case String, Text, Email, Phone, URL, Color, Tags:
		return true
	}
	return false
}

// IsTemporal returns true for the date and time kinds
func (k Kind) IsTemporal() bool {
	return k == DateTime || k == Date || k == Time
}

// IsRelation returns true for the relation kinds
func (k Kind) IsRelation() bool {
	return k == HasOne || k == HasMany
}

// IsFile returns true for the file kinds
func (k Kind) IsFile() bool {
	return k == File || k == Image
}

// EnumValue is one selectable value of an enum field
type EnumValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Field describes one attribute of a backend model in backend-agnostic
// terms. Column is the backend storage name, Name the JSON name exposed by
// the admin API; they are usually identical.
type Field struct {
	Name     string `json:"name"`
	Column   string `json:"column,omitempty"`
	Label    string `json:"label"`
	Kind     Kind   `json:"kind"`
	Required bool   `json:"required"`
	IsArray  bool   `json:"is_array,omitempty"`

	Searchable bool `json:"searchable"`
	Orderable  bool `json:"orderable"`

	ExcludeFromList   bool `json:"exclude_from_list,omitempty"`
	ExcludeFromDetail bool `json:"exclude_from_detail,omitempty"`
	ExcludeFromCreate bool `json:"exclude_from_create,omitempty"`
	ExcludeFromEdit   bool `json:"exclude_from_edit,omitempty"`

	// Values holds the selectable values of an enum field
	Values []EnumValue `json:"values,omitempty"`
	// Identity is the foreign view identity of a relation field
	Identity string `json:"identity,omitempty"`
	// Fields holds the nested descriptors of a collection field
	Fields []Field `json:"fields,omitempty"`
}

// New returns a field of the given kind with label and flag defaults
// applied
func New(name string, kind Kind) Field {
	return Field{
		Name:       name,
		Column:     name,
		Label:      core.Labelize(name),
		Kind:       kind,
		Searchable: true,
		Orderable:  true,
	}
}

// ExcludedFrom returns true if the field is hidden for the given request
// action
func (f Field) ExcludedFrom(action core.RequestAction) bool {
	switch action {
	case core.ActionList, core.ActionAPI:
		return f.ExcludeFromList
	case core.ActionDetail:
		return f.ExcludeFromDetail
	case core.ActionCreate:
		return f.ExcludeFromCreate
	case core.ActionEdit:
		return f.ExcludeFromEdit
	}
	return false
}

// List is an ordered field collection with lookup helpers
type List []Field

// Get returns the field with the given name; ok is false if the list has
// no such field
func (l List) Get(name string) (Field, bool) {
	for _, f := range l {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the names of all fields in order
func (l List) Names() []string {
	names := make([]string, len(l))
	for i, f := range l {
		names[i] = f.Name
	}
	return names
}

// ForAction returns the fields visible for the given request action
func (l List) ForAction(action core.RequestAction) List {
	var out List
	for _, f := range l {
		if f.ExcludedFrom(action) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Searchables returns the names of all searchable fields
func (l List) Searchables() []string {
	var out []string
	for _, f := range l {
		if f.Searchable && !f.Kind.IsRelation() && !f.Kind.IsFile() {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate checks the list for configuration mistakes. It is called once
// when a view is registered, not per request.
func (l List) Validate() error {
	seen := map[string]bool{}
	for _, f := range l {
		if f.Name == "" {
			return fmt.Errorf("field without a name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
		if f.Kind == "" {
			return fmt.Errorf("field %s has no kind", f.Name)
		}
		if f.Kind.IsRelation() && f.Identity == "" {
			return fmt.Errorf("relation field %s needs a foreign identity", f.Name)
		}
		if f.Kind == Enum && len(f.Values) == 0 {
			return fmt.Errorf("enum field %s has no values", f.Name)
		}
		if f.Kind == Collection && len(f.Fields) == 0 {
			return fmt.Errorf("collection field %s has no nested fields", f.Name)
		}
	}
	return nil
}

// EnumValuesOf builds enum values from a plain list of strings, using the
// labelized string as name
func EnumValuesOf(values ...string) []EnumValue {
	out := make([]EnumValue, len(values))
	for i, v := range values {
		out[i] = EnumValue{Name: core.Labelize(v), Value: v}
	}
	return out
}
