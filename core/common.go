package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/gobuffalo/flect"
)

// Operation represents a modifying admin operation on a model resource,
// one of Create, Read, Update, Delete, List, Action, Export
type Operation string

// all supported admin operations
const (
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationList   Operation = "list"
	OperationAction Operation = "action"
	OperationExport Operation = "export"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	switch *o {
	case OperationCreate, OperationRead, OperationUpdate, OperationDelete,
		OperationList, OperationAction, OperationExport:
		return nil
	default:
		return fmt.Errorf("%s is not a valid Operation", s)
	}
}

// RequestAction tells a field or a serializer what the requested data is
// used for. Field visibility flags are evaluated against it.
type RequestAction string

// all supported request actions
const (
	ActionAPI    RequestAction = "api"
	ActionList   RequestAction = "list"
	ActionDetail RequestAction = "detail"
	ActionCreate RequestAction = "create"
	ActionEdit   RequestAction = "edit"
)

// IsForm returns true for the actions that render or accept form data
func (a RequestAction) IsForm() bool {
	return a == ActionCreate || a == ActionEdit
}

// ErrNotFound is returned by model views when no item matches the
// requested primary key.
var ErrNotFound = errors.New("no such item")

// Identity returns the URL identity for a model name. Example:
// "UserProfile" becomes "user-profile".
//
// This is the algorithm used to create idiomatic admin routes.
func Identity(name string) string {
	return flect.Dasherize(name)
}

// Labelize returns a human readable label for a model or field name.
// Example: "created_at" becomes "Created At".
func Labelize(name string) string {
	return flect.Titleize(name)
}

// Plural returns the plural form of the passed singular string.
func Plural(singular string) string {
	return flect.Pluralize(singular)
}

// PropertyNameToCanonicalHeader converts JSON property names to their
// canonical header representation. Example: "content_type" becomes
// "Content-Type".
func PropertyNameToCanonicalHeader(property string) string {
	parts := strings.Split(property, "_")
	for i := 0; i < len(parts); i++ {
		s := parts[i]
		if len(s) == 0 {
			continue
		}
		s = strings.ToLower(s)
		runes := []rune(s)
		r := runes[0]
		if 'a' <= r && r <= 'z' {
			r += 'A' - 'a'
			runes[0] = r
		}
		parts[i] = string(runes)
	}
	return strings.Join(parts, "-")
}

// CanonicalHeaderToPropertyName converts canonical header names to JSON
// property names. Example: "Content-Type" becomes "content_type".
func CanonicalHeaderToPropertyName(header string) string {
	return strings.ReplaceAll(strings.ToLower(header), "-", "_")
}
