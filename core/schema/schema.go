// Package schema validates JSON documents against JSON-Schema definitions.
// The admin uses it to validate create and edit payloads before they reach
// a backend view.
package schema

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/goccy/go-json"

	"github.com/xeipuuv/gojsonschema"
)

// Validator validates JSON documents against a set of compiled schemas,
// addressed by their $id
type Validator struct {
	compiled map[string]*gojsonschema.Schema
}

// NewValidatorFromFS creates a new Validator from the json files in fsys.
// Files at the root become top-level schemas, files under refs/ become
// shared references.
func NewValidatorFromFS(fsys fs.FS) (*Validator, error) {
	readAll := func(pattern string) ([]string, error) {
		names, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		var strs []string
		for _, name := range names {
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return nil, fmt.Errorf("cannot read schema file %s: %w", name, err)
			}
			strs = append(strs, string(data))
		}
		return strs, nil
	}

	schemas, err := readAll("*.json")
	if err != nil {
		return nil, err
	}
	refs, err := readAll("refs/*.json")
	if err != nil {
		return nil, err
	}
	return NewValidator(schemas, refs)
}

// NewValidator compiles the given top-level schemas. Every schema must carry
// a $id. Top-level schemas cannot reference each other; anything they
// reference must be in refs.
func NewValidator(schemas []string, refs []string) (*Validator, error) {
	type idOnly struct {
		ID string `json:"$id"`
	}
	v := Validator{compiled: make(map[string]*gojsonschema.Schema)}
	for _, str := range schemas {
		var s idOnly
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			return nil, fmt.Errorf("parse error '%v' in schema: '%s'", err, str)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("schema does not contain $id: '%s'", str)
		}
		sl := gojsonschema.NewSchemaLoader()
		for _, ref := range refs {
			if err := sl.AddSchemas(gojsonschema.NewStringLoader(ref)); err != nil {
				return nil, fmt.Errorf("cannot add ref: %s", err)
			}
		}
		compiled, err := sl.Compile(gojsonschema.NewStringLoader(str))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %s", s.ID, err)
		}
		v.compiled[s.ID] = compiled
	}
	return &v, nil
}

// HasSchema returns true if schemaID is known
func (v *Validator) HasSchema(schemaID string) bool {
	_, ok := v.compiled[schemaID]
	return ok
}

// ValidateStruct validates the given object against schemaID. A nil return
// means the object is valid.
func (v *Validator) ValidateStruct(object interface{}, schemaID string) error {
	return v.validate(gojsonschema.NewGoLoader(object), schemaID)
}

// ValidateString validates the given json document against schemaID. A nil
// return means the document is valid.
func (v *Validator) ValidateString(document, schemaID string) error {
	return v.validate(gojsonschema.NewStringLoader(document), schemaID)
}

func (v *Validator) validate(loader gojsonschema.JSONLoader, schemaID string) error {
	compiled, ok := v.compiled[schemaID]
	if !ok {
		return fmt.Errorf("there is no schema %s", schemaID)
	}
	result, err := compiled.Validate(loader)
	if err != nil {
		return fmt.Errorf("cannot validate with schema %s: %s", schemaID, err)
	}
	if !result.Valid() {
		msg := "the document is not valid:\n"
		for _, e := range result.Errors() {
			msg += fmt.Sprintf("- %s\n", e)
		}
		return errors.New(msg)
	}
	return nil
}
