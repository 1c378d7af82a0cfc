package schema_test

import (
	"testing"

	"github.com/relabs-tech/adminkit/core/schema"
)

const (
	refString = `{ "type" : "string",
	  "$id" : "https://adminkit.example.com/refs/string.json"}`
	refMaxLength = `{ "$id" : "https://adminkit.example.com/refs/shortname.json",
	  "maxLength" : 8 }`

	articleSchema = `
	{ "$id" : "https://adminkit.example.com/article.json",
	  "type": "object",
	  "required": ["title"],
	  "properties": {
		"title": { "allOf": [
			{ "$ref" : "https://adminkit.example.com/refs/string.json" },
			{ "$ref" : "https://adminkit.example.com/refs/shortname.json" }
		]}
	  }
	}`
)

func TestValidateString(t *testing.T) {
	v, err := schema.NewValidator([]string{articleSchema}, []string{refString, refMaxLength})
	if err != nil {
		t.Fatalf("no error expected when creating validator, got %v", err)
	}

	schemaID := "https://adminkit.example.com/article.json"

	if err := v.ValidateString(`{"title":"go"}`, schemaID); err != nil {
		t.Fatalf("document expected to be valid, got: %v", err)
	}
	if err := v.ValidateString(`{"title":"a very long title"}`, schemaID); err == nil {
		t.Fatalf("document expected to be invalid")
	}
	if err := v.ValidateString(`{}`, schemaID); err == nil {
		t.Fatalf("document without required title expected to be invalid")
	}
}

func TestValidateStruct(t *testing.T) {
	v, err := schema.NewValidator([]string{articleSchema}, []string{refString, refMaxLength})
	if err != nil {
		t.Fatalf("no error expected when creating validator, got %v", err)
	}

	schemaID := "https://adminkit.example.com/article.json"

	type article struct {
		Title string `json:"title"`
	}
	if err := v.ValidateStruct(article{Title: "go"}, schemaID); err != nil {
		t.Fatalf("struct expected to be valid, got: %v", err)
	}

	type misnamed struct {
		Title string `json:"headline"`
	}
	if err := v.ValidateStruct(misnamed{Title: "go"}, schemaID); err == nil {
		t.Fatalf("struct without required title expected to be invalid")
	}
}

func TestHasSchema(t *testing.T) {
	v, err := schema.NewValidator([]string{articleSchema}, []string{refString, refMaxLength})
	if err != nil {
		t.Fatalf("no error expected when creating validator, got %v", err)
	}
	if !v.HasSchema("https://adminkit.example.com/article.json") {
		t.Fatal("schema expected to be available")
	}
	if v.HasSchema("https://adminkit.example.com/unknown.json") {
		t.Fatal("unknown schema not expected to be available")
	}
}
