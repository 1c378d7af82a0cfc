package core

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestOperations_JSON_Unmarshalling(t *testing.T) {

	type Object struct {
		Operations []Operation `json:"operations"`
	}
	var object Object
	jsonRead := `{"operations":["create","read","update","list","action","export"]}`
	err := json.Unmarshal([]byte(jsonRead), &object)
	if err != nil {
		t.Fatal(err)
	}

	jsonRead = `{"operations":["invalid"]}`
	err = json.Unmarshal([]byte(jsonRead), &object)
	if err == nil {
		t.Fatal("invalid operation accepted")
	}

}

func TestRequestAction_IsForm(t *testing.T) {
	for _, action := range []RequestAction{ActionCreate, ActionEdit} {
		if !action.IsForm() {
			t.Fatalf("%s should be a form action", action)
		}
	}
	for _, action := range []RequestAction{ActionAPI, ActionList, ActionDetail} {
		if action.IsForm() {
			t.Fatalf("%s should not be a form action", action)
		}
	}
}

func TestPropertyHeaderConversion(t *testing.T) {
	cases := map[string]string{
		"content_type": "Content-Type",
		"name":         "Name",
		"size":         "Size",
	}
	for property, header := range cases {
		if got := PropertyNameToCanonicalHeader(property); got != header {
			t.Fatalf("expected %s, got %s", header, got)
		}
		if got := CanonicalHeaderToPropertyName(header); got != property {
			t.Fatalf("expected %s, got %s", property, got)
		}
	}
}
