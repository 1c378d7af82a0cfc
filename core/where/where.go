/*Package where implements the JSON filter mini-language of the admin API.

A filter is a JSON object combining comparisons with and/or/not:

	{"and": [{"name": {"eq": "go"}}, {"age": {"gt": 3}}]}
	{"age": {"or": [{"lt": 10}, {"gt": 60}]}}
	{"deleted_at": {"is_null": true}}

Parsing turns the JSON document into a predicate tree. Binding validates the
tree against a field list and coerces the literals to the field kinds. Each
backend adapter lowers the bound tree into its native query representation.
*/
package where

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Op is a comparison operator of the filter language
type Op string

// all supported comparison operators
const (
	Eq            Op = "eq"
	Neq           Op = "neq"
	Lt            Op = "lt"
	Le            Op = "le"
	Gt            Op = "gt"
	Ge            Op = "ge"
	In            Op = "in"
	NotIn         Op = "not_in"
	Contains      Op = "contains"
	NotContains   Op = "not_contains"
	StartsWith    Op = "startswith"
	NotStartsWith Op = "not_startswith"
	EndsWith      Op = "endswith"
	NotEndsWith   Op = "not_endswith"
	IsNull        Op = "is_null"
	IsNotNull     Op = "is_not_null"
	IsTrue        Op = "is_true"
	IsFalse       Op = "is_false"
	Between       Op = "between"
	NotBetween    Op = "not_between"
)

// aliases maps the camelCase operator spellings onto the canonical ones
var aliases = map[string]Op{
	"ne":            Neq,
	"lte":           Le,
	"gte":           Ge,
	"notIn":         NotIn,
	"notContains":   NotContains,
	"startsWith":    StartsWith,
	"notStartsWith": NotStartsWith,
	"endsWith":      EndsWith,
	"notEndsWith":   NotEndsWith,
	"isNull":        IsNull,
	"isNotNull":     IsNotNull,
	"isTrue":        IsTrue,
	"isFalse":       IsFalse,
	"notBetween":    NotBetween,
}

var operators = map[Op]bool{
	Eq: true, Neq: true, Lt: true, Le: true, Gt: true, Ge: true,
	In: true, NotIn: true, Contains: true, NotContains: true,
	StartsWith: true, NotStartsWith: true, EndsWith: true, NotEndsWith: true,
	IsNull: true, IsNotNull: true, IsTrue: true, IsFalse: true,
	Between: true, NotBetween: true,
}

// lookupOp resolves an operator name, accepting camelCase aliases
func lookupOp(name string) (Op, bool) {
	if op, ok := aliases[name]; ok {
		return op, true
	}
	op := Op(name)
	return op, operators[op]
}

// IsUnary returns true for the operators that take no comparison value
func (o Op) IsUnary() bool {
	return o == IsNull || o == IsNotNull || o == IsTrue || o == IsFalse
}

// IsStringOp returns true for the substring operators
func (o Op) IsStringOp() bool {
	switch o {
	case Contains, NotContains, StartsWith, NotStartsWith, EndsWith, NotEndsWith:
		return true
	}
	return false
}

// Predicate is a node of the filter tree. The concrete types are And, Or,
// Not and Comparison.
type Predicate interface {
	isPredicate()
}

// And is the conjunction of its sub-predicates
type And struct {
	Predicates []Predicate
}

// Or is the disjunction of its sub-predicates
type Or struct {
	Predicates []Predicate
}

// Not negates its sub-predicate
type Not struct {
	Predicate Predicate
}

// Comparison applies an operator to a field. For In/NotIn the value is a
// slice, for Between/NotBetween a two-element slice, for the unary operators
// it is nil.
type Comparison struct {
	Field string
	Op    Op
	Value interface{}
}

func (And) isPredicate()        {}
func (Or) isPredicate()         {}
func (Not) isPredicate()        {}
func (Comparison) isPredicate() {}

// ParseError reports an unparseable filter document. Path names the
// offending node.
type ParseError struct {
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "where: " + e.Message
	}
	return fmt.Sprintf("where: %s: %s", e.Path, e.Message)
}

func parseErrorf(path, format string, args ...interface{}) error {
	return &ParseError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Parse parses a JSON filter document into a predicate tree. An empty or
// all-whitespace document yields a nil predicate.
func Parse(data []byte) (Predicate, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, parseErrorf("", "invalid json: %v", err)
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return nil, parseErrorf("", "filter must be a json object")
	}
	if len(obj) == 0 {
		return nil, nil
	}
	return parseObject(obj, "")
}

// parseObject parses one filter object. Multiple keys combine with and.
func parseObject(obj map[string]interface{}, path string) (Predicate, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var preds []Predicate
	for _, key := range keys {
		value := obj[key]
		p, err := parseKey(key, value, childPath(path, key))
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func parseKey(key string, value interface{}, path string) (Predicate, error) {
	switch key {
	case "and", "or":
		list, ok := value.([]interface{})
		if !ok {
			return nil, parseErrorf(path, "%s expects an array", key)
		}
		if len(list) == 0 {
			return nil, parseErrorf(path, "%s expects a non-empty array", key)
		}
		var preds []Predicate
		for i, item := range list {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, parseErrorf(fmt.Sprintf("%s[%d]", path, i), "expected a filter object")
			}
			p, err := parseObject(obj, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		if key == "or" {
			return Or{Predicates: preds}, nil
		}
		return And{Predicates: preds}, nil

	case "not":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return nil, parseErrorf(path, "not expects a filter object")
		}
		p, err := parseObject(obj, path)
		if err != nil {
			return nil, err
		}
		return Not{Predicate: p}, nil

	default:
		return parseField(key, value, path)
	}
}

// parseField parses the expression under a field key. A bare scalar is an
// equality comparison; an object either holds operators or keeps the field
// in scope below nested combinators.
func parseField(field string, value interface{}, path string) (Predicate, error) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		// {"name": "go"} is shorthand for {"name": {"eq": "go"}}
		if _, isList := value.([]interface{}); isList {
			return nil, parseErrorf(path, "an array needs an explicit operator such as in or between")
		}
		return Comparison{Field: field, Op: Eq, Value: value}, nil
	}
	if len(obj) == 0 {
		return nil, parseErrorf(path, "empty comparison object")
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var preds []Predicate
	for _, key := range keys {
		sub := obj[key]
		switch key {
		case "and", "or":
			list, ok := sub.([]interface{})
			if !ok {
				return nil, parseErrorf(childPath(path, key), "%s expects an array", key)
			}
			if len(list) == 0 {
				return nil, parseErrorf(childPath(path, key), "%s expects a non-empty array", key)
			}
			var inner []Predicate
			for i, item := range list {
				p, err := parseField(field, item, fmt.Sprintf("%s.%s[%d]", path, key, i))
				if err != nil {
					return nil, err
				}
				inner = append(inner, p)
			}
			if key == "or" {
				preds = append(preds, Or{Predicates: inner})
			} else {
				preds = append(preds, And{Predicates: inner})
			}
		case "not":
			p, err := parseField(field, sub, childPath(path, key))
			if err != nil {
				return nil, err
			}
			preds = append(preds, Not{Predicate: p})
		default:
			op, ok := lookupOp(key)
			if !ok {
				return nil, parseErrorf(childPath(path, key), "unknown operator %q", key)
			}
			preds = append(preds, Comparison{Field: field, Op: op, Value: sub})
		}
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
