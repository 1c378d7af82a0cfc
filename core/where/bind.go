package where

import (
	"fmt"
	"strconv"
	"time"

	"github.com/relabs-tech/adminkit/core/fields"
)

// ValidationError reports a filter that parsed but does not fit the model:
// unknown field, operator unsupported for the field kind, or a literal of
// the wrong shape.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "where: " + e.Message
	}
	return fmt.Sprintf("where: %s: %s", e.Path, e.Message)
}

func validationErrorf(path, format string, args ...interface{}) error {
	return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Bind validates the predicate tree against the field list and returns a
// copy with all literals coerced to the field kinds. Numbers become float64,
// datetime values time.Time, booleans bool. A nil predicate binds to nil.
func Bind(p Predicate, list fields.List) (Predicate, error) {
	if p == nil {
		return nil, nil
	}
	return bind(p, list)
}

func bind(p Predicate, list fields.List) (Predicate, error) {
	switch node := p.(type) {
	case And:
		out := make([]Predicate, len(node.Predicates))
		for i, sub := range node.Predicates {
			bound, err := bind(sub, list)
			if err != nil {
				return nil, err
			}
			out[i] = bound
		}
		return And{Predicates: out}, nil
	case Or:
		out := make([]Predicate, len(node.Predicates))
		for i, sub := range node.Predicates {
			bound, err := bind(sub, list)
			if err != nil {
				return nil, err
			}
			out[i] = bound
		}
		return Or{Predicates: out}, nil
	case Not:
		bound, err := bind(node.Predicate, list)
		if err != nil {
			return nil, err
		}
		return Not{Predicate: bound}, nil
	case Comparison:
		return bindComparison(node, list)
	}
	return nil, validationErrorf("", "unexpected predicate node %T", p)
}

func bindComparison(c Comparison, list fields.List) (Predicate, error) {
	field, ok := list.Get(c.Field)
	if !ok {
		return nil, validationErrorf(c.Field, "unknown field")
	}
	path := c.Field + "." + string(c.Op)

	if c.Op.IsUnary() {
		if c.Op == IsTrue || c.Op == IsFalse {
			if field.Kind != fields.Bool {
				return nil, validationErrorf(path, "operator requires a bool field")
			}
		}
		return Comparison{Field: c.Field, Op: c.Op}, nil
	}

	if c.Op.IsStringOp() {
		if !field.Kind.IsTextual() && field.Kind != fields.Enum {
			return nil, validationErrorf(path, "operator requires a text field")
		}
		s, ok := c.Value.(string)
		if !ok {
			return nil, validationErrorf(path, "expected a string value")
		}
		return Comparison{Field: c.Field, Op: c.Op, Value: s}, nil
	}

	switch c.Op {
	case In, NotIn:
		items, ok := c.Value.([]interface{})
		if !ok {
			return nil, validationErrorf(path, "expected an array of values")
		}
		if len(items) == 0 {
			return nil, validationErrorf(path, "expected a non-empty array")
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			coerced, err := coerce(item, field, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = coerced
		}
		return Comparison{Field: c.Field, Op: c.Op, Value: out}, nil

	case Between, NotBetween:
		items, ok := c.Value.([]interface{})
		if !ok || len(items) != 2 {
			return nil, validationErrorf(path, "expected a [low, high] pair")
		}
		lo, err := coerce(items[0], field, path+"[0]")
		if err != nil {
			return nil, err
		}
		hi, err := coerce(items[1], field, path+"[1]")
		if err != nil {
			return nil, err
		}
		return Comparison{Field: c.Field, Op: c.Op, Value: []interface{}{lo, hi}}, nil

	default:
		coerced, err := coerce(c.Value, field, path)
		if err != nil {
			return nil, err
		}
		return Comparison{Field: c.Field, Op: c.Op, Value: coerced}, nil
	}
}

// temporal layouts accepted for datetime, date and time fields
var temporalLayouts = map[fields.Kind][]string{
	fields.DateTime: {time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"},
	fields.Date:     {"2006-01-02", time.RFC3339},
	fields.Time:     {"15:04:05", "15:04"},
}

// coerce converts a parsed JSON literal into the Go value matching the
// field kind
func coerce(value interface{}, field fields.Field, path string) (interface{}, error) {
	if value == nil {
		return nil, validationErrorf(path, "null is not a comparison value, use is_null")
	}

	switch {
	case field.Kind.IsNumeric():
		switch v := value.(type) {
		case float64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, validationErrorf(path, "cannot convert %q to a number", v)
			}
			return f, nil
		}
		return nil, validationErrorf(path, "expected a number")

	case field.Kind.IsTemporal():
		s, ok := value.(string)
		if !ok {
			return nil, validationErrorf(path, "expected a date/time string")
		}
		for _, layout := range temporalLayouts[field.Kind] {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, validationErrorf(path, "cannot parse %q as %s", s, field.Kind)

	case field.Kind == fields.Bool:
		b, ok := value.(bool)
		if !ok {
			return nil, validationErrorf(path, "expected a boolean")
		}
		return b, nil

	case field.Kind == fields.JSON:
		return value, nil

	default:
		// every remaining kind compares as text, including enum values and
		// relation keys
		switch v := value.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
		return nil, validationErrorf(path, "expected a string")
	}
}
