package memory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/where"
)

// eval evaluates a bound predicate tree against one stored item. Substring
// operators match case-insensitively, following the document store
// semantics this adapter stands in for.
func eval(p where.Predicate, item map[string]interface{}, list fields.List) bool {
	switch node := p.(type) {
	case nil:
		return true
	case where.And:
		for _, sub := range node.Predicates {
			if !eval(sub, item, list) {
				return false
			}
		}
		return true
	case where.Or:
		for _, sub := range node.Predicates {
			if eval(sub, item, list) {
				return true
			}
		}
		return false
	case where.Not:
		return !eval(node.Predicate, item, list)
	case where.Comparison:
		return evalComparison(node, item, list)
	}
	return false
}

func evalComparison(c where.Comparison, item map[string]interface{}, list fields.List) bool {
	field, _ := list.Get(c.Field)
	value, present := item[c.Field]

	switch c.Op {
	case where.IsNull:
		return !present || value == nil
	case where.IsNotNull:
		return present && value != nil
	case where.IsTrue:
		b, _ := value.(bool)
		return b
	case where.IsFalse:
		b, ok := value.(bool)
		return ok && !b
	}
	if !present || value == nil {
		return false
	}

	if c.Op.IsStringOp() {
		s := strings.ToLower(asString(value))
		term := strings.ToLower(c.Value.(string))
		var match bool
		switch c.Op {
		case where.Contains, where.NotContains:
			match = strings.Contains(s, term)
		case where.StartsWith, where.NotStartsWith:
			match = strings.HasPrefix(s, term)
		case where.EndsWith, where.NotEndsWith:
			match = strings.HasSuffix(s, term)
		}
		switch c.Op {
		case where.NotContains, where.NotStartsWith, where.NotEndsWith:
			return !match
		}
		return match
	}

	switch c.Op {
	case where.In, where.NotIn:
		found := false
		for _, candidate := range c.Value.([]interface{}) {
			if equalValue(field, value, candidate) {
				found = true
				break
			}
		}
		if c.Op == where.NotIn {
			return !found
		}
		return found

	case where.Between, where.NotBetween:
		pair := c.Value.([]interface{})
		inside := compareValue(field, value, pair[0]) >= 0 && compareValue(field, value, pair[1]) <= 0
		if c.Op == where.NotBetween {
			return !inside
		}
		return inside

	case where.Eq:
		return equalValue(field, value, c.Value)
	case where.Neq:
		return !equalValue(field, value, c.Value)
	case where.Lt:
		return compareValue(field, value, c.Value) < 0
	case where.Le:
		return compareValue(field, value, c.Value) <= 0
	case where.Gt:
		return compareValue(field, value, c.Value) > 0
	case where.Ge:
		return compareValue(field, value, c.Value) >= 0
	}
	return false
}

func equalValue(field fields.Field, stored, bound interface{}) bool {
	if field.IsArray {
		// array fields match when any element equals the bound value
		if items, ok := stored.([]interface{}); ok {
			for _, item := range items {
				if compareScalar(field, item, bound) == 0 {
					return true
				}
			}
			return false
		}
		if items, ok := stored.([]string); ok {
			for _, item := range items {
				if compareScalar(field, item, bound) == 0 {
					return true
				}
			}
			return false
		}
	}
	return compareScalar(field, stored, bound) == 0
}

func compareValue(field fields.Field, stored, bound interface{}) int {
	return compareScalar(field, stored, bound)
}

// compareScalar compares a stored value with a bound literal according to
// the field kind. Returns -1, 0 or 1; incomparable values compare as -1.
func compareScalar(field fields.Field, stored, bound interface{}) int {
	switch {
	case field.Kind.IsNumeric():
		a, okA := asFloat(stored)
		b, okB := asFloat(bound)
		if !okA || !okB {
			return -1
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0

	case field.Kind.IsTemporal():
		a, okA := asTime(stored)
		b, okB := asTime(bound)
		if !okA || !okB {
			return -1
		}
		switch {
		case a.Before(b):
			return -1
		case a.After(b):
			return 1
		}
		return 0

	case field.Kind == fields.Bool:
		a, _ := stored.(bool)
		b, _ := bound.(bool)
		if a == b {
			return 0
		}
		return -1

	default:
		return strings.Compare(asString(stored), asString(bound))
	}
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func asTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	}
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
