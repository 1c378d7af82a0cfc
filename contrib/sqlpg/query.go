package sqlpg

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/where"
)

// compiler lowers a bound predicate tree into a parameterized SQL condition.
// Values always travel as placeholders, never as literals.
type compiler struct {
	list fields.List
	args []interface{}
}

// compileWhere returns the SQL condition and arguments for the predicate
// and optional full-text search term, with placeholders numbered from $1.
// An empty condition means no restriction.
func compileWhere(list fields.List, p where.Predicate, search string) (string, []interface{}, error) {
	c := &compiler{list: list}

	var conditions []string
	if p != nil {
		condition, err := c.compile(p)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, condition)
	}
	if search != "" {
		condition := c.searchCondition(search)
		if condition != "" {
			conditions = append(conditions, condition)
		}
	}
	return strings.Join(conditions, " AND "), c.args, nil
}

// arg appends a query argument and returns its placeholder
func (c *compiler) arg(value interface{}) string {
	c.args = append(c.args, value)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *compiler) compile(p where.Predicate) (string, error) {
	switch node := p.(type) {
	case where.And:
		return c.compileJunction(node.Predicates, " AND ")
	case where.Or:
		return c.compileJunction(node.Predicates, " OR ")
	case where.Not:
		inner, err := c.compile(node.Predicate)
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil
	case where.Comparison:
		return c.compileComparison(node)
	}
	return "", fmt.Errorf("unexpected predicate node %T", p)
}

func (c *compiler) compileJunction(predicates []where.Predicate, junction string) (string, error) {
	parts := make([]string, len(predicates))
	for i, p := range predicates {
		part, err := c.compile(p)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	return "(" + strings.Join(parts, junction) + ")", nil
}

func (c *compiler) compileComparison(cmp where.Comparison) (string, error) {
	field, ok := c.list.Get(cmp.Field)
	if !ok {
		return "", fmt.Errorf("unknown field %s", cmp.Field)
	}
	column := `"` + field.Column + `"`

	switch cmp.Op {
	case where.IsNull:
		return column + " IS NULL", nil
	case where.IsNotNull:
		return column + " IS NOT NULL", nil
	case where.IsTrue:
		return column, nil
	case where.IsFalse:
		return "NOT " + column, nil

	case where.Eq:
		if field.IsArray {
			return c.arg(toColumnValue(field, cmp.Value)) + " = ANY(" + column + ")", nil
		}
		return column + " = " + c.arg(toColumnValue(field, cmp.Value)), nil
	case where.Neq:
		if field.IsArray {
			return "NOT (" + c.arg(toColumnValue(field, cmp.Value)) + " = ANY(" + column + "))", nil
		}
		return column + " <> " + c.arg(toColumnValue(field, cmp.Value)), nil
	case where.Lt:
		return column + " < " + c.arg(toColumnValue(field, cmp.Value)), nil
	case where.Le:
		return column + " <= " + c.arg(toColumnValue(field, cmp.Value)), nil
	case where.Gt:
		return column + " > " + c.arg(toColumnValue(field, cmp.Value)), nil
	case where.Ge:
		return column + " >= " + c.arg(toColumnValue(field, cmp.Value)), nil

	case where.In, where.NotIn:
		values := cmp.Value.([]interface{})
		array := make([]interface{}, len(values))
		for i, value := range values {
			array[i] = toColumnValue(field, value)
		}
		var condition string
		if field.IsArray {
			// overlap: any stored element matches any candidate
			condition = column + " && " + c.arg(pq.Array(array))
		} else {
			condition = column + " = ANY(" + c.arg(pq.Array(array)) + ")"
		}
		if cmp.Op == where.NotIn {
			return "NOT (" + condition + ")", nil
		}
		return condition, nil

	case where.Between, where.NotBetween:
		pair := cmp.Value.([]interface{})
		lo := c.arg(toColumnValue(field, pair[0]))
		hi := c.arg(toColumnValue(field, pair[1]))
		if cmp.Op == where.NotBetween {
			return column + " NOT BETWEEN " + lo + " AND " + hi, nil
		}
		return column + " BETWEEN " + lo + " AND " + hi, nil

	case where.Contains:
		return column + " LIKE " + c.arg("%"+escapeLike(cmp.Value.(string))+"%"), nil
	case where.NotContains:
		return "NOT (" + column + " LIKE " + c.arg("%"+escapeLike(cmp.Value.(string))+"%") + ")", nil
	case where.StartsWith:
		return column + " LIKE " + c.arg(escapeLike(cmp.Value.(string))+"%"), nil
	case where.NotStartsWith:
		return "NOT (" + column + " LIKE " + c.arg(escapeLike(cmp.Value.(string))+"%") + ")", nil
	case where.EndsWith:
		return column + " LIKE " + c.arg("%"+escapeLike(cmp.Value.(string))), nil
	case where.NotEndsWith:
		return "NOT (" + column + " LIKE " + c.arg("%"+escapeLike(cmp.Value.(string))) + ")", nil
	}
	return "", fmt.Errorf("unsupported operator %s", cmp.Op)
}

// searchCondition ORs a case-insensitive substring match over all
// searchable text columns
func (c *compiler) searchCondition(term string) string {
	var parts []string
	placeholder := ""
	for _, f := range c.list {
		if !f.Searchable || !f.Kind.IsTextual() || f.IsArray {
			continue
		}
		if placeholder == "" {
			placeholder = c.arg("%" + escapeLike(term) + "%")
		}
		parts = append(parts, `"`+f.Column+`" ILIKE `+placeholder)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// escapeLike escapes the LIKE wildcards in a user-provided term
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	term = strings.ReplaceAll(term, `_`, `\_`)
	return term
}
