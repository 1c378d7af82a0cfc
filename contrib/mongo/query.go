package mongo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/where"
)

// operators maps the plain comparison operators onto their mongo
// counterparts
var operators = map[where.Op]string{
	where.Eq:    "$eq",
	where.Neq:   "$ne",
	where.Lt:    "$lt",
	where.Le:    "$lte",
	where.Gt:    "$gt",
	where.Ge:    "$gte",
	where.In:    "$in",
	where.NotIn: "$nin",
}

// compileWhere lowers a bound predicate tree and optional full-text search
// term into a mongo filter document
func compileWhere(list fields.List, p where.Predicate, search string) (bson.M, error) {
	var parts []bson.M
	if p != nil {
		filter, err := compile(list, p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, filter)
	}
	if search != "" {
		if filter := searchFilter(list, search); filter != nil {
			parts = append(parts, filter)
		}
	}
	switch len(parts) {
	case 0:
		return bson.M{}, nil
	case 1:
		return parts[0], nil
	default:
		return bson.M{"$and": parts}, nil
	}
}

func compile(list fields.List, p where.Predicate) (bson.M, error) {
	switch node := p.(type) {
	case where.And, where.Or:
		var predicates []where.Predicate
		operator := "$and"
		if or, ok := node.(where.Or); ok {
			predicates = or.Predicates
			operator = "$or"
		} else {
			predicates = node.(where.And).Predicates
		}
		parts := make([]bson.M, len(predicates))
		for i, sub := range predicates {
			filter, err := compile(list, sub)
			if err != nil {
				return nil, err
			}
			parts[i] = filter
		}
		return bson.M{operator: parts}, nil

	case where.Not:
		filter, err := compile(list, node.Predicate)
		if err != nil {
			return nil, err
		}
		return bson.M{"$nor": []bson.M{filter}}, nil

	case where.Comparison:
		return compileComparison(list, node)
	}
	return nil, fmt.Errorf("unexpected predicate node %T", p)
}

func compileComparison(list fields.List, cmp where.Comparison) (bson.M, error) {
	field, ok := list.Get(cmp.Field)
	if !ok {
		return nil, fmt.Errorf("unknown field %s", cmp.Field)
	}
	key := field.Column

	if mongoOp, ok := operators[cmp.Op]; ok {
		return bson.M{key: bson.M{mongoOp: cmp.Value}}, nil
	}

	switch cmp.Op {
	case where.IsNull:
		return bson.M{key: bson.M{"$eq": nil}}, nil
	case where.IsNotNull:
		return bson.M{key: bson.M{"$ne": nil}}, nil
	case where.IsTrue:
		return bson.M{key: bson.M{"$eq": true}}, nil
	case where.IsFalse:
		return bson.M{key: bson.M{"$eq": false}}, nil

	case where.Between:
		pair := cmp.Value.([]interface{})
		return bson.M{key: bson.M{"$gte": pair[0], "$lte": pair[1]}}, nil
	case where.NotBetween:
		pair := cmp.Value.([]interface{})
		return bson.M{key: bson.M{"$not": bson.M{"$gte": pair[0], "$lte": pair[1]}}}, nil

	case where.Contains:
		return bson.M{key: substringRegex(cmp.Value.(string), false, false)}, nil
	case where.NotContains:
		return bson.M{key: bson.M{"$not": substringRegex(cmp.Value.(string), false, false)}}, nil
	case where.StartsWith:
		return bson.M{key: substringRegex(cmp.Value.(string), true, false)}, nil
	case where.NotStartsWith:
		return bson.M{key: bson.M{"$not": substringRegex(cmp.Value.(string), true, false)}}, nil
	case where.EndsWith:
		return bson.M{key: substringRegex(cmp.Value.(string), false, true)}, nil
	case where.NotEndsWith:
		return bson.M{key: bson.M{"$not": substringRegex(cmp.Value.(string), false, true)}}, nil
	}
	return nil, fmt.Errorf("unsupported operator %s", cmp.Op)
}

// substringRegex builds a case-insensitive regex matching the quoted term,
// optionally anchored at the start or end
func substringRegex(term string, anchorStart, anchorEnd bool) primitive.Regex {
	pattern := regexp.QuoteMeta(term)
	if anchorStart {
		pattern = "^" + pattern
	}
	if anchorEnd {
		pattern = pattern + "$"
	}
	return primitive.Regex{Pattern: pattern, Options: "i"}
}

// searchFilter ORs a case-insensitive substring match over all searchable
// text fields
func searchFilter(list fields.List, term string) bson.M {
	var parts []bson.M
	for _, f := range list {
		if !f.Searchable || !f.Kind.IsTextual() {
			continue
		}
		parts = append(parts, bson.M{f.Column: substringRegex(term, false, false)})
	}
	if len(parts) == 0 {
		return nil
	}
	return bson.M{"$or": parts}
}
