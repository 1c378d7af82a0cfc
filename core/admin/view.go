package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/where"
)

// Order is one ordering clause of a list query
type Order struct {
	Field string
	Desc  bool
}

// Query carries the parameters of a list request. Where is a bound
// predicate tree; Search a full-text term matched case-insensitively
// against the searchable text fields.
type Query struct {
	Skip   int
	Limit  int
	Where  where.Predicate
	Search string
	Order  []Order
}

// ModelView is the contract between the admin and a backend adapter. Items
// travel as maps keyed by field name with JSON-typed values.
//
// FindByPK returns core.ErrNotFound when no item matches. Delete returns
// the number of items actually removed.
type ModelView interface {
	Identity() string
	Label() string
	Fields() fields.List
	PKName() string

	FindAll(ctx context.Context, q Query) ([]map[string]interface{}, error)
	Count(ctx context.Context, w where.Predicate, search string) (int64, error)
	FindByPK(ctx context.Context, pk string) (map[string]interface{}, error)
	FindByPKs(ctx context.Context, pks []string) ([]map[string]interface{}, error)
	Create(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error)
	Edit(ctx context.Context, pk string, item map[string]interface{}) (map[string]interface{}, error)
	Delete(ctx context.Context, pks []string) (int64, error)
}

// Validator is implemented by views that want to check items beyond the
// JSON schema before create and edit. A FormValidationError return is
// reported to the client with status 400.
type Validator interface {
	Validate(ctx context.Context, action core.RequestAction, item map[string]interface{}) error
}

// Representer is implemented by views that want to control the _repr value
// of serialized items
type Representer interface {
	Repr(item map[string]interface{}) string
}

// FormValidationError maps field names to error messages
type FormValidationError map[string]string

func (e FormValidationError) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e[name]
	}
	return strings.Join(parts, "; ")
}

// ActionHandler executes a named bulk action on the given primary keys and
// returns a message for the client
type ActionHandler func(ctx context.Context, pks []string) (string, error)

// Action is a named bulk operation offered for a view
type Action struct {
	Name    string
	Label   string
	Handler ActionHandler
}

// Permit grants a role a set of operations on a view, following the
// configuration style of resource permits
type Permit struct {
	Role       string
	Operations []core.Operation
}

// ViewConfig carries the per-view admin configuration
type ViewConfig struct {
	// Permits restricts operations per role. An empty list means every
	// authenticated identity may do everything. The admin role is always
	// permitted.
	Permits []Permit
	// SchemaID selects the JSON schema validated on create and edit
	SchemaID string
	// Actions are the bulk actions offered for this view
	Actions []Action
	// ExportFields restricts CSV export to the named fields; empty means
	// all list fields
	ExportFields []string
}

// parseOrder parses order_by query values of the form "field asc" or
// "field desc" and checks them against the field list
func parseOrder(values []string, list fields.List) ([]Order, error) {
	var orders []Order
	for _, value := range values {
		parts := strings.Fields(value)
		if len(parts) == 0 || len(parts) > 2 {
			return nil, fmt.Errorf("invalid order_by %q, expected \"field asc|desc\"", value)
		}
		field, ok := list.Get(parts[0])
		if !ok {
			return nil, fmt.Errorf("invalid order_by: unknown field %q", parts[0])
		}
		if !field.Orderable {
			return nil, fmt.Errorf("invalid order_by: field %q is not orderable", parts[0])
		}
		order := Order{Field: parts[0]}
		if len(parts) == 2 {
			switch strings.ToLower(parts[1]) {
			case "asc":
			case "desc":
				order.Desc = true
			default:
				return nil, fmt.Errorf("invalid order_by direction %q", parts[1])
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}
