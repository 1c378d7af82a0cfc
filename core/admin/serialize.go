package admin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/logger"
)

// serializeItem converts a backend item into the API representation for the
// given request action. In select2 mode only the primary key and the
// representation string are returned.
func (a *Admin) serializeItem(ctx context.Context, rv *registeredView,
	item map[string]interface{}, action core.RequestAction, select2 bool) map[string]interface{} {

	identity := rv.view.Identity()
	pkName := rv.view.PKName()
	pk := stringValue(item[pkName])

	if select2 {
		return map[string]interface{}{
			pkName:  item[pkName],
			"_repr": a.repr(rv, item),
		}
	}

	out := make(map[string]interface{})
	for _, f := range rv.view.Fields().ForAction(action) {
		value, ok := item[f.Name]
		if !ok {
			continue
		}
		out[f.Name] = a.serializeValue(ctx, f, value)
	}
	out["_repr"] = a.repr(rv, item)
	out["_detail_url"] = a.basePath + "/api/" + identity + "/" + pk
	out["_edit_url"] = a.basePath + "/api/" + identity + "/" + pk
	return out
}

// serializeValue formats one field value for the API
func (a *Admin) serializeValue(ctx context.Context, f fields.Field, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	switch {
	case f.Kind.IsTemporal():
		if t, ok := value.(time.Time); ok {
			switch f.Kind {
			case fields.Date:
				return t.Format("2006-01-02")
			case fields.Time:
				return t.Format("15:04:05")
			default:
				return t.UTC().Format(time.RFC3339)
			}
		}
		return value
	case f.Kind == fields.Decimal:
		return stringValue(value)
	case f.Kind == fields.HasOne:
		return a.embedRelation(ctx, f.Identity, stringValue(value))
	case f.Kind == fields.HasMany:
		pks, ok := value.([]interface{})
		if !ok {
			return value
		}
		embedded := make([]interface{}, len(pks))
		for i, pk := range pks {
			embedded[i] = a.embedRelation(ctx, f.Identity, stringValue(pk))
		}
		return embedded
	}
	return value
}

// embedRelation looks up the foreign item and embeds its shallow
// representation. A broken reference embeds the bare key.
func (a *Admin) embedRelation(ctx context.Context, identity, pk string) interface{} {
	foreign, ok := a.views[identity]
	if !ok || pk == "" {
		return pk
	}
	item, err := foreign.view.FindByPK(ctx, pk)
	if err != nil {
		logger.FromContext(ctx).Debugf("cannot embed %s/%s: %s", identity, pk, err)
		return pk
	}
	return map[string]interface{}{
		foreign.view.PKName(): item[foreign.view.PKName()],
		"_repr":               a.repr(foreign, item),
	}
}

// repr returns the display string of an item: the view's own Repr, or the
// first conventional naming field, or the primary key
func (a *Admin) repr(rv *registeredView, item map[string]interface{}) string {
	if representer, ok := rv.view.(Representer); ok {
		return representer.Repr(item)
	}
	for _, name := range []string{"name", "title", "label", "email"} {
		if value, ok := item[name]; ok {
			if s := stringValue(value); s != "" {
				return s
			}
		}
	}
	return stringValue(item[rv.view.PKName()])
}

// stringValue renders a JSON-typed value as a plain string
func stringValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
