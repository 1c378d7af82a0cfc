/*Package memory provides an in-memory document model view. It keeps items
in a mutex-guarded map and evaluates the admin filter language directly.

The adapter is useful for prototypes, small embedded tools and as a test
double for the admin API.
*/
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/admin"
	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/inspect"
	"github.com/relabs-tech/adminkit/core/where"
)

// View is an in-memory admin.ModelView
type View struct {
	model inspect.Model

	mutex sync.RWMutex
	items map[string]map[string]interface{}
	// order keeps insertion order for stable unordered listings
	order []string
}

// NewView creates a view for the given prototype struct. It panics on
// invalid prototypes, consistent with registration happening at startup.
func NewView(prototype interface{}) *View {
	model := inspect.Inspect(prototype, inspect.Options{})
	return &View{
		model: model,
		items: make(map[string]map[string]interface{}),
	}
}

// Identity implements admin.ModelView
func (v *View) Identity() string { return v.model.Identity }

// Label implements admin.ModelView
func (v *View) Label() string { return core.Labelize(v.model.Name) }

// Fields implements admin.ModelView
func (v *View) Fields() fields.List { return v.model.Fields }

// PKName implements admin.ModelView
func (v *View) PKName() string { return v.model.PKName }

// matches applies filter and full-text search
func (v *View) matches(item map[string]interface{}, w where.Predicate, search string) bool {
	if w != nil && !eval(w, item, v.model.Fields) {
		return false
	}
	if search != "" {
		term := strings.ToLower(search)
		found := false
		for _, name := range v.model.Fields.Searchables() {
			if strings.Contains(strings.ToLower(asString(item[name])), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// snapshot returns the matching items in insertion order. Callers own the
// returned copies.
func (v *View) snapshot(w where.Predicate, search string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, pk := range v.order {
		item, ok := v.items[pk]
		if !ok || !v.matches(item, w, search) {
			continue
		}
		out = append(out, copyItem(item))
	}
	return out
}

// FindAll implements admin.ModelView
func (v *View) FindAll(ctx context.Context, q admin.Query) ([]map[string]interface{}, error) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	out := v.snapshot(q.Where, q.Search)

	for i := len(q.Order) - 1; i >= 0; i-- {
		order := q.Order[i]
		field, _ := v.model.Fields.Get(order.Field)
		sort.SliceStable(out, func(a, b int) bool {
			cmp := compareScalar(field, out[a][order.Field], out[b][order.Field])
			if order.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Skip >= len(out) {
		return nil, nil
	}
	out = out[q.Skip:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count implements admin.ModelView
func (v *View) Count(ctx context.Context, w where.Predicate, search string) (int64, error) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	var count int64
	for _, item := range v.items {
		if v.matches(item, w, search) {
			count++
		}
	}
	return count, nil
}

// FindByPK implements admin.ModelView
func (v *View) FindByPK(ctx context.Context, pk string) (map[string]interface{}, error) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	item, ok := v.items[pk]
	if !ok {
		return nil, core.ErrNotFound
	}
	return copyItem(item), nil
}

// FindByPKs implements admin.ModelView. Unknown keys are skipped.
func (v *View) FindByPKs(ctx context.Context, pks []string) ([]map[string]interface{}, error) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	var out []map[string]interface{}
	for _, pk := range pks {
		if item, ok := v.items[pk]; ok {
			out = append(out, copyItem(item))
		}
	}
	return out, nil
}

// Create implements admin.ModelView. A missing primary key is generated.
func (v *View) Create(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	stored := copyItem(item)
	pk := asString(stored[v.model.PKName])
	if pk == "" {
		pk = uuid.New().String()
		stored[v.model.PKName] = pk
	}
	if _, exists := v.items[pk]; !exists {
		v.order = append(v.order, pk)
	}
	v.items[pk] = stored
	return copyItem(stored), nil
}

// Edit implements admin.ModelView with partial update semantics: only the
// provided keys change, a nil value clears the field.
func (v *View) Edit(ctx context.Context, pk string, item map[string]interface{}) (map[string]interface{}, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	stored, ok := v.items[pk]
	if !ok {
		return nil, core.ErrNotFound
	}
	for key, value := range item {
		if key == v.model.PKName {
			continue
		}
		if value == nil {
			delete(stored, key)
			continue
		}
		stored[key] = value
	}
	return copyItem(stored), nil
}

// Delete implements admin.ModelView
func (v *View) Delete(ctx context.Context, pks []string) (int64, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	var deleted int64
	for _, pk := range pks {
		if _, ok := v.items[pk]; !ok {
			continue
		}
		delete(v.items, pk)
		deleted++
	}
	if deleted > 0 {
		order := v.order[:0]
		for _, pk := range v.order {
			if _, ok := v.items[pk]; ok {
				order = append(order, pk)
			}
		}
		v.order = order
	}
	return deleted, nil
}

func copyItem(item map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(item))
	for key, value := range item {
		out[key] = value
	}
	return out
}
