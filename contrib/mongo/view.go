/*Package mongo provides a MongoDB-backed admin model view over the
official driver. Models are registered as Go structs; document keys come
from the bson struct tag, the primary key is the _id document key.
*/
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/admin"
	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/inspect"
	"github.com/relabs-tech/adminkit/core/where"
)

// View is a MongoDB-backed admin.ModelView. One view maps to one
// collection.
type View struct {
	collection *driver.Collection
	model      inspect.Model
	pkColumn   string
}

// NewView creates a view for the given prototype struct over the
// pluralized collection name. It panics on invalid prototypes.
func NewView(db *driver.Database, prototype interface{}) *View {
	model := inspect.Inspect(prototype, inspect.Options{NameTag: "bson"})
	pkField, _ := model.Fields.Get(model.PKName)
	return &View{
		collection: db.Collection(core.Plural(model.Name)),
		model:      model,
		pkColumn:   pkField.Column,
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

// pkValue converts a primary key string into its document value. ObjectID
// hex strings become ObjectIDs, everything else stays a plain string.
func pkValue(pk string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(pk); err == nil {
		return oid
	}
	return pk
}

func (v *View) pkFilter(pks []string) bson.M {
	values := make([]interface{}, len(pks))
	for i, pk := range pks {
		values[i] = pkValue(pk)
	}
	return bson.M{v.pkColumn: bson.M{"$in": values}}
}

// FindAll implements admin.ModelView
func (v *View) FindAll(ctx context.Context, q admin.Query) ([]map[string]interface{}, error) {
	filter, err := compileWhere(v.model.Fields, q.Where, q.Search)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find().SetSkip(int64(q.Skip))
	if q.Limit > 0 {
		findOptions = findOptions.SetLimit(int64(q.Limit))
	}
	if len(q.Order) > 0 {
		sort := bson.D{}
		for _, order := range q.Order {
			field, _ := v.model.Fields.Get(order.Field)
			direction := 1
			if order.Desc {
				direction = -1
			}
			sort = append(sort, bson.E{Key: field.Column, Value: direction})
		}
		findOptions = findOptions.SetSort(sort)
	}

	cursor, err := v.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []map[string]interface{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, v.fromDocument(doc))
	}
	return items, cursor.Err()
}

// Count implements admin.ModelView
func (v *View) Count(ctx context.Context, w where.Predicate, search string) (int64, error) {
	filter, err := compileWhere(v.model.Fields, w, search)
	if err != nil {
		return 0, err
	}
	return v.collection.CountDocuments(ctx, filter)
}

// FindByPK implements admin.ModelView
func (v *View) FindByPK(ctx context.Context, pk string) (map[string]interface{}, error) {
	var doc bson.M
	err := v.collection.FindOne(ctx, bson.M{v.pkColumn: pkValue(pk)}).Decode(&doc)
	if err == driver.ErrNoDocuments {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v.fromDocument(doc), nil
}

// FindByPKs implements admin.ModelView. Unknown keys are skipped.
func (v *View) FindByPKs(ctx context.Context, pks []string) ([]map[string]interface{}, error) {
	cursor, err := v.collection.Find(ctx, v.pkFilter(pks))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []map[string]interface{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, v.fromDocument(doc))
	}
	return items, cursor.Err()
}

// Create implements admin.ModelView. A missing primary key is generated as
// a fresh ObjectID.
func (v *View) Create(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error) {
	doc := v.toDocument(item)
	pk, _ := item[v.model.PKName].(string)
	if pk == "" {
		oid := primitive.NewObjectID()
		pk = oid.Hex()
		doc[v.pkColumn] = oid
	} else {
		doc[v.pkColumn] = pkValue(pk)
	}
	if _, err := v.collection.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return v.FindByPK(ctx, pk)
}

// Edit implements admin.ModelView with partial update semantics: provided
// keys are $set, nil values are $unset.
func (v *View) Edit(ctx context.Context, pk string, item map[string]interface{}) (map[string]interface{}, error) {
	set := bson.M{}
	unset := bson.M{}
	for _, f := range v.model.Fields {
		if f.Name == v.model.PKName {
			continue
		}
		value, ok := item[f.Name]
		if !ok {
			continue
		}
		if value == nil {
			unset[f.Column] = ""
			continue
		}
		set[f.Column] = toDocumentValue(f, value)
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return v.FindByPK(ctx, pk)
	}

	result, err := v.collection.UpdateOne(ctx, bson.M{v.pkColumn: pkValue(pk)}, update)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, core.ErrNotFound
	}
	return v.FindByPK(ctx, pk)
}

// Delete implements admin.ModelView
func (v *View) Delete(ctx context.Context, pks []string) (int64, error) {
	result, err := v.collection.DeleteMany(ctx, v.pkFilter(pks))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// toDocument converts an admin item into a document, renaming fields to
// their document keys
func (v *View) toDocument(item map[string]interface{}) bson.M {
	doc := bson.M{}
	for _, f := range v.model.Fields {
		if f.Name == v.model.PKName {
			continue
		}
		value, ok := item[f.Name]
		if !ok {
			continue
		}
		doc[f.Column] = toDocumentValue(f, value)
	}
	return doc
}

// fromDocument converts a stored document back into an admin item
func (v *View) fromDocument(doc bson.M) map[string]interface{} {
	item := make(map[string]interface{}, len(v.model.Fields))
	for _, f := range v.model.Fields {
		value, ok := doc[f.Column]
		if !ok {
			continue
		}
		item[f.Name] = fromDocumentValue(value)
	}
	return item
}

// temporal layouts accepted when writing date and time values provided as
// strings
var writeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "15:04:05", "15:04"}

func toDocumentValue(f fields.Field, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if f.Kind.IsTemporal() {
		switch v := value.(type) {
		case time.Time:
			return v
		case string:
			for _, layout := range writeLayouts {
				if t, err := time.Parse(layout, v); err == nil {
					return t
				}
			}
		}
	}
	return value
}

func fromDocumentValue(value interface{}) interface{} {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.A:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = fromDocumentValue(item)
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = fromDocumentValue(item)
		}
		return out
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return value
	}
}
