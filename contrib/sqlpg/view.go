package sqlpg

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/admin"
	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/inspect"
	"github.com/relabs-tech/adminkit/core/logger"
	"github.com/relabs-tech/adminkit/core/where"
)

// View is a postgres-backed admin.ModelView. One view maps to one table.
type View struct {
	db         *DB
	model      inspect.Model
	table      string
	pkCol      string
	selectList string
}

// NewView creates a view for the given prototype struct and creates its
// table if it does not exist yet. Column names come from the db struct tag.
// It panics on invalid static configuration.
func NewView(db *DB, prototype interface{}) *View {
	model := inspect.Inspect(prototype, inspect.Options{NameTag: "db"})

	table := fmt.Sprintf("%s.\"%s\"", db.Schema, core.Plural(model.Name))
	pkField, _ := model.Fields.Get(model.PKName)

	columns := make([]string, len(model.Fields))
	definitions := make([]string, 0, len(model.Fields)+1)
	for i, f := range model.Fields {
		columns[i] = `"` + f.Column + `"`
		definitions = append(definitions, `"`+f.Column+`" `+columnType(f))
	}
	definitions = append(definitions, `PRIMARY KEY("`+pkField.Column+`")`)

	createQuery := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", table, strings.Join(definitions, ", "))
	if _, err := db.Exec(createQuery); err != nil {
		panic(fmt.Sprintf("sqlpg: cannot create table for %s: %s", model.Identity, err))
	}
	logger.Default().Debugln("sqlpg: table ready for " + model.Identity)

	return &View{
		db:         db,
		model:      model,
		table:      table,
		pkCol:      `"` + pkField.Column + `"`,
		selectList: strings.Join(columns, ", "),
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

// scanItems reads all rows into admin items
func (v *View) scanItems(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []map[string]interface{}
	for rows.Next() {
		targets := make([]interface{}, len(v.model.Fields))
		for i, f := range v.model.Fields {
			targets[i] = scanTargetFor(f)
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		item := make(map[string]interface{}, len(v.model.Fields))
		for i, f := range v.model.Fields {
			item[f.Name] = fromColumnValue(f, targets[i])
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindAll implements admin.ModelView
func (v *View) FindAll(ctx context.Context, q admin.Query) ([]map[string]interface{}, error) {
	condition, args, err := compileWhere(v.model.Fields, q.Where, q.Search)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + v.selectList + " FROM " + v.table
	if condition != "" {
		query += " WHERE " + condition
	}

	orders := make([]string, 0, len(q.Order)+1)
	for _, order := range q.Order {
		field, ok := v.model.Fields.Get(order.Field)
		if !ok {
			return nil, fmt.Errorf("unknown order field %s", order.Field)
		}
		direction := " ASC"
		if order.Desc {
			direction = " DESC"
		}
		orders = append(orders, `"`+field.Column+`"`+direction)
	}
	// stable paging needs a total order
	orders = append(orders, v.pkCol+" ASC")
	query += " ORDER BY " + strings.Join(orders, ", ")

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d;", len(args)+1, len(args)+2)
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, q.Skip)

	return v.scanItems(ctx, query, args...)
}

// Count implements admin.ModelView
func (v *View) Count(ctx context.Context, w where.Predicate, search string) (int64, error) {
	condition, args, err := compileWhere(v.model.Fields, w, search)
	if err != nil {
		return 0, err
	}
	query := "SELECT count(*) FROM " + v.table
	if condition != "" {
		query += " WHERE " + condition
	}
	var count int64
	err = v.db.QueryRowContext(ctx, query+";", args...).Scan(&count)
	return count, err
}

// FindByPK implements admin.ModelView
func (v *View) FindByPK(ctx context.Context, pk string) (map[string]interface{}, error) {
	query := "SELECT " + v.selectList + " FROM " + v.table + " WHERE " + v.pkCol + " = $1;"
	items, err := v.scanItems(ctx, query, pk)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, core.ErrNotFound
	}
	return items[0], nil
}

// FindByPKs implements admin.ModelView. Unknown keys are skipped.
func (v *View) FindByPKs(ctx context.Context, pks []string) ([]map[string]interface{}, error) {
	query := "SELECT " + v.selectList + " FROM " + v.table +
		" WHERE " + v.pkCol + " = ANY($1) ORDER BY " + v.pkCol + " ASC;"
	return v.scanItems(ctx, query, pq.Array(pks))
}

// Create implements admin.ModelView. A missing primary key is generated.
func (v *View) Create(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error) {
	pk, _ := item[v.model.PKName].(string)
	if pk == "" {
		pk = uuid.New().String()
	}

	columns := []string{v.pkCol}
	placeholders := []string{"$1"}
	args := []interface{}{pk}
	for _, f := range v.model.Fields {
		if f.Name == v.model.PKName {
			continue
		}
		value, ok := item[f.Name]
		if !ok {
			continue
		}
		args = append(args, toColumnValue(f, value))
		columns = append(columns, `"`+f.Column+`"`)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s;",
		v.table, strings.Join(columns, ", "), strings.Join(placeholders, ", "), v.pkCol)
	var returned string
	if err := v.db.QueryRowContext(ctx, query, args...).Scan(&returned); err != nil {
		return nil, err
	}
	return v.FindByPK(ctx, returned)
}

// Edit implements admin.ModelView with partial update semantics: only the
// provided keys change, a nil value clears the column.
func (v *View) Edit(ctx context.Context, pk string, item map[string]interface{}) (map[string]interface{}, error) {
	var sets []string
	var args []interface{}
	for _, f := range v.model.Fields {
		if f.Name == v.model.PKName {
			continue
		}
		value, ok := item[f.Name]
		if !ok {
			continue
		}
		args = append(args, toColumnValue(f, value))
		sets = append(sets, fmt.Sprintf(`"%s" = $%d`, f.Column, len(args)))
	}
	if len(sets) == 0 {
		return v.FindByPK(ctx, pk)
	}

	args = append(args, pk)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d;",
		v.table, strings.Join(sets, ", "), v.pkCol, len(args))
	result, err := v.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, core.ErrNotFound
	}
	return v.FindByPK(ctx, pk)
}

// Delete implements admin.ModelView
func (v *View) Delete(ctx context.Context, pks []string) (int64, error) {
	query := "DELETE FROM " + v.table + " WHERE " + v.pkCol + " = ANY($1);"
	result, err := v.db.ExecContext(ctx, query, pq.Array(pks))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
