package sqlpg

import (
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/lib/pq"

	"github.com/relabs-tech/adminkit/core/fields"
)

// columnType maps a field descriptor onto a postgres column type
func columnType(f fields.Field) string {
	var base string
	switch {
	case f.Kind == fields.Bool:
		base = "boolean"
	case f.Kind == fields.Integer:
		base = "bigint"
	case f.Kind == fields.Float:
		base = "double precision"
	case f.Kind == fields.Decimal:
		base = "numeric"
	case f.Kind == fields.DateTime:
		base = "timestamptz"
	case f.Kind == fields.Date:
		base = "date"
	case f.Kind == fields.Time:
		base = "time"
	case f.Kind == fields.JSON || f.Kind == fields.Collection || f.Kind.IsFile():
		base = "jsonb"
	default:
		base = "text"
	}
	if f.IsArray {
		return base + "[]"
	}
	return base
}

// temporal layouts accepted when writing date and time values provided as
// strings
var writeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "15:04:05", "15:04"}

// toColumnValue converts a JSON-typed value into the driver value for the
// field's column
func toColumnValue(f fields.Field, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if f.IsArray {
		switch v := value.(type) {
		case []interface{}:
			out := make([]string, len(v))
			for i, item := range v {
				s, _ := item.(string)
				out[i] = s
			}
			return pq.Array(out)
		case []string:
			return pq.Array(v)
		}
		return pq.Array([]string{})
	}
	switch {
	case f.Kind == fields.Integer:
		if v, ok := value.(float64); ok {
			return int64(v)
		}
	case f.Kind.IsTemporal():
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
	case f.Kind == fields.JSON || f.Kind == fields.Collection || f.Kind.IsFile():
		data, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		return data
	}
	return value
}

// scanTargetFor returns a scan destination for the field's column
func scanTargetFor(f fields.Field) interface{} {
	if f.IsArray {
		return &pq.StringArray{}
	}
	switch {
	case f.Kind == fields.Bool:
		return &sql.NullBool{}
	case f.Kind == fields.Integer:
		return &sql.NullInt64{}
	case f.Kind == fields.Float || f.Kind == fields.Decimal:
		return &sql.NullFloat64{}
	case f.Kind == fields.DateTime || f.Kind == fields.Date:
		return &sql.NullTime{}
	case f.Kind == fields.JSON || f.Kind == fields.Collection || f.Kind.IsFile():
		return &[]byte{}
	default:
		return &sql.NullString{}
	}
}

// fromColumnValue converts a scanned column back into the JSON-typed value
// the admin works with
func fromColumnValue(f fields.Field, target interface{}) interface{} {
	switch v := target.(type) {
	case *pq.StringArray:
		out := make([]interface{}, len(*v))
		for i, s := range *v {
			out[i] = s
		}
		return out
	case *sql.NullBool:
		if !v.Valid {
			return nil
		}
		return v.Bool
	case *sql.NullInt64:
		if !v.Valid {
			return nil
		}
		return float64(v.Int64)
	case *sql.NullFloat64:
		if !v.Valid {
			return nil
		}
		return v.Float64
	case *sql.NullTime:
		if !v.Valid {
			return nil
		}
		return v.Time
	case *[]byte:
		if len(*v) == 0 {
			return nil
		}
		var out interface{}
		if err := json.Unmarshal(*v, &out); err != nil {
			return nil
		}
		return out
	case *sql.NullString:
		if !v.Valid {
			return nil
		}
		return v.String
	}
	return nil
}
