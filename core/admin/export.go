package admin

import (
	"encoding/csv"
	"net/http"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/fields"
	"github.com/relabs-tech/adminkit/core/logger"
)

// exportHandler streams the filtered items as CSV. It honors the same
// where, search and order parameters as the list route but pages through
// the full result set.
func (a *Admin) exportHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	if !a.authorize(r, rv, core.OperationExport) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	q, err := parseQuery(r, rv)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exportFields := a.exportFields(rv)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rv.view.Identity()+`.csv"`)

	writer := csv.NewWriter(w)
	header := make([]string, len(exportFields))
	for i, f := range exportFields {
		header[i] = f.Label
	}
	if err := writer.Write(header); err != nil {
		return
	}

	q.Skip = 0
	q.Limit = maxLimit
	for {
		items, err := rv.view.FindAll(r.Context(), q)
		if err != nil {
			logger.FromContext(r.Context()).WithError(err).Error("Error 4603: export failed")
			return
		}
		for _, item := range items {
			row := make([]string, len(exportFields))
			for i, f := range exportFields {
				row[i] = stringValue(a.serializeValue(r.Context(), f, item[f.Name]))
			}
			if err := writer.Write(row); err != nil {
				return
			}
		}
		if len(items) < q.Limit {
			break
		}
		q.Skip += q.Limit
	}
	writer.Flush()
}

// exportFields resolves the configured export field names, defaulting to
// all list fields without the relation and file kinds
func (a *Admin) exportFields(rv *registeredView) fields.List {
	list := rv.view.Fields()
	if len(rv.config.ExportFields) > 0 {
		var out fields.List
		for _, name := range rv.config.ExportFields {
			if f, ok := list.Get(name); ok {
				out = append(out, f)
			}
		}
		return out
	}
	var out fields.List
	for _, f := range list.ForAction(core.ActionList) {
		if f.Kind.IsRelation() || f.Kind.IsFile() {
			continue
		}
		out = append(out, f)
	}
	return out
}
