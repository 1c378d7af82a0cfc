package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/logger"
	"github.com/relabs-tech/adminkit/core/where"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// authorize checks the view permits for the operation. Without an auth
// provider everything is allowed.
func (a *Admin) authorize(r *http.Request, rv *registeredView, operation core.Operation) bool {
	if a.auth == nil {
		return true
	}
	auth := AuthorizationFromContext(r.Context())
	return auth.IsAuthorized(operation, rv.config.Permits)
}

// writeError writes a client error as {"error": message}
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}

// writeBackendError maps backend errors onto HTTP responses. Validation
// errors are client errors, everything else is logged and reported as an
// internal error.
func (a *Admin) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var formErr FormValidationError
	if errors.As(err, &formErr) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": formErr})
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such item")
		return
	}
	logger.FromContext(r.Context()).WithError(err).Errorf("Error 4601: %s %s failed", r.Method, r.URL.Path)
	writeError(w, http.StatusInternalServerError, "Error 4601")
}

// parseQuery builds the list query from the request parameters. The where
// parameter holds either a JSON filter or a plain full-text search term.
func parseQuery(r *http.Request, rv *registeredView) (Query, error) {
	params := r.URL.Query()
	q := Query{Limit: defaultLimit}

	if s := params.Get("skip"); s != "" {
		skip, err := strconv.Atoi(s)
		if err != nil || skip < 0 {
			return q, errors.New("invalid skip parameter")
		}
		q.Skip = skip
	}
	if s := params.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			return q, errors.New("invalid limit parameter")
		}
		if limit == 0 || limit > maxLimit {
			limit = maxLimit
		}
		q.Limit = limit
	}

	if s := params.Get("where"); s != "" {
		if strings.HasPrefix(strings.TrimSpace(s), "{") {
			parsed, err := where.Parse([]byte(s))
			if err != nil {
				return q, err
			}
			bound, err := where.Bind(parsed, rv.view.Fields())
			if err != nil {
				return q, err
			}
			q.Where = bound
		} else {
			q.Search = s
		}
	}

	orders, err := parseOrder(params["order_by"], rv.view.Fields())
	if err != nil {
		return q, err
	}
	q.Order = orders
	return q, nil
}

func (a *Admin) listHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	if !a.authorize(r, rv, core.OperationList) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	ctx := r.Context()
	params := r.URL.Query()

	action := core.ActionAPI
	select2 := params.Get("select2") == "true"

	// explicit primary keys short-circuit filtering and paging
	if pks := params["pks"]; len(pks) > 0 {
		items, err := rv.view.FindByPKs(ctx, pks)
		if err != nil {
			a.writeBackendError(w, r, err)
			return
		}
		a.writeItems(w, r, rv, items, int64(len(items)), action, select2)
		return
	}

	q, err := parseQuery(r, rv)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := rv.view.FindAll(ctx, q)
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	total, err := rv.view.Count(ctx, q.Where, q.Search)
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	a.writeItems(w, r, rv, items, total, action, select2)
}

func (a *Admin) writeItems(w http.ResponseWriter, r *http.Request, rv *registeredView,
	items []map[string]interface{}, total int64, action core.RequestAction, select2 bool) {

	serialized := make([]map[string]interface{}, len(items))
	for i, item := range items {
		serialized[i] = a.serializeItem(r.Context(), rv, item, action, select2)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": serialized,
		"total": total,
	})
}

func (a *Admin) detailHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	if !a.authorize(r, rv, core.OperationRead) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	pk := mux.Vars(r)["pk"]
	item, err := rv.view.FindByPK(r.Context(), pk)
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.serializeItem(r.Context(), rv, item, core.ActionDetail, false))
}

// sanitizeItem keeps only the fields writable for the action. File fields
// are managed through the file routes and dropped here.
func sanitizeItem(rv *registeredView, item map[string]interface{}, action core.RequestAction) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range rv.view.Fields() {
		if f.ExcludedFrom(action) || f.Kind.IsFile() {
			continue
		}
		if value, ok := item[f.Name]; ok {
			out[f.Name] = value
		}
	}
	return out
}

// validateItem runs required-field checks, the JSON schema and the view's
// Validate hook
func (a *Admin) validateItem(r *http.Request, rv *registeredView, item map[string]interface{}, action core.RequestAction) error {
	if !action.IsForm() {
		return nil
	}
	formErr := FormValidationError{}
	for _, f := range rv.view.Fields() {
		if !f.Required || f.ExcludedFrom(action) || f.Kind.IsFile() {
			continue
		}
		if action == core.ActionEdit {
			// a partial edit may leave required fields untouched
			if _, ok := item[f.Name]; !ok {
				continue
			}
		}
		if value, ok := item[f.Name]; !ok || value == nil || value == "" {
			formErr[f.Name] = "this field is required"
		}
	}
	if len(formErr) > 0 {
		return formErr
	}

	if a.validator != nil && rv.config.SchemaID != "" {
		if err := a.validator.ValidateStruct(item, rv.config.SchemaID); err != nil {
			return FormValidationError{"_schema": err.Error()}
		}
	}
	if validator, ok := rv.view.(Validator); ok {
		if err := validator.Validate(r.Context(), action, item); err != nil {
			return err
		}
	}
	return nil
}

func (a *Admin) createHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	if !a.authorize(r, rv, core.OperationCreate) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	var body map[string]interface{}
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item := sanitizeItem(rv, body, core.ActionCreate)
	if err := a.validateItem(r, rv, item, core.ActionCreate); err != nil {
		a.writeValidationError(w, r, err)
		return
	}
	created, err := rv.view.Create(r.Context(), item)
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	a.notify(r, rv, core.OperationCreate, created)
	writeJSON(w, http.StatusCreated, a.serializeItem(r.Context(), rv, created, core.ActionDetail, false))
}

func (a *Admin) editHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	if !a.authorize(r, rv, core.OperationUpdate) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	pk := mux.Vars(r)["pk"]
	var body map[string]interface{}
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item := sanitizeItem(rv, body, core.ActionEdit)
	if err := a.validateItem(r, rv, item, core.ActionEdit); err != nil {
		a.writeValidationError(w, r, err)
		return
	}
	updated, err := rv.view.Edit(r.Context(), pk, item)
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	a.notify(r, rv, core.OperationUpdate, updated)
	writeJSON(w, http.StatusOK, a.serializeItem(r.Context(), rv, updated, core.ActionDetail, false))
}

// writeValidationError distinguishes form errors from unexpected validator
// failures
func (a *Admin) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var formErr FormValidationError
	if errors.As(err, &formErr) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": formErr})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func (a *Admin) deleteHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	if !a.authorize(r, rv, core.OperationDelete) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	pk := mux.Vars(r)["pk"]
	a.deletePKs(w, r, rv, []string{pk})
}

func (a *Admin) bulkDeleteHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	if !a.authorize(r, rv, core.OperationDelete) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	pks := r.URL.Query()["pks"]
	if len(pks) == 0 {
		writeError(w, http.StatusBadRequest, "missing pks parameter")
		return
	}
	a.deletePKs(w, r, rv, pks)
}

func (a *Admin) deletePKs(w http.ResponseWriter, r *http.Request, rv *registeredView, pks []string) {
	// look the items up first: files and notifications must only cover
	// keys that actually exist, not everything the client asked for
	items, err := rv.view.FindByPKs(r.Context(), pks)
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	existing := make([]string, len(items))
	for i, item := range items {
		existing[i] = stringValue(item[rv.view.PKName()])
	}
	if len(existing) == 0 {
		writeError(w, http.StatusNotFound, "no such item")
		return
	}

	deleted, err := rv.view.Delete(r.Context(), existing)
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	identity := rv.view.Identity()
	for _, pk := range existing {
		if a.fileDriver != nil {
			if err := a.fileDriver.DeleteAllWithPrefix(r.Context(), identity+"/"+pk); err != nil {
				logger.FromContext(r.Context()).WithError(err).Errorf("Error 4602: cannot delete files of %s/%s", identity, pk)
			}
		}
		a.notifyPK(r, rv, core.OperationDelete, pk)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

func (a *Admin) actionHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	if !a.authorize(r, rv, core.OperationAction) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	name := mux.Vars(r)["name"]
	action, ok := rv.actions[name]
	if !ok {
		writeError(w, http.StatusNotFound, "no such action")
		return
	}
	var body struct {
		PKs []string `json:"pks"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := action.Handler(r.Context(), body.PKs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"msg": msg})
}
