package admin

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/files"
	"github.com/relabs-tech/adminkit/core/logger"
)

// presignExpiry is how long handed-out file URLs stay valid
const presignExpiry = 15 * time.Minute

// fileHandler serves the file routes of a view. Uploaded content goes to
// the file driver under {identity}/{pk}/{field}; the item itself keeps the
// file metadata in the field value.
func (a *Admin) fileHandler(w http.ResponseWriter, r *http.Request, rv *registeredView) {
	vars := mux.Vars(r)
	pk := vars["pk"]
	fieldName := vars["field"]

	field, ok := rv.view.Fields().Get(fieldName)
	if !ok || !field.Kind.IsFile() {
		writeError(w, http.StatusNotFound, "no such file field")
		return
	}

	operation := core.OperationRead
	if r.Method == http.MethodPut || r.Method == http.MethodDelete {
		operation = core.OperationUpdate
	}
	if !a.authorize(r, rv, operation) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}

	item, err := rv.view.FindByPK(r.Context(), pk)
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}

	key := rv.view.Identity() + "/" + pk + "/" + fieldName

	switch r.Method {
	case http.MethodGet:
		a.serveFile(w, r, item, fieldName, key)
	case http.MethodPut:
		a.uploadFile(w, r, rv, pk, fieldName, key)
	case http.MethodDelete:
		a.deleteFile(w, r, rv, pk, fieldName, key)
	}
}

// serveFile redirects to a pre-signed URL when the driver supports it,
// otherwise it streams the content itself. The file metadata travels as
// canonical response headers, content_type becomes Content-Type.
func (a *Admin) serveFile(w http.ResponseWriter, r *http.Request, item map[string]interface{}, fieldName, key string) {
	metadata, _ := item[fieldName].(map[string]interface{})
	if metadata == nil {
		writeError(w, http.StatusNotFound, "no file uploaded")
		return
	}
	for property, value := range metadata {
		w.Header().Set(core.PropertyNameToCanonicalHeader(property), stringValue(value))
	}

	url, err := a.fileDriver.PresignedURL(r.Context(), files.Get, key, presignExpiry)
	if err == nil {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}
	if !errors.Is(err, files.ErrPresignNotSupported) {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4604: cannot presign %s", key)
		writeError(w, http.StatusInternalServerError, "Error 4604")
		return
	}

	rc, err := a.fileDriver.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "no file uploaded")
		return
	}
	defer rc.Close()
	_, _ = io.Copy(w, rc)
}

func (a *Admin) uploadFile(w http.ResponseWriter, r *http.Request, rv *registeredView, pk, fieldName, key string) {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read upload")
		return
	}
	if err := a.fileDriver.Put(r.Context(), key, bytes.NewReader(data)); err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4605: cannot store %s", key)
		writeError(w, http.StatusInternalServerError, "Error 4605")
		return
	}

	// file metadata comes in as canonical headers, Content-Type becomes
	// content_type. The name query parameter wins over a Name header.
	metadata := map[string]interface{}{
		"name": fieldName,
		"size": len(data),
		"key":  key,
	}
	for header := range r.Header {
		switch property := core.CanonicalHeaderToPropertyName(header); property {
		case "name", "content_type":
			metadata[property] = r.Header.Get(header)
		}
	}
	if name := r.URL.Query().Get("name"); name != "" {
		metadata["name"] = name
	}
	updated, err := rv.view.Edit(r.Context(), pk, map[string]interface{}{fieldName: metadata})
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	a.notify(r, rv, core.OperationUpdate, updated)
	writeJSON(w, http.StatusOK, metadata)
}

func (a *Admin) deleteFile(w http.ResponseWriter, r *http.Request, rv *registeredView, pk, fieldName, key string) {
	if err := a.fileDriver.Delete(r.Context(), key); err != nil {
		logger.FromContext(r.Context()).WithError(err).Debugf("cannot delete %s", key)
	}
	updated, err := rv.view.Edit(r.Context(), pk, map[string]interface{}{fieldName: nil})
	if err != nil {
		a.writeBackendError(w, r, err)
		return
	}
	a.notify(r, rv, core.OperationUpdate, updated)
	w.WriteHeader(http.StatusNoContent)
}
