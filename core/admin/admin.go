/*Package admin implements the JSON admin API. It aggregates model views
from the backend adapters and serves generic CRUD endpoints with filtering,
ordering, pagination, bulk actions, CSV export and file handling.

Construction follows the builder pattern:

	adm := admin.New(&admin.Builder{
		Router: router,
	})
	adm.AddView(view, admin.ViewConfig{})
*/
package admin

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/files"
	"github.com/relabs-tech/adminkit/core/logger"
	"github.com/relabs-tech/adminkit/core/notify"
	"github.com/relabs-tech/adminkit/core/schema"
)

// maxBodySize limits JSON and file upload bodies
const maxBodySize = 64 * 1024 * 1024

// Builder is the input configuration for New
type Builder struct {
	// Router is the router the admin mounts itself on. Mandatory.
	Router *mux.Router
	// BasePath is the mount point, default "/admin"
	BasePath string
	// Auth enables login sessions. When set, SessionKey must be set too
	// and every API request needs a valid session.
	Auth AuthProvider
	// SessionKey signs the JWT session cookies
	SessionKey []byte
	// SessionExpiry defaults to 12 hours
	SessionExpiry time.Duration
	// Validator validates create and edit payloads against JSON schemas
	Validator *schema.Validator
	// Notifier receives change notifications, default logging only
	Notifier notify.Notifier
	// FileDriver enables the file routes for file and image fields
	FileDriver files.Driver
	// EnableCORS adds permissive CORS headers for browser frontends
	EnableCORS bool
}

type registeredView struct {
	view    ModelView
	config  ViewConfig
	actions map[string]Action
}

// Admin serves the JSON admin API for its registered model views
type Admin struct {
	router        *mux.Router
	apiRouter     *mux.Router
	basePath      string
	views         map[string]*registeredView
	auth          AuthProvider
	sessionKey    []byte
	sessionExpiry time.Duration
	validator     *schema.Validator
	notifier      notify.Notifier
	fileDriver    files.Driver
}

// New creates a new admin and mounts it on the router. It panics on
// invalid static configuration.
func New(b *Builder) *Admin {
	if b.Router == nil {
		panic("admin: please specify a router")
	}
	basePath := b.BasePath
	if basePath == "" {
		basePath = "/admin"
	}
	if b.Auth != nil && len(b.SessionKey) == 0 {
		panic("admin: auth requires a session key")
	}
	sessionExpiry := b.SessionExpiry
	if sessionExpiry == 0 {
		sessionExpiry = 12 * time.Hour
	}
	notifier := b.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	router := b.Router.PathPrefix(basePath).Subrouter()
	logger.AddRequestID(router)
	router.Use(handlers.CompressHandler)
	if b.EnableCORS {
		router.Use(handlers.CORS(
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
			handlers.AllowCredentials(),
		))
	}

	a := &Admin{
		router:        router,
		basePath:      basePath,
		views:         make(map[string]*registeredView),
		auth:          b.Auth,
		sessionKey:    b.SessionKey,
		sessionExpiry: sessionExpiry,
		validator:     b.Validator,
		notifier:      notifier,
		fileDriver:    b.FileDriver,
	}

	if a.auth != nil {
		router.HandleFunc("/auth/login", a.loginHandler).Methods(http.MethodOptions, http.MethodPost)
		router.HandleFunc("/auth/logout", a.logoutHandler).Methods(http.MethodOptions, http.MethodGet)
	}

	a.apiRouter = router.PathPrefix("/api").Subrouter()
	if a.auth != nil {
		// the session guard covers the api only, login itself stays open
		a.addAuthMiddleware(a.apiRouter)
	}

	return a
}

// AddView registers a model view and creates its routes. It panics on
// invalid static configuration, such as a duplicate identity.
func (a *Admin) AddView(view ModelView, config ViewConfig) {
	identity := view.Identity()
	if identity == "" {
		panic("admin: view without identity")
	}
	if _, ok := a.views[identity]; ok {
		panic(fmt.Sprintf("admin: duplicate view %s", identity))
	}
	if err := view.Fields().Validate(); err != nil {
		panic(fmt.Sprintf("admin: view %s: %s", identity, err))
	}

	rv := &registeredView{view: view, config: config, actions: map[string]Action{}}
	for _, action := range config.Actions {
		if action.Name == "" || action.Handler == nil {
			panic(fmt.Sprintf("admin: view %s has an invalid action", identity))
		}
		if _, ok := rv.actions[action.Name]; ok {
			panic(fmt.Sprintf("admin: view %s has duplicate action %s", identity, action.Name))
		}
		rv.actions[action.Name] = action
	}
	a.views[identity] = rv

	rlog := logger.Default()
	rlog.Debugln("admin: create routes for " + identity)
	rlog.Debugln("  fields: " + strings.Join(view.Fields().Names(), ", "))
	rlog.Debugln("  handle route: /api/" + identity + " GET, POST, DELETE")
	rlog.Debugln("  handle route: /api/" + identity + "/{pk} GET, PUT, DELETE")

	prefix := "/" + identity
	r := a.apiRouter

	r.HandleFunc(prefix, func(w http.ResponseWriter, req *http.Request) {
		a.listHandler(w, req, rv)
	}).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc(prefix, func(w http.ResponseWriter, req *http.Request) {
		a.createHandler(w, req, rv)
	}).Methods(http.MethodOptions, http.MethodPost)
	r.HandleFunc(prefix, func(w http.ResponseWriter, req *http.Request) {
		a.bulkDeleteHandler(w, req, rv)
	}).Methods(http.MethodOptions, http.MethodDelete)

	r.HandleFunc(prefix+"/export", func(w http.ResponseWriter, req *http.Request) {
		a.exportHandler(w, req, rv)
	}).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc(prefix+"/actions/{name}", func(w http.ResponseWriter, req *http.Request) {
		a.actionHandler(w, req, rv)
	}).Methods(http.MethodOptions, http.MethodPost)

	r.HandleFunc(prefix+"/{pk}", func(w http.ResponseWriter, req *http.Request) {
		a.detailHandler(w, req, rv)
	}).Methods(http.MethodOptions, http.MethodGet)
	r.HandleFunc(prefix+"/{pk}", func(w http.ResponseWriter, req *http.Request) {
		a.editHandler(w, req, rv)
	}).Methods(http.MethodOptions, http.MethodPut)
	r.HandleFunc(prefix+"/{pk}", func(w http.ResponseWriter, req *http.Request) {
		a.deleteHandler(w, req, rv)
	}).Methods(http.MethodOptions, http.MethodDelete)

	if a.fileDriver != nil {
		rlog.Debugln("  handle route: /api/" + identity + "/{pk}/files/{field} GET, PUT, DELETE")
		r.HandleFunc(prefix+"/{pk}/files/{field}", func(w http.ResponseWriter, req *http.Request) {
			a.fileHandler(w, req, rv)
		}).Methods(http.MethodOptions, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// View returns the registered view for an identity
func (a *Admin) View(identity string) (ModelView, bool) {
	rv, ok := a.views[identity]
	if !ok {
		return nil, false
	}
	return rv.view, true
}

// notify publishes a change notification for the item. Notification
// failures never fail the request.
func (a *Admin) notify(r *http.Request, rv *registeredView, operation core.Operation, item map[string]interface{}) {
	ctx := r.Context()
	_ = a.notifier.Notify(ctx, notify.Notification{
		Identity:  rv.view.Identity(),
		Operation: operation,
		PK:        stringValue(item[rv.view.PKName()]),
		Item:      item,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestIDFromContext(ctx),
	})
}

func (a *Admin) notifyPK(r *http.Request, rv *registeredView, operation core.Operation, pk string) {
	ctx := r.Context()
	_ = a.notifier.Notify(ctx, notify.Notification{
		Identity:  rv.view.Identity(),
		Operation: operation,
		PK:        pk,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestIDFromContext(ctx),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSONBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("cannot read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
