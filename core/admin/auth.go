package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/logger"
)

// contextKey is the type for context keys
type contextKey string

const contextKeyAuthorization contextKey = "_authorization_"

// sessionCookie is the name of the JWT session cookie
const sessionCookie = "adminkit_jwt"

// AuthProvider validates login credentials. On success it returns the
// authenticated identity and its roles.
type AuthProvider interface {
	Login(ctx context.Context, username, password string) (identity string, roles []string, err error)
}

// Authorization carries the authenticated identity and its roles through
// the request context
type Authorization struct {
	Identity string   `json:"identity"`
	Roles    []string `json:"roles"`
}

// HasRole returns true if the authorization contains the requested role
func (a *Authorization) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, hasRole := range a.Roles {
		if role == hasRole {
			return true
		}
	}
	return false
}

// IsAuthorized returns true if the authorization may perform the operation
// according to the permits. An empty permit list allows every authenticated
// identity; the admin role is always authorized.
func (a *Authorization) IsAuthorized(operation core.Operation, permits []Permit) bool {
	if a.HasRole("admin") {
		return true
	}
	if len(permits) == 0 {
		return true
	}
	for _, permit := range permits {
		if permit.Role != "everybody" && !a.HasRole(permit.Role) {
			continue
		}
		for _, op := range permit.Operations {
			if op == operation {
				return true
			}
		}
	}
	return false
}

// ContextWithAuthorization returns a new context carrying the authorization
func ContextWithAuthorization(ctx context.Context, auth *Authorization) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, auth)
}

// AuthorizationFromContext retrieves the authorization from the context, or
// nil when the request is unauthenticated
func AuthorizationFromContext(ctx context.Context) *Authorization {
	auth, _ := ctx.Value(contextKeyAuthorization).(*Authorization)
	return auth
}

type sessionClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// issueSession writes a signed session cookie for the identity
func (a *Admin) issueSession(w http.ResponseWriter, identity string, roles []string) error {
	claims := sessionClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.sessionExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.sessionKey)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// clearSession expires the session cookie
func clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// authorizationFromRequest validates the session cookie and returns the
// authorization, or nil for unauthenticated requests
func (a *Admin) authorizationFromRequest(r *http.Request) *Authorization {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.sessionKey, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	return &Authorization{Identity: claims.Subject, Roles: claims.Roles}
}

// addAuthMiddleware rejects unauthenticated requests with 401 and adds the
// authorization to the context
func (a *Admin) addAuthMiddleware(router *mux.Router) {
	router.Use(func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := a.authorizationFromRequest(r)
			if auth == nil {
				http.Error(w, "not authorized", http.StatusUnauthorized)
				return
			}
			ctx := ContextWithAuthorization(r.Context(), auth)
			ctx, _ = logger.ContextWithIdentity(ctx, auth.Identity)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginHandler validates credentials against the auth provider and issues
// the session cookie
func (a *Admin) loginHandler(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := decodeJSONBody(r, &request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	identity, roles, err := a.auth.Login(r.Context(), request.Username, request.Password)
	if err != nil {
		logger.FromContext(r.Context()).Infof("login failed for %q", request.Username)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := a.issueSession(w, identity, roles); err != nil {
		logger.FromContext(r.Context()).WithError(err).Error("Error 4501: cannot issue session")
		http.Error(w, "Error 4501", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"identity": identity,
		"roles":    roles,
	})
}

func (a *Admin) logoutHandler(w http.ResponseWriter, r *http.Request) {
	clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
