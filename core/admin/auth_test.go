package admin_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/admin"
)

// staticAuth knows two accounts: alice is an admin, bob is an editor.
type staticAuth struct{}

func (staticAuth) Login(ctx context.Context, username, password string) (string, []string, error) {
	switch {
	case username == "alice" && password == "secret":
		return "alice", []string{"admin"}, nil
	case username == "bob" && password == "secret":
		return "bob", []string{"editor"}, nil
	}
	return "", nil, errors.New("invalid credentials")
}

func newAuthFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, func(b *admin.Builder) {
		b.Auth = staticAuth{}
		b.SessionKey = []byte("test-session-key")
	}, admin.ViewConfig{
		Permits: []admin.Permit{
			{Role: "editor", Operations: []core.Operation{core.OperationList, core.OperationRead}},
		},
	})
}

// sessionClient returns a client with a cookie jar so the session cookie
// survives across requests
func sessionClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func login(t *testing.T, f *fixture, client *http.Client, username, password string) *http.Response {
	t.Helper()
	body := strings.NewReader(`{"username": "` + username + `", "password": "` + password + `"}`)
	resp, err := client.Post(f.server.URL+"/admin/auth/login", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestLoginRequired(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := http.Get(f.server.URL + "/admin/api/article")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	client := sessionClient(t)

	resp := login(t, f, client, "alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	client := sessionClient(t)

	body := strings.NewReader(`{"username": "alice", "password": "secret"}`)
	resp, err := client.Post(f.server.URL+"/admin/auth/login", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out admin.Authorization
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "alice", out.Identity)
	assert.Equal(t, []string{"admin"}, out.Roles)

	resp, err = client.Get(f.server.URL + "/admin/api/article")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(f.server.URL + "/admin/auth/logout")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(f.server.URL + "/admin/api/article")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPermits(t *testing.T) {
	f := newAuthFixture(t)
	client := sessionClient(t)
	require.Equal(t, http.StatusOK, login(t, f, client, "bob", "secret").StatusCode)

	// the editor permit covers list and read
	resp, err := client.Get(f.server.URL + "/admin/api/article")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(f.server.URL + "/admin/api/article/1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// but not delete
	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/admin/api/article/1", nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// views without permits allow every authenticated identity
	resp, err = client.Get(f.server.URL + "/admin/api/author")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminRoleBypassesPermits(t *testing.T) {
	f := newAuthFixture(t)
	client := sessionClient(t)
	require.Equal(t, http.StatusOK, login(t, f, client, "alice", "secret").StatusCode)

	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/admin/api/article/1", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTamperedSessionIsRejected(t *testing.T) {
	f := newAuthFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/admin/api/article", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "adminkit_jwt", Value: "not.a.token"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
