//go:build unit

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"go-forum-app/internal/auth"
	"go-forum-app/internal/data"
	"go-forum-app/internal/logger"
	"go-forum-app/internal/session"
)

// mockSessionManager is a mock implementation of the session.Manager interface.
type mockSessionManager struct {
	destroyCalled bool
	renewCalled   int
	values        map[string]interface{}
}

// Ensure mockSessionManager implements the session.Manager interface.
var _ session.Manager = (*mockSessionManager)(nil)

func newMockSession() *mockSessionManager {
	return &mockSessionManager{values: make(map[string]interface{})}
}

func (m *mockSessionManager) LoadAndSave(next http.Handler) http.Handler { return next }
func (m *mockSessionManager) Put(ctx context.Context, key string, val interface{}) {
	m.values[key] = val
}
func (m *mockSessionManager) GetString(ctx context.Context, key string) string {
	s, _ := m.values[key].(string)
	return s
}
func (m *mockSessionManager) GetInt64(ctx context.Context, key string) int64 {
	n, _ := m.values[key].(int64)
	return n
}
func (m *mockSessionManager) PopString(ctx context.Context, key string) string { return "" }
func (m *mockSessionManager) Remove(ctx context.Context, key string)           { delete(m.values, key) }
func (m *mockSessionManager) RenewToken(ctx context.Context) error {
	m.renewCalled++
	return nil
}
func (m *mockSessionManager) Destroy(ctx context.Context) error {
	m.destroyCalled = true
	return nil
}

type mockIdentityProvider struct {
	identity    *auth.Identity
	identifyErr error
	rawToken    string
}

func (m *mockIdentityProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	tok := &oauth2.Token{AccessToken: "access-" + code}
	return tok.WithExtra(map[string]interface{}{"id_token": "raw-" + code}), nil
}

func (m *mockIdentityProvider) Identify(ctx context.Context, rawIDToken string) (*auth.Identity, error) {
	m.rawToken = rawIDToken
	return m.identity, m.identifyErr
}

type mockUserDirectory struct {
	calls int
}

func (m *mockUserDirectory) EnsureUser(ctx context.Context, username, email string) (*data.User, error) {
	m.calls++
	return &data.User{ID: 42, Username: username, Email: email}, nil
}

func newTestEnforcer(t *testing.T) *casbin.Enforcer {
	t.Helper()
	m, err := model.NewModelFromString(`
[request_definition]
r = sub, obj, act
[policy_definition]
p = sub, obj, act
[role_definition]
g = _, _
[policy_effect]
e = some(where (p.eft == allow))
[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`)
	require.NoError(t, err)
	e, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	return e
}

func TestLogoutHandler(t *testing.T) {
	mockSession := newMockSession()
	// The authenticator and enforcer are not used by the logout handler.
	authHandler := NewAuthHandler(nil, mockSession, nil, nil, logger.Nop())

	req := httptest.NewRequest("GET", "/auth/logout", nil)
	rr := httptest.NewRecorder()

	authHandler.handleLogout(rr, req)

	assert.True(t, mockSession.destroyCalled, "expected session.Destroy to be called")
	assert.Equal(t, http.StatusFound, rr.Code)
	location, err := rr.Result().Location()
	require.NoError(t, err)
	assert.Equal(t, "/", location.Path)
}

func TestLoginHandler_SetsStateCookie(t *testing.T) {
	authHandler := NewAuthHandler(&mockIdentityProvider{}, newMockSession(), nil, nil, logger.Nop())

	rr := httptest.NewRecorder()
	authHandler.handleLogin(rr, httptest.NewRequest("GET", "/auth/login", nil))

	require.Equal(t, http.StatusFound, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "state", cookies[0].Name)
	location, err := rr.Result().Location()
	require.NoError(t, err)
	assert.Equal(t, cookies[0].Value, location.Query().Get("state"))
}

func TestCallbackHandler(t *testing.T) {
	callback := func(state, cookie string) *http.Request {
		req := httptest.NewRequest("GET", "/auth/callback?code=abc&state="+state, nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "state", Value: cookie})
		}
		return req
	}

	t.Run("logs the user in", func(t *testing.T) {
		sess := newMockSession()
		idp := &mockIdentityProvider{identity: &auth.Identity{Username: "alice", Email: "alice@example.com"}}
		users := &mockUserDirectory{}
		enforcer := newTestEnforcer(t)
		h := NewAuthHandler(idp, sess, enforcer, users, logger.Nop())

		rr := httptest.NewRecorder()
		h.handleCallback(rr, callback("s1", "s1"))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "raw-abc", idp.rawToken)
		assert.Equal(t, 1, users.calls)
		assert.Equal(t, 1, sess.renewCalled)
		assert.Equal(t, "alice", sess.values[session.KeySubject])
		assert.Equal(t, int64(42), sess.values[session.KeyUserID])
		has, err := enforcer.HasRoleForUser("alice", auth.RoleMember)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("missing state cookie", func(t *testing.T) {
		h := NewAuthHandler(&mockIdentityProvider{}, newMockSession(), nil, nil, logger.Nop())
		rr := httptest.NewRecorder()
		h.handleCallback(rr, callback("s1", ""))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := NewAuthHandler(&mockIdentityProvider{}, newMockSession(), nil, nil, logger.Nop())
		rr := httptest.NewRecorder()
		h.handleCallback(rr, callback("s1", "s2"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		sess := newMockSession()
		users := &mockUserDirectory{}
		idp := &mockIdentityProvider{identifyErr: errors.New("bad signature")}
		h := NewAuthHandler(idp, sess, nil, users, logger.Nop())

		rr := httptest.NewRecorder()
		h.handleCallback(rr, callback("s1", "s1"))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Zero(t, users.calls)
		assert.Empty(t, sess.values)
	})
}
