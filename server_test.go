// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moov-io/accounts/pkg/buntdbsession"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
)

// recordingRenderer remembers the last page rendered, along with the
// data it was given, before rendering it for real.
type recordingRenderer struct {
	next renderer

	name string
	data interface{}
}

func (r *recordingRenderer) render(w http.ResponseWriter, name string, data interface{}) error {
	r.name, r.data = name, data
	return r.next.render(w, name, data)
}

func (r *recordingRenderer) reset() {
	r.name, r.data = "", nil
}

// testServer drives the full router in-process, carrying cookies between
// requests like a browser would.
type testServer struct {
	t *testing.T

	router *mux.Router
	users  *sqliteUserRepository
	auth   *auth
	views  *recordingRenderer
	jar    http.CookieJar

	// acceptLanguage is sent on every request when non-empty
	acceptLanguage string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := log.NewNopLogger()

	users, err := newSqliteUserRepository(logger, filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { users.close() })

	store, err := buntdbsession.New(":memory:", []byte("test-session-secret-test-session"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tmpls, err := loadTemplates()
	require.NoError(t, err)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	ts := &testServer{
		t:     t,
		users: users,
		auth: &auth{
			store: store,
			cost:  bcrypt.MinCost,
		},
		views: &recordingRenderer{next: tmpls},
		jar:   jar,
	}
	ts.router = setupRouter(logger, ts.auth, users, ts.views, newLocalizer(language.Japanese))
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	ts.t.Helper()

	if ts.acceptLanguage != "" {
		req.Header.Set("Accept-Language", ts.acceptLanguage)
	}
	for _, c := range ts.jar.Cookies(req.URL) {
		req.AddCookie(c)
	}
	ts.views.reset()

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	ts.jar.SetCookies(req.URL, w.Result().Cookies())
	return w
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest("GET", path, nil))
}

func (ts *testServer) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(req)
}

func (ts *testServer) url(name string) string {
	return reverse(ts.router, name)
}

// assertRedirects checks w redirected with a 302 to expected and that
// following it returns targetStatus.
func (ts *testServer) assertRedirects(w *httptest.ResponseRecorder, expected string, targetStatus int) {
	ts.t.Helper()

	require.Equal(ts.t, http.StatusFound, w.Code)
	require.Equal(ts.t, expected, w.Header().Get("Location"))

	next := ts.get(expected)
	require.Equal(ts.t, targetStatus, next.Code)
}

func (ts *testServer) userCount() int {
	ts.t.Helper()

	n, err := ts.users.count()
	require.NoError(ts.t, err)
	return n
}

func (ts *testServer) usernameExists(username string) bool {
	ts.t.Helper()

	exists, err := ts.users.usernameExists(username)
	require.NoError(ts.t, err)
	return exists
}

// sessionUserId returns the user id the cookie jar's session is logged in as
func (ts *testServer) sessionUserId() string {
	ts.t.Helper()

	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range ts.jar.Cookies(req.URL) {
		req.AddCookie(c)
	}
	userId, err := ts.auth.findUserId(req)
	require.NoError(ts.t, err)
	return userId
}

func (ts *testServer) createUser(username, email, password string) *User {
	ts.t.Helper()

	hash, err := ts.auth.hash(password)
	require.NoError(ts.t, err)

	u := &User{
		Username: username,
		Email:    email,
		Password: hash,
	}
	require.NoError(ts.t, ts.users.create(u))
	return u
}

func (ts *testServer) signupForm() *signupForm {
	ts.t.Helper()

	require.Equal(ts.t, "accounts/signup.html", ts.views.name)
	data, ok := ts.views.data.(signupPage)
	require.True(ts.t, ok, "got %T", ts.views.data)
	return data.Form
}

func (ts *testServer) loginForm() *loginForm {
	ts.t.Helper()

	require.Equal(ts.t, "accounts/login.html", ts.views.name)
	data, ok := ts.views.data.(loginPage)
	require.True(ts.t, ok, "got %T", ts.views.data)
	return data.Form
}
