package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltyorg/blogr/internal/app"
	"github.com/saltyorg/blogr/internal/apptest"
	"github.com/saltyorg/blogr/internal/database"
	"github.com/saltyorg/blogr/internal/web"
)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, a *app.App) *client {
	t.Helper()

	server, err := web.NewServer(a)
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &client{
		t:    t,
		base: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) get(path string) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Get(c.base + path)
	require.NoError(c.t, err)
	return resp, readBody(c.t, resp)
}

func (c *client) post(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.PostForm(c.base+path, form)
	require.NoError(c.t, err)
	return resp, readBody(c.t, resp)
}

func (c *client) login(username, password string) *http.Response {
	c.t.Helper()
	resp, _ := c.post("/auth/login", url.Values{"username": {username}, "password": {password}})
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func withConn(t *testing.T, a *app.App, fn func(ctx context.Context, conn *database.Conn)) {
	t.Helper()
	err := a.Run(context.Background(), func(ctx context.Context) error {
		conn, err := database.Get(ctx)
		if err != nil {
			return err
		}
		fn(ctx, conn)
		return nil
	})
	require.NoError(t, err)
}

func TestHello(t *testing.T) {
	c := newClient(t, apptest.New(t))

	resp, body := c.get("/hello")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello, World!", body)
}

func TestRegister(t *testing.T) {
	a := apptest.New(t)
	c := newClient(t, a)

	resp, _ := c.get("/auth/register")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.post("/auth/register", url.Values{"username": {"a"}, "password": {"a"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth/login", resp.Header.Get("Location"))

	withConn(t, a, func(ctx context.Context, conn *database.Conn) {
		user, err := conn.GetUserByUsername(ctx, "a")
		require.NoError(t, err)
		assert.NotNil(t, user)
	})
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		username string
		password string
		message  string
	}{
		{"", "", "Username is required."},
		{"a", "", "Password is required."},
		{"test", "test", "already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			c := newClient(t, apptest.New(t))

			resp, _ := c.post("/auth/register", url.Values{"username": {tt.username}, "password": {tt.password}})
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, "/auth/register", resp.Header.Get("Location"))

			_, body := c.get("/auth/register")
			assert.Contains(t, body, tt.message)
		})
	}
}

func TestLogin(t *testing.T) {
	c := newClient(t, apptest.New(t))

	resp, _ := c.get("/auth/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = c.login("test", "test")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := c.get("/")
	assert.Contains(t, body, "<span>test</span>")
	assert.Contains(t, body, "Log Out")
}

func TestLogin_Validation(t *testing.T) {
	tests := []struct {
		username string
		password string
		message  string
	}{
		{"a", "test", "Incorrect username."},
		{"test", "a", "Incorrect password."},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			c := newClient(t, apptest.New(t))

			resp := c.login(tt.username, tt.password)
			assert.Equal(t, "/auth/login", resp.Header.Get("Location"))

			_, body := c.get("/auth/login")
			assert.Contains(t, body, tt.message)
		})
	}
}

func TestLogout(t *testing.T) {
	c := newClient(t, apptest.New(t))

	c.login("test", "test")
	resp, _ := c.get("/auth/logout")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := c.get("/")
	assert.NotContains(t, body, "Log Out")
	assert.Contains(t, body, "Log In")
}

func TestIndex(t *testing.T) {
	c := newClient(t, apptest.New(t))

	_, body := c.get("/")
	assert.Contains(t, body, "Log In")
	assert.Contains(t, body, "Register")

	c.login("test", "test")
	_, body = c.get("/")
	assert.Contains(t, body, "Log Out")
	assert.Contains(t, body, "test title")
	assert.Contains(t, body, "by test on 2018-01-01")
	assert.Contains(t, body, "test\nbody")
	assert.Contains(t, body, `href="/1/update"`)
}

func TestLoginRequired(t *testing.T) {
	c := newClient(t, apptest.New(t))

	for _, path := range []string{"/create", "/1/update"} {
		resp, _ := c.get(path)
		assert.Equal(t, "/auth/login", resp.Header.Get("Location"), path)
	}
	for _, path := range []string{"/create", "/1/update", "/1/delete"} {
		resp, _ := c.post(path, url.Values{})
		assert.Equal(t, "/auth/login", resp.Header.Get("Location"), path)
	}
}

func TestAuthorRequired(t *testing.T) {
	a := apptest.New(t)
	c := newClient(t, a)

	// Hand the post to the other user
	withConn(t, a, func(ctx context.Context, conn *database.Conn) {
		_, err := conn.ExecContext(ctx, "UPDATE post SET author_id = 2 WHERE id = 1")
		require.NoError(t, err)
	})

	c.login("test", "test")

	resp, _ := c.post("/1/update", url.Values{"title": {"x"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = c.post("/1/delete", url.Values{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Current user doesn't see edit link
	_, body := c.get("/")
	assert.NotContains(t, body, `href="/1/update"`)
}

func TestExistsRequired(t *testing.T) {
	c := newClient(t, apptest.New(t))
	c.login("test", "test")

	resp, body := c.post("/2/update", url.Values{"title": {"x"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Post id 2 doesn't exist.")

	resp, _ = c.post("/2/delete", url.Values{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreate(t *testing.T) {
	a := apptest.New(t)
	c := newClient(t, a)
	c.login("test", "test")

	resp, _ := c.get("/create")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.post("/create", url.Values{"title": {"created"}, "body": {""}})
	assert.Equal(t, "/", resp.Header.Get("Location"))

	withConn(t, a, func(ctx context.Context, conn *database.Conn) {
		count, err := conn.CountPosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestUpdate(t *testing.T) {
	a := apptest.New(t)
	c := newClient(t, a)
	c.login("test", "test")

	resp, body := c.get("/1/update")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "test title")

	resp, _ = c.post("/1/update", url.Values{"title": {"updated"}, "body": {""}})
	assert.Equal(t, "/", resp.Header.Get("Location"))

	withConn(t, a, func(ctx context.Context, conn *database.Conn) {
		post, err := conn.GetPost(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, post)
		assert.Equal(t, "updated", post.Title)
	})
}

func TestCreateUpdate_Validation(t *testing.T) {
	for _, path := range []string{"/create", "/1/update"} {
		t.Run(strings.TrimPrefix(path, "/"), func(t *testing.T) {
			a := apptest.New(t)
			c := newClient(t, a)
			c.login("test", "test")

			resp, body := c.post(path, url.Values{"title": {""}, "body": {"draft kept"}})
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Empty(t, resp.Header.Get("Location"))
			assert.Contains(t, body, "Title is required.")
			assert.Contains(t, body, "draft kept")

			withConn(t, a, func(ctx context.Context, conn *database.Conn) {
				count, err := conn.CountPosts(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, count)

				post, err := conn.GetPost(ctx, 1)
				require.NoError(t, err)
				require.NotNil(t, post)
				assert.Equal(t, "test title", post.Title)
			})
		})
	}
}

func TestDelete(t *testing.T) {
	a := apptest.New(t)
	c := newClient(t, a)
	c.login("test", "test")

	resp, _ := c.post("/1/delete", url.Values{})
	assert.Equal(t, "/", resp.Header.Get("Location"))

	withConn(t, a, func(ctx context.Context, conn *database.Conn) {
		post, err := conn.GetPost(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, post)
	})
}

func TestRequestScope_ClosedAfterRequest(t *testing.T) {
	a := apptest.New(t)

	var scopes []*database.Scope
	var opened []bool
	a.OnTeardown(func(ctx context.Context, err error) {
		// Runs before the database teardown registered by app.New
		scope := database.ScopeFrom(ctx)
		scopes = append(scopes, scope)
		opened = append(opened, scope.Opened())
	})

	server, err := web.NewServer(a)
	require.NoError(t, err)

	for _, path := range []string{"/hello", "/"} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	require.Len(t, scopes, 2)
	assert.Equal(t, []bool{false, true}, opened, "only the index page touches the database")
	assert.NotSame(t, scopes[0], scopes[1])
	for _, scope := range scopes {
		assert.False(t, scope.Opened(), "scope must be closed after teardown")
	}
}

func TestStatic(t *testing.T) {
	c := newClient(t, apptest.New(t))

	resp, body := c.get("/static/style.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "font-family")
}
