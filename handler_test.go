package weesql_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dracory/weesql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// client keeps the session and CSRF cookies between requests.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
	token   string
}

func newClient(t *testing.T, h http.Handler) *client {
	c := &client{t: t, h: h}
	rr := c.do(http.MethodGet, "/db?action=healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	c.cookies = rr.Result().Cookies()
	c.token = rr.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, c.token)
	return c
}

func (c *client) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.token != "" {
		req.Header.Set("X-CSRF-Token", c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	return rr
}

func (c *client) json(method, target string, form url.Values) (int, envelope) {
	c.t.Helper()
	rr := c.do(method, target, form)
	var env envelope
	require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr.Code, env
}

func setupHandler(t *testing.T, o weesql.Options) (*weesql.Handler, *client) {
	t.Helper()
	d, _ := setupDispatcher(t)
	if o.SessionSecret == "" {
		o.SessionSecret = "test-secret"
	}
	h := weesql.NewHandler(d, o)
	t.Cleanup(h.Close)
	return h, newClient(t, h)
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	h := weesql.NewHandler(weesql.New(), weesql.Options{})
	weesql.Register(mux, "db", h)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/db?action=healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestHandlerWriteAndRead(t *testing.T) {
	_, c := setupHandler(t, weesql.Options{})

	code, env := c.json(http.MethodPost, "/db?action=add", url.Values{
		"table": {"users"},
		"cols":  {"name,age"},
		"vals":  {"alice,30"},
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "success", env.Status, env.Message)
	assert.Equal(t, float64(1), env.Data["id"])

	_, env = c.json(http.MethodGet, "/db?action=count&table=users", nil)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, float64(1), env.Data["count"])

	_, env = c.json(http.MethodGet, "/db?action=select&table=users&id=1&fields=name", nil)
	assert.Equal(t, true, env.Data["found"])
	assert.Equal(t, "alice", env.Data["value"])

	_, env = c.json(http.MethodGet, "/db?action=last", nil)
	// last is per connection; the session has none, so the default answers.
	assert.Equal(t, float64(1), env.Data["id"])

	_, env = c.json(http.MethodGet, "/db?"+url.Values{
		"action": {"query"}, "table": {"users"}, "where": {"age > ?"}, "arg": {"18"},
	}.Encode(), nil)
	require.Equal(t, "success", env.Status, env.Message)
	assert.Equal(t, float64(1), env.Data["total"])
	assert.Equal(t, false, env.Data["truncated"])
	rows, ok := env.Data["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].(map[string]any)["name"])

	_, env = c.json(http.MethodGet, "/db?action=rows&table=users", nil)
	assert.Equal(t, float64(1), env.Data["rows"])

	_, env = c.json(http.MethodGet, "/db?action=next&table=users", nil)
	assert.Equal(t, float64(2), env.Data["next"])

	_, env = c.json(http.MethodPost, "/db?action=edit", url.Values{
		"table": {"users"}, "cols": {"age"}, "vals": {"31"}, "id": {"1"},
	})
	require.Equal(t, "success", env.Status, env.Message)
	assert.Equal(t, float64(1), env.Data["rows_affected"])

	_, env = c.json(http.MethodPost, "/db?action=delete", url.Values{"table": {"users"}, "id": {"1"}})
	require.Equal(t, "success", env.Status, env.Message)
	assert.Equal(t, float64(1), env.Data["rows_affected"])
}

func TestHandlerErrors(t *testing.T) {
	_, c := setupHandler(t, weesql.Options{})

	t.Run("unknown action", func(t *testing.T) {
		code, env := c.json(http.MethodGet, "/db?action=drop", nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "error", env.Status)
	})

	t.Run("writes must be POST", func(t *testing.T) {
		_, env := c.json(http.MethodGet, "/db?action=add&table=users&cols=name&vals=x", nil)
		assert.Equal(t, "error", env.Status)
		assert.Contains(t, env.Message, "must be POST")
	})

	t.Run("engine error keeps its message", func(t *testing.T) {
		code, env := c.json(http.MethodGet, "/db?action=count&table=missing", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, env.Message, "no such table")

		_, env = c.json(http.MethodGet, "/db?action=error", nil)
		assert.Contains(t, env.Data["error"], "no such table")
	})

	t.Run("constraint violation", func(t *testing.T) {
		form := url.Values{"table": {"users"}, "cols": {"name"}, "vals": {"dup"}}
		_, env := c.json(http.MethodPost, "/db?action=add", form)
		require.Equal(t, "success", env.Status, env.Message)
		code, _ := c.json(http.MethodPost, "/db?action=add", form)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("invalid table", func(t *testing.T) {
		code, _ := c.json(http.MethodGet, "/db?action=count&table=bad%20name", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("mismatched cols and vals", func(t *testing.T) {
		_, env := c.json(http.MethodPost, "/db?action=add", url.Values{"table": {"users"}, "cols": {"name,age"}, "vals": {"x"}})
		assert.Equal(t, "error", env.Status)
		assert.Contains(t, env.Message, "number of cols")
	})
}

func TestHandlerCSRF(t *testing.T) {
	h, c := setupHandler(t, weesql.Options{})

	anon := &client{t: t, h: h, cookies: c.cookies}
	_, env := anon.json(http.MethodPost, "/db?action=add", url.Values{"table": {"users"}, "cols": {"name"}, "vals": {"x"}})
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "invalid or missing CSRF token", env.Message)

	forged := &client{t: t, h: h, cookies: c.cookies, token: "forged"}
	_, env = forged.json(http.MethodPost, "/db?action=add", url.Values{"table": {"users"}, "cols": {"name"}, "vals": {"x"}})
	assert.Equal(t, "error", env.Status)
}

func TestHandlerSafeMode(t *testing.T) {
	_, c := setupHandler(t, weesql.Options{SafeModeDefault: true})

	_, env := c.json(http.MethodPost, "/db?action=add", url.Values{"table": {"users"}, "cols": {"name"}, "vals": {"x"}})
	require.Equal(t, "success", env.Status, "add needs no confirmation")

	_, env = c.json(http.MethodPost, "/db?action=delete", url.Values{"table": {"users"}, "id": {"1"}})
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Message, "confirmation required")

	_, env = c.json(http.MethodPost, "/db?action=delete", url.Values{"table": {"users"}, "id": {"1"}, "confirm": {"yes"}})
	assert.Equal(t, "success", env.Status, env.Message)
}

func TestHandlerReadOnly(t *testing.T) {
	_, c := setupHandler(t, weesql.Options{ReadOnlyMode: true})

	_, env := c.json(http.MethodPost, "/db?action=add", url.Values{"table": {"users"}, "cols": {"name"}, "vals": {"x"}})
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Message, "read-only")

	_, env = c.json(http.MethodGet, "/db?action=count&table=users", nil)
	assert.Equal(t, "success", env.Status)
}

func TestHandlerNotConnected(t *testing.T) {
	h := weesql.NewHandler(weesql.New(), weesql.Options{SessionSecret: "test-secret"})
	defer h.Close()
	c := newClient(t, h)

	code, env := c.json(http.MethodGet, "/db?action=count&table=users", nil)
	assert.Equal(t, http.StatusPreconditionFailed, code)
	assert.Equal(t, "not connected to database", env.Message)

	_, env = c.json(http.MethodGet, "/db?action=cleanse&value=a'b", nil)
	assert.Equal(t, `a\'b`, env.Data["value"])

	_, env = c.json(http.MethodGet, "/db?action=id&value=12", nil)
	assert.Equal(t, true, env.Data["id"])
}

func TestHandlerSessionConnection(t *testing.T) {
	h := weesql.NewHandler(weesql.New(), weesql.Options{
		SessionSecret:         "test-secret",
		AllowAdHocConnections: true,
		EnabledDrivers:        []string{"sqlite"},
	})
	defer h.Close()
	c := newClient(t, h)

	path := filepath.Join(t.TempDir(), "session.db")
	_, env := c.json(http.MethodPost, "/db?action=connect", url.Values{"driver": {"sqlite"}, "database": {path}})
	require.Equal(t, "success", env.Status, env.Message)
	assert.Equal(t, "sqlite", env.Data["driver"])

	_, env = c.json(http.MethodGet, "/db?action=status", nil)
	assert.Equal(t, true, env.Data["ok"])

	rr := c.do(http.MethodGet, "/db?action=readyz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	_, env = c.json(http.MethodPost, "/db?action=disconnect", url.Values{})
	assert.Equal(t, "success", env.Status, env.Message)

	code, _ := c.json(http.MethodGet, "/db?action=status", nil)
	assert.Equal(t, http.StatusPreconditionFailed, code)
}

func TestHandlerAdHocDisabledByDefault(t *testing.T) {
	h := weesql.NewHandler(weesql.New(), weesql.Options{SessionSecret: "test-secret"})
	defer h.Close()
	c := newClient(t, h)

	path := filepath.Join(t.TempDir(), "session.db")
	code, env := c.json(http.MethodPost, "/db?action=connect", url.Values{"driver": {"sqlite"}, "database": {path}})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "ad-hoc connections are disabled", env.Message)
	assert.NoFileExists(t, path)
}

func TestHandlerConnectDriverNotEnabled(t *testing.T) {
	h := weesql.NewHandler(weesql.New(), weesql.Options{SessionSecret: "test-secret", AllowAdHocConnections: true})
	defer h.Close()
	c := newClient(t, h)

	path := filepath.Join(t.TempDir(), "session.db")
	code, env := c.json(http.MethodPost, "/db?action=connect", url.Values{"driver": {"sqlite"}, "database": {path}})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unsupported driver: sqlite (enabled: mysql, postgres, sqlserver)", env.Message)
	assert.NoFileExists(t, path)

	code, env = c.json(http.MethodPost, "/db?action=connect", url.Values{"driver": {"oracle"}})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, env.Message, "unsupported driver: oracle")

	// No connection was stored in the session.
	code, _ = c.json(http.MethodGet, "/db?action=status", nil)
	assert.Equal(t, http.StatusPreconditionFailed, code)
}
