package weesql_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dracory/weesql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = weesql.GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	weesql.RequestLogger(zap.New(core), next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/db?action=count", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-Id"))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "count", fields["action"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, seen, fields["id"])
}

func TestDispatcherLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d := weesql.New(weesql.WithLogger(zap.New(core)))

	_, err := d.Count(t.Context(), "users", weesql.Condition{})
	require.Error(t, err)

	entries := logs.FilterMessage("action failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "count", entries[0].ContextMap()["action"])
}
