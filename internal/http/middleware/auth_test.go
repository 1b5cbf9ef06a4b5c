package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPIKey_RejectsMissingKey(t *testing.T) {
	handler := APIKey("secret")(okHandler())

	rec := doRequest(handler, "/api/breaks", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKey_AcceptsHeaderAndBearer(t *testing.T) {
	handler := APIKey("secret")(okHandler())

	rec := doRequest(handler, "/api/breaks", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(handler, "/api/breaks", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(handler, "/api/breaks", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKey_ExemptPaths(t *testing.T) {
	handler := APIKey("secret")(okHandler())

	for _, path := range []string{
		"/api/health",
		"/api/status/now",
		"/api/playout/event",
		"/openapi.json",
		"/docs",
	} {
		rec := doRequest(handler, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAPIKey_EmptyKeyDisablesCheck(t *testing.T) {
	handler := APIKey("")(okHandler())

	rec := doRequest(handler, "/api/breaks", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP_StoresRemoteAddr(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIPFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/api/playout/event", nil)
	req.RemoteAddr = "127.0.0.1:54321"
	ClientIP(inner).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "127.0.0.1", seen)
	assert.True(t, IsLoopback(seen))
	assert.False(t, IsLoopback("10.0.0.8"))
	assert.False(t, IsLoopback(""))
}
