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

func TestRequireKeyDisabledWhenNoKeys(t *testing.T) {
	h := RequireKey()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/pause", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireKeySkipsEmptyKeys(t *testing.T) {
	h := RequireKey("", "")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/pause", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireKeyBearerToken(t *testing.T) {
	h := RequireKey("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/pause", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireKeyAPIKeyHeader(t *testing.T) {
	h := RequireKey("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/pause", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireKeyMissingToken(t *testing.T) {
	h := RequireKey("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/pause", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authentication token")
}

func TestRequireKeyWrongToken(t *testing.T) {
	h := RequireKey("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/pause", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid authentication token")
}

func TestRequireKeyAcceptsAnyConfiguredKey(t *testing.T) {
	// Oracle routes accept either the oracle key or the admin key.
	h := RequireKey("oracle-key", "admin-key")(okHandler())

	for _, key := range []string{"oracle-key", "admin-key"} {
		req := httptest.NewRequest(http.MethodPost, "/api/oracle/price", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "key %q should authenticate", key)
	}
}
