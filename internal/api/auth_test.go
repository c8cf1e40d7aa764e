package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"belleza/internal/config"

	"github.com/stretchr/testify/assert"
)

func authTestConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 8080},
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Key: "valid-key", Extra: "valid-extra", Permissions: []string{"read:slots", "write:reservations"}},
				{Key: "services-key", Extra: "services-extra", Permissions: []string{"read:services"}},
				{Key: "open-key", Extra: "open-extra"},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 100, Burst: 200},
	}
}

func wrapOK(cfg config.APIConfig) http.Handler {
	auth := NewHTTPAuth(cfg)
	return auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doAuthRequest(t *testing.T, handler http.Handler, path, key, extra string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	if extra != "" {
		req.Header.Set("x-api-extra", extra)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHTTPAuth(t *testing.T) {
	handler := wrapOK(authTestConfig())

	t.Run("Success", func(t *testing.T) {
		rec := doAuthRequest(t, handler, "/api/v1/slots?employee_id=e&date=2026-10-01", "valid-key", "valid-extra")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MissingHeaders", func(t *testing.T) {
		rec := doAuthRequest(t, handler, "/api/v1/slots", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		rec := doAuthRequest(t, handler, "/api/v1/slots", "bogus", "valid-extra")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("InvalidExtra", func(t *testing.T) {
		rec := doAuthRequest(t, handler, "/api/v1/slots", "valid-key", "bogus")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		rec := doAuthRequest(t, handler, "/api/v1/slots", "services-key", "services-extra")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("EmptyPermissionsAllowAll", func(t *testing.T) {
		rec := doAuthRequest(t, handler, "/api/v1/slots", "open-key", "open-extra")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("HealthBypassesAuth", func(t *testing.T) {
		rec := doAuthRequest(t, handler, "/health", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHTTPAuthDisabled(t *testing.T) {
	cfg := authTestConfig()
	cfg.Enabled = false
	handler := wrapOK(cfg)

	rec := doAuthRequest(t, handler, "/api/v1/slots", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAuthRateLimit(t *testing.T) {
	cfg := authTestConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 1}
	handler := wrapOK(cfg)

	rec := doAuthRequest(t, handler, "/api/v1/slots", "valid-key", "valid-extra")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doAuthRequest(t, handler, "/api/v1/slots", "valid-key", "valid-extra")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRequiredPermissionHTTP(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/slots", "read:slots"},
		{http.MethodGet, "/api/v1/services", "read:services"},
		{http.MethodGet, "/api/v1/exports/agenda", "read:exports"},
		{http.MethodPost, "/api/v1/reservations", "write:reservations"},
		{http.MethodPost, "/api/v1/reservations/5/confirm", "write:reservations"},
		{http.MethodGet, "/api/v1/reservations/pub-1", "read:reservations"},
		{http.MethodGet, "/api/v1/clients/c1/reservations", "read:reservations"},
		{http.MethodGet, "/api/v1/employees/e1/reservations", "read:reservations"},
		{http.MethodGet, "/api/v1/exports/reservations", "read:exports"},
		{http.MethodGet, "/health", ""},
	}

	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, nil)
		assert.Equal(t, c.want, requiredPermissionHTTP(req), "%s %s", c.method, c.path)
	}
}
