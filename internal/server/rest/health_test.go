package rest

import (
	"net/http"
	"testing"

	"github.com/sgics/sgics/internal/server/health"
	"github.com/stretchr/testify/assert"
)

func TestLiveness(t *testing.T) {
	r := newTestRouter(t, newFakeUsers(), nil, nil)

	for _, p := range []string{"/healthz", "/livez", "/", "/live/"} {
		w := do(t, r, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, p)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String(), p)
	}

	w := do(t, r, http.MethodHead, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness_OK(t *testing.T) {
	r := newTestRouter(t, newFakeUsers(), fakeReadiness{Status: health.StatusOK}, nil)

	for _, p := range []string{"/readyz", "/ready/"} {
		w := do(t, r, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, p)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String(), p)
	}
}

func TestReadiness_NoChecker(t *testing.T) {
	r := newTestRouter(t, newFakeUsers(), nil, nil)

	w := do(t, r, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness_Unavailable(t *testing.T) {
	r := newTestRouter(t, newFakeUsers(), fakeReadiness{
		Status: health.StatusUnavailable,
		Checks: map[string]string{"database": "dial tcp 10.0.3.7:5432: connection refused"},
	}, nil)

	w := do(t, r, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"database":"unavailable"}}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "10.0.3.7")

	w = do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "liveness does not depend on readiness")
}
