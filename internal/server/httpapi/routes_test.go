package httpapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/socialnet/internal/server/config"
	"github.com/dmitrijs2005/socialnet/internal/server/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORS(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodOptions, "/auth/login", "",
		withHeader("Origin", "http://localhost:3000"),
		withHeader("Access-Control-Request-Method", http.MethodPost))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = f.do(http.MethodGet, "/healthz", "", withHeader("Origin", "http://evil.example"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code, "requests without Origin pass")
}

func TestHealthEndpoints(t *testing.T) {
	var pingErr error
	f := newAPIFixture(t, func(_ *config.Config, d *Deps) {
		d.Ready = pingerFunc(func(context.Context) error { return pingErr })
	})

	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "").Code)

	pingErr = errBoom
	rec = f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT READY", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newAPIFixture(t, func(_ *config.Config, d *Deps) {
		d.Metrics = metrics.New(reg)
		d.Gatherer = reg
	})

	f.do(http.MethodGet, "/api/users/not-a-uuid", "")

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `socialnet_http_requests_total{method="GET",route="/api/users/{id}",status="400"} 1`)
}

func TestNewHandler_RejectsUnknownSameSite(t *testing.T) {
	cfg := testConfig()
	cfg.CookieSameSite = "sideways"
	_, err := NewHandler(cfg, Deps{})
	assert.Error(t, err)
}
