package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/use-agent/regionscope/config"
	"github.com/use-agent/regionscope/models"
)

type fixedService struct{}

func (fixedService) Lookup(_ context.Context, raw string) models.LookupResult {
	return models.LookupResult{Success: true, Identifier: raw}
}

func (fixedService) LookupBatch(_ context.Context, ids []string) ([]models.LookupResult, error) {
	return nil, nil
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

func serve(t *testing.T, cfg *config.Config, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total", Help: "test"}))

	w := httptest.NewRecorder()
	NewRouter(ctx, fixedService{}, cfg, reg).ServeHTTP(w, req)
	return w
}

func TestRouter_Metrics(t *testing.T) {
	w := serve(t, testConfig(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "router_test_total") {
		t.Error("metrics body missing registered counter")
	}
}

func TestRouter_CORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	w := serve(t, testConfig(), req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestRouter_AuthOnlyGuardsAPI(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret"}

	if w := serve(t, cfg, httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", w.Code)
	}
	if w := serve(t, cfg, httptest.NewRequest(http.MethodGet, "/api/user-region?username=a", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("/api without key status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/user-region?username=a", nil)
	req.Header.Set("X-API-Key", "secret")
	if w := serve(t, cfg, req); w.Code != http.StatusOK {
		t.Errorf("/api with key status = %d, want 200", w.Code)
	}
}
