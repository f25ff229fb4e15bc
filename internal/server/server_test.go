package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/config"
	"github.com/fleveque/sauce-service/internal/metrics"
	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/service"
	"github.com/fleveque/sauce-service/internal/source"
)

type stubSource struct{}

func (stubSource) Name() string { return "yandex" }

func (stubSource) Check(_ context.Context, rawURL string) (*model.Output, error) {
	return model.NewOutput(rawURL, nil), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Auth:      config.AuthConfig{APIKeys: []string{"user"}, AdminKeys: []string{"admin"}},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		Log:       config.LogConfig{Level: "info"},
		HTTP:      config.HTTPConfig{Timeout: time.Second},
		Sources:   config.SourcesConfig{SearchTimeout: time.Second},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(cfg *config.Config) *Server {
	rec := metrics.NewRecorder()
	svc := service.NewSearchService([]source.Source{stubSource{}}, nil, rec, zap.NewNop())
	return New(cfg, Deps{SearchService: svc, Metrics: rec}, zap.NewNop())
}

func request(s *Server, target, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	s := newTestServer(testConfig())

	tests := []struct {
		target string
		key    string
		want   int
	}{
		{"/healthz", "", http.StatusOK},
		{"/api/v1/sources", "", http.StatusUnauthorized},
		{"/api/v1/sources", "user", http.StatusOK},
		{"/api/v1/search?url=https://example.com/a.png", "user", http.StatusOK},
		{"/api/v1/sources/yandex/check?url=https://example.com/a.png", "user", http.StatusOK},
		{"/api/v1/admin/stats", "user", http.StatusForbidden},
		{"/api/v1/admin/stats", "admin", http.StatusServiceUnavailable}, // audit log disabled
		{"/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		if w := request(s, tt.target, tt.key); w.Code != tt.want {
			t.Errorf("GET %s (key %q): expected %d, got %d", tt.target, tt.key, tt.want, w.Code)
		}
	}
}

func TestMetricsReflectSearches(t *testing.T) {
	s := newTestServer(testConfig())

	request(s, "/api/v1/search?url=https://example.com/a.png", "user")

	body := request(s, "/metrics", "").Body.String()
	if !strings.Contains(body, `sauce_source_checks_total{outcome="success",source="yandex"} 1`) {
		t.Errorf("expected the search to be counted, got:\n%s", body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	s := newTestServer(cfg)

	if w := request(s, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
