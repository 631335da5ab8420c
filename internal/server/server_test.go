package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/versync"
	"github.com/agentstation/versync/internal/metrics"
	"github.com/agentstation/versync/internal/server/handlers"
	"github.com/agentstation/versync/pkg/logging"
)

const page = `<html><body>
<div class="wp-block-obb-toggle-block">
  <p>Status: v84 Released</p>
  <a href="https://git.door43.org/unfoldingWord/en_tn/releases/tag/v84">Release notes</a>
</div>
<p><a href="/about/">About</a></p>
</body></html>`

func newClient(t *testing.T, opts ...versync.Option) versync.Client {
	t.Helper()
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"data":[{"name":"en_tn","branch_or_tag_name":"v86"}]}`))
	}))
	t.Cleanup(catalog.Close)

	opts = append([]versync.Option{
		versync.WithEndpoint(catalog.URL),
		versync.WithLogger(logging.NewNopLogger()),
	}, opts...)
	client, err := versync.New(opts...)
	require.NoError(t, err)
	return client
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) http.Handler {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewNopLogger())}, opts...)
	srv, err := New(newClient(t), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(srv.stop)
	return srv.Handler()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimit = 0
	cfg.MetricsEnabled = false
	return cfg
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.AuthEnabled = true
	_, err = New(newClient(t), cfg)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, testConfig())

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		data := decode(t, rec)["data"].(map[string]any)
		assert.Equal(t, "healthy", data["status"])
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	}
}

func TestReconcileHTML(t *testing.T) {
	h := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile?resource=en_tn=v85", strings.NewReader(page))
	req.Header.Set("Content-Type", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.NotEqual(t, "0", rec.Header().Get(handlers.ChangesHeader))
	body := rec.Body.String()
	assert.Contains(t, body, "releases/tag/v86")
	assert.Contains(t, body, "Status: v86 Released")
	assert.Contains(t, body, "https://unfoldingword.org/about/")
}

func TestReconcileJSON(t *testing.T) {
	h := newTestServer(t, testConfig())

	payload, err := json.Marshal(map[string]any{
		"html":      page,
		"resources": map[string]string{"en_tn": "v85"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	assert.Contains(t, data["html"], "releases/tag/v86")
	assert.NotNil(t, data["report"])
}

func TestReconcileErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 64
	h := newTestServer(t, cfg)

	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		status      int
	}{
		{"missing resources", "/api/v1/reconcile", "text/html", page[:40], http.StatusBadRequest},
		{"bad pair", "/api/v1/reconcile?resource=en_tn", "text/html", page[:40], http.StatusBadRequest},
		{"bad json", "/api/v1/reconcile", "application/json", "{", http.StatusBadRequest},
		{"too large", "/api/v1/reconcile?resource=en_tn=v85", "text/html", page, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotNil(t, decode(t, rec)["error"])
		})
	}
}

func TestLookup(t *testing.T) {
	h := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lookup?repo=en_tn,en_tq", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, map[string]any{"en_tn": "v86"}, data["versions"])
	assert.Equal(t, []any{"en_tq"}, data["missing"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lookup", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouting(t *testing.T) {
	h := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reconcile", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRootPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.PathPrefix = "/"
	h := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lookup?repo=en_tn", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = true
	cfg.APIKey = "secret"
	h := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lookup?repo=en_tn", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookup?repo=en_tn", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 2
	h := newTestServer(t, cfg)

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSEnabled = true
	cfg.CORSOrigins = []string{"https://www.unfoldingword.org"}
	h := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reconcile", nil)
	req.Header.Set("Origin", "https://www.unfoldingword.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://www.unfoldingword.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegisterer(reg))

	cfg := testConfig()
	cfg.MetricsEnabled = true
	srv, err := New(newClient(t, versync.WithMetrics(m)), cfg,
		WithLogger(logging.NewNopLogger()), WithGatherer(reg))
	require.NoError(t, err)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lookup?repo=en_tn", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "versync_registry_requests_total")
}

func TestListenAndServeShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	srv, err := New(newClient(t), cfg, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
