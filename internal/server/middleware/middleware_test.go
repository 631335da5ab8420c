package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/agentstation/versync/internal/server/response"
	"github.com/agentstation/versync/pkg/logging"
)

func bufferLogger() (*zerolog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)
	return &logger, buf
}

// TestChain tests middleware composition order.
func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := Chain(mark("m1"), mark("m2"), mark("m3"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"m1", "m2", "m3", "handler"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

// TestLogger tests request logging and the context logger.
func TestLogger(t *testing.T) {
	logger, buf := bufferLogger()

	handler := chimw.RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var inner, summary map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &inner); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &summary); err != nil {
		t.Fatal(err)
	}

	if inner["path"] != "/api/v1/reconcile" || inner["request_id"] == "" {
		t.Errorf("handler log missing request fields: %v", inner)
	}
	if summary["status"] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418 in summary, got %v", summary["status"])
	}
	if summary["request_id"] != inner["request_id"] {
		t.Errorf("request ids differ: %v vs %v", summary["request_id"], inner["request_id"])
	}
}

// TestRecovery tests that panics become a 500 envelope.
func TestRecovery(t *testing.T) {
	logger, buf := bufferLogger()
	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	var resp response.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected envelope %+v", resp)
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Error("expected panic to be logged")
	}
}

// TestAuth tests API key validation.
func TestAuth(t *testing.T) {
	logger, _ := bufferLogger()
	cfg := DefaultAuthConfig()
	cfg.Enabled = true
	cfg.APIKey = "secret"

	handler := Auth(cfg, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		path     string
		headers  map[string]string
		expected int
	}{
		{"public path", "/health", nil, http.StatusOK},
		{"missing key", "/api/v1/lookup", nil, http.StatusUnauthorized},
		{"wrong key", "/api/v1/lookup", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", "/api/v1/lookup", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", "/api/v1/lookup", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

// TestCORS tests origin handling and preflight short-circuit.
func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://unfoldingword.org"}

	called := false
	handler := CORS(cfg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reconcile", nil)
	req.Header.Set("Origin", "https://unfoldingword.org")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("preflight should not reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://unfoldingword.org" {
		t.Errorf("unexpected allow origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Versync-Changes") {
		t.Errorf("expected change header to be exposed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q for disallowed origin", got)
	}
}

// TestRateLimit tests per-IP limiting.
func TestRateLimit(t *testing.T) {
	logger, _ := bufferLogger()
	rl := NewRateLimiter(2, logger)
	defer rl.Stop()

	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("10.0.0.1:1234", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := do("10.0.0.1:5678", ""); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for the same host on another port, got %d", code)
	}
	if code := do("10.0.0.2:1234", ""); code != http.StatusOK {
		t.Errorf("expected a different IP to pass, got %d", code)
	}
	if code := do("10.0.0.2:1234", "192.0.2.7, 10.0.0.2"); code != http.StatusOK {
		t.Errorf("expected forwarded client to get its own bucket, got %d", code)
	}
}

// TestRateLimiterEvict tests idle visitor cleanup.
func TestRateLimiterEvict(t *testing.T) {
	logger, _ := bufferLogger()
	rl := NewRateLimiter(10, logger)
	defer rl.Stop()

	rl.allow("10.0.0.1")
	rl.evict(time.Now().Add(time.Hour))

	rl.mu.Lock()
	n := len(rl.visitors)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("expected visitors to be evicted, got %d", n)
	}
	rl.Stop()
}
