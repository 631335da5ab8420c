package versync

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/logging"
	"github.com/agentstation/versync/pkg/reconcile"
	"github.com/agentstation/versync/pkg/registry"
)

const catalogResponse = `{"ok":true,"data":[
	{"name":"en_tn","branch_or_tag_name":"v86"},
	{"name":"en_ult","branch_or_tag_name":"v48"}
]}`

func newCatalogServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "unfoldingWord", r.URL.Query().Get("owner"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func loadPage(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "resources.html"))
	require.NoError(t, err)
	return data
}

func baselineRequest() reconcile.Request {
	return reconcile.NewRequest(
		reconcile.Entry{Resource: "en_tn", Version: "v85"},
		reconcile.Entry{Resource: "en_ult", Version: "v47"},
		reconcile.Entry{Resource: "en_tq", Version: "v41"},
	)
}

func TestReconcileHTML(t *testing.T) {
	srv, calls := newCatalogServer(t, catalogResponse)
	vs, err := New(WithEndpoint(srv.URL), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	var updated, missing []string
	vs.OnResourceUpdated(func(o reconcile.Outcome) { updated = append(updated, o.Resource) })
	vs.OnResourceMissing(func(o reconcile.Outcome) { missing = append(missing, o.Resource) })
	changes := 0
	vs.OnChange(func(reconcile.RegionChange) { changes++ })

	var out bytes.Buffer
	report, err := vs.ReconcileHTML(context.Background(), bytes.NewReader(loadPage(t)), &out, baselineRequest())
	require.NoError(t, err)
	html := out.String()

	assert.Contains(t, html, "https://git.door43.org/unfoldingWord/en_tn/releases/download/v86/en_tn_v86.pdf")
	assert.Contains(t, html, "https://git.door43.org/unfoldingWord/en_tn/releases/tag/v86")
	assert.Contains(t, html, "Status: v86 Released")
	assert.Contains(t, html, "https://preview.door43.org/u/unfoldingWord/en_ult/v48")
	assert.Contains(t, html, "https://git.door43.org/unfoldingWord/en_tq/releases/tag/v41")
	assert.Contains(t, html, "Status: v41 Released")
	assert.NotContains(t, html, "v84")

	assert.Contains(t, html, `href="https://unfoldingword.org/about/"`)
	assert.Contains(t, html, `src="https://unfoldingword.org/logo.png"`)
	assert.Len(t, report.Relative, 3)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"en_tn", "en_ult"}, updated)
	assert.Equal(t, []string{"en_tq"}, missing)
	assert.Equal(t, len(report.Changes), changes)

	tq, ok := report.Outcome("en_tq")
	require.True(t, ok)
	assert.Equal(t, reconcile.StatusMissing, tq.Status)
}

func TestReconcileHTMLIdempotent(t *testing.T) {
	srv, _ := newCatalogServer(t, catalogResponse)
	vs, err := New(WithEndpoint(srv.URL), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	req := reconcile.NewRequest(
		reconcile.Entry{Resource: "en_tn", Version: "v86"},
		reconcile.Entry{Resource: "en_ult", Version: "v48"},
	)

	var first bytes.Buffer
	_, err = vs.ReconcileHTML(context.Background(), bytes.NewReader(loadPage(t)), &first, req)
	require.NoError(t, err)

	var second bytes.Buffer
	report, err := vs.ReconcileHTML(context.Background(), bytes.NewReader(first.Bytes()), &second, req)
	require.NoError(t, err)

	assert.False(t, report.Changed())
	assert.Empty(t, report.Relative)
	assert.Equal(t, first.String(), second.String())
}

func TestReconcileHTMLRegistryDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	vs, err := New(WithEndpoint(srv.URL), WithLogger(logging.NewNopLogger()), WithRelativeLinks(false))
	require.NoError(t, err)

	var out bytes.Buffer
	report, err := vs.ReconcileHTML(context.Background(), bytes.NewReader(loadPage(t)), &out, baselineRequest())
	require.NoError(t, err)

	assert.True(t, report.Metadata.RegistrySkipped)
	assert.Empty(t, report.ChangesIn(reconcile.PassRegistry))
	assert.Contains(t, out.String(), "en_tn/releases/tag/v85")
	assert.Contains(t, out.String(), `href="/about/"`)
}

func TestReconcileHTMLInvalidRequest(t *testing.T) {
	vs, err := New(WithRegistry(registryFunc(func([]string) registry.VersionMap {
		t.Fatal("registry must not be queried")
		return nil
	})))
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = vs.ReconcileHTML(context.Background(), bytes.NewReader(loadPage(t)), &out, reconcile.Request{})
	assert.True(t, errors.IsValidationError(err))
	assert.Zero(t, out.Len())
}

func TestReconcileHTMLTooLarge(t *testing.T) {
	vs, err := New(WithRegistry(registryFunc(func([]string) registry.VersionMap { return nil })))
	require.NoError(t, err)

	page := strings.NewReader("<html><body>" + strings.Repeat("a", 11<<20) + "</body></html>")
	_, err = vs.ReconcileHTML(context.Background(), page, nil, baselineRequest())
	assert.True(t, errors.IsValidationError(err))
}

func TestCacheAvoidsRepeatLookups(t *testing.T) {
	srv, calls := newCatalogServer(t, catalogResponse)
	vs, err := New(WithEndpoint(srv.URL), WithCache(time.Minute), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	req := reconcile.NewRequest(reconcile.Entry{Resource: "en_tn", Version: "v85"})
	for i := 0; i < 3; i++ {
		_, err := vs.ReconcileHTML(context.Background(), bytes.NewReader(loadPage(t)), nil, req)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookup(t *testing.T) {
	srv, _ := newCatalogServer(t, catalogResponse)
	vs, err := New(WithEndpoint(srv.URL), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	versions, err := vs.Lookup(context.Background(), []string{"en_tn", "en_ult"})
	require.NoError(t, err)
	assert.Equal(t, registry.VersionMap{"en_tn": "v86", "en_ult": "v48"}, versions)
}

func TestTokenIsSent(t *testing.T) {
	var header atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"ok":true,"data":[]}`))
	}))
	defer srv.Close()

	vs, err := New(WithEndpoint(srv.URL), WithToken("abc123", "token"), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	_, err = vs.Lookup(context.Background(), []string{"en_tn"})
	require.NoError(t, err)
	assert.Equal(t, "token abc123", header.Load())
}

func TestOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty endpoint", WithEndpoint("")},
		{"blank owner", WithOwner("  ")},
		{"relative origin", WithOrigin("unfoldingword.org")},
		{"empty selector", WithRegionSelector("")},
		{"negative pacing", WithPacing(registry.Policy{Interval: -time.Second})},
		{"negative cache", WithCache(-time.Second)},
		{"nil registry", WithRegistry(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			assert.Error(t, err)
		})
	}

	_, err := New(WithEndpoint("not a url"))
	assert.Error(t, err)
}

type registryFunc func([]string) registry.VersionMap

func (f registryFunc) Lookup(_ context.Context, resources []string) registry.VersionMap {
	return f(resources)
}
