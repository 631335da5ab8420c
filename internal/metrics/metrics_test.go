package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/reconcile"
	"github.com/agentstation/versync/pkg/rewriter"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(WithRegisterer(reg)), reg
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeOK},
		{"rate limited", &errors.APIError{StatusCode: 429}, OutcomeRateLimited},
		{"server error", &errors.APIError{StatusCode: 503}, OutcomeUnavailable},
		{"wrapped", fmt.Errorf("search: %w", errors.ErrRegistryUnavailable), OutcomeUnavailable},
		{"other", errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestObserveLookup(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveLookup("batch", nil, 20*time.Millisecond)
	m.ObserveLookup("batch", nil, 30*time.Millisecond)
	m.ObserveLookup("single", &errors.APIError{StatusCode: 500}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.registryRequests.WithLabelValues("batch", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registryRequests.WithLabelValues("single", OutcomeUnavailable)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.registryDuration))
}

func TestRecorder(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordChange(reconcile.PassBaseline, rewriter.KindLink)
	m.RecordChange(reconcile.PassRegistry, rewriter.KindLink)
	m.RecordChange(reconcile.PassRegistry, rewriter.KindStatus)
	m.RecordOutcome(reconcile.StatusUpdated)
	m.RecordOutcome(reconcile.StatusMissing)
	m.ObserveReconcile(time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rewrites.WithLabelValues("registry", "status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resources.WithLabelValues("missing")))

	count, err := testutil.GatherAndCount(reg, "versync_rewrites_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = testutil.GatherAndCount(reg, "versync_reconcile_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegisterer(reg), WithNamespace("pages"), WithBuckets([]float64{0.1, 1}))
	m.RecordOutcome(reconcile.StatusCurrent)

	count, err := testutil.GatherAndCount(reg, "pages_resources_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(WithRegisterer(reg))
	assert.Panics(t, func() { New(WithRegisterer(reg)) })
}
