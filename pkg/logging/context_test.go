package logging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/versync/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("FromContext falls back to default", func(t *testing.T) {
		assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
		//nolint:staticcheck // nil context is handled explicitly
		assert.Equal(t, logging.Default(), logging.FromContext(nil))
	})

	t.Run("chaining context functions", func(t *testing.T) {
		testLogger := logging.NewTestLogger(t)

		ctx := logging.WithLogger(context.Background(), testLogger.Logger)
		ctx = logging.WithResource(ctx, "en_tn")
		ctx = logging.WithOperation(ctx, "baseline")
		ctx = logging.WithRequestID(ctx, "req-1")
		ctx = logging.WithField(ctx, "regions", 3)
		ctx = logging.WithField(ctx, "cause", errors.New("boom"))

		logging.Ctx(ctx).Info().Msg("rewriting")

		testLogger.AssertContains(t, `"resource":"en_tn"`)
		testLogger.AssertContains(t, `"operation":"baseline"`)
		testLogger.AssertContains(t, `"request_id":"req-1"`)
		testLogger.AssertContains(t, `"regions":3`)
		testLogger.AssertContains(t, `"cause":"boom"`)
		assert.Len(t, testLogger.Lines(), 1)
	})

	t.Run("empty request id is not added", func(t *testing.T) {
		testLogger := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), testLogger.Logger)
		ctx = logging.WithRequestID(ctx, "")
		logging.FromContext(ctx).Info().Msg("hello")
		testLogger.AssertNotContains(t, "request_id")
	})
}
