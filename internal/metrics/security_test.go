package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityMetrics(t *testing.T) {
	provider, err := NewProvider("fleetvault_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	sm, err := NewSecurityMetrics(provider.MeterProvider(), "fleetvault_test")
	require.NoError(t, err)

	ctx := context.Background()
	sm.RecordChainLength(ctx, 3)
	sm.RecordChainLength(ctx, 5)
	sm.RecordIntegrityViolation(ctx, "verify_chain")
	sm.RecordIntegrityViolation(ctx, "verify_chain")
	sm.RecordIntegrityViolation(ctx, "detect_tamper")
	sm.RecordKeyVersion(ctx, "CONFIDENTIAL", 2)

	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	output := w.Body.String()

	assert.Regexp(t, `fleetvault_test_audit_chain_length(_events)?\{[^}]*\} 5`, output)
	assertBizMetricLine(t, output, `fleetvault_test_audit_integrity_violations_total`, `check="verify_chain"`, `2`)
	assertBizMetricLine(t, output, `fleetvault_test_audit_integrity_violations_total`, `check="detect_tamper"`, `1`)
	assertBizMetricLine(t, output, `fleetvault_test_active_key_version`, `classification="CONFIDENTIAL"`, `2`)
}

func TestNoOpSecurityMetrics(t *testing.T) {
	sm := NewNoOpSecurityMetrics()
	assert.IsType(t, &NoOpSecurityMetrics{}, sm)

	sm.RecordChainLength(context.Background(), 1)
	sm.RecordIntegrityViolation(context.Background(), "verify_chain")
	sm.RecordKeyVersion(context.Background(), "INTERNAL", 1)
}
