package instrumentation

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// None of these may panic.
	m.RecordHTTPRequest(ctx, "POST", EndpointToken, 200, 1.5)
	m.RecordAuthorization(ctx, "code")
	m.RecordTokenIssued(ctx, "password")
	m.RecordProtocolError(ctx, EndpointToken, "invalid_grant")
	m.RecordRateLimitExceeded(ctx, EndpointAuthorize)
	m.RecordStorageOperation(ctx, "get_client", "success", 0.2)
}

func TestNewMetrics(t *testing.T) {
	m, err := newMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("newMetrics() error = %v", err)
	}

	instruments := map[string]any{
		"HTTPRequestsTotal":        m.HTTPRequestsTotal,
		"HTTPRequestDuration":      m.HTTPRequestDuration,
		"AuthorizationsGranted":    m.AuthorizationsGranted,
		"TokensIssued":             m.TokensIssued,
		"ProtocolErrors":           m.ProtocolErrors,
		"RateLimitExceeded":        m.RateLimitExceeded,
		"StorageOperationTotal":    m.StorageOperationTotal,
		"StorageOperationDuration": m.StorageOperationDuration,
	}
	for name, inst := range instruments {
		if inst == nil {
			t.Errorf("%s not initialized", name)
		}
	}

	ctx := context.Background()
	m.RecordHTTPRequest(ctx, "GET", EndpointAuthorize, 302, 3)
	m.RecordAuthorization(ctx, "token")
	m.RecordTokenIssued(ctx, "authorization_code")
	m.RecordProtocolError(ctx, EndpointAuthorize, "access_denied")
	m.RecordRateLimitExceeded(ctx, EndpointToken)
	m.RecordStorageOperation(ctx, "save_access_token", "error", 4)
}
