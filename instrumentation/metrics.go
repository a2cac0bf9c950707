package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Endpoint labels
const (
	EndpointAuthorize = "authorize"
	EndpointToken     = "token"
)

// Metrics holds all metric instruments of the server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// HTTP layer
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Protocol
	AuthorizationsGranted metric.Int64Counter
	TokensIssued          metric.Int64Counter
	ProtocolErrors        metric.Int64Counter

	// Security
	RateLimitExceeded metric.Int64Counter

	// Storage
	StorageOperationTotal    metric.Int64Counter
	StorageOperationDuration metric.Float64Histogram
}

// newMetrics creates all metric instruments on meter
func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"oauth.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"oauth.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}

	if m.AuthorizationsGranted, err = meter.Int64Counter(
		"oauth.authorizations.granted",
		metric.WithDescription("Number of successful authorization responses"),
		metric.WithUnit("{authorization}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create authorizations.granted counter: %w", err)
	}

	if m.TokensIssued, err = meter.Int64Counter(
		"oauth.tokens.issued",
		metric.WithDescription("Number of access tokens issued by the token endpoint"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tokens.issued counter: %w", err)
	}

	if m.ProtocolErrors, err = meter.Int64Counter(
		"oauth.protocol.errors",
		metric.WithDescription("Number of requests rejected with an OAuth error code"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create protocol.errors counter: %w", err)
	}

	if m.RateLimitExceeded, err = meter.Int64Counter(
		"oauth.ratelimit.exceeded",
		metric.WithDescription("Number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create ratelimit.exceeded counter: %w", err)
	}

	if m.StorageOperationTotal, err = meter.Int64Counter(
		"storage.operation.total",
		metric.WithDescription("Total number of storage operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.total counter: %w", err)
	}

	if m.StorageOperationDuration, err = meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.duration histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request and its duration
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, durationMs, attrs)
}

// RecordAuthorization records a successful authorization response
func (m *Metrics) RecordAuthorization(ctx context.Context, responseType string) {
	if m == nil {
		return
	}
	m.AuthorizationsGranted.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrResponseType, responseType),
	))
}

// RecordTokenIssued records a token issued by the token endpoint
func (m *Metrics) RecordTokenIssued(ctx context.Context, grantType string) {
	if m == nil {
		return
	}
	m.TokensIssued.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrGrantType, grantType),
	))
}

// RecordProtocolError records a request rejected with an OAuth error code
func (m *Metrics) RecordProtocolError(ctx context.Context, endpoint, errorCode string) {
	if m == nil {
		return
	}
	m.ProtocolErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.String(AttrErrorCode, errorCode),
	))
}

// RecordRateLimitExceeded records a rate limit rejection
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrHTTPEndpoint, endpoint),
	))
}

// RecordStorageOperation records a storage operation and its duration
func (m *Metrics) RecordStorageOperation(ctx context.Context, operation, result string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrStorageOperation, operation),
		attribute.String(AttrStorageResult, result),
	)
	m.StorageOperationTotal.Add(ctx, 1, attrs)
	m.StorageOperationDuration.Record(ctx, durationMs, attrs)
}
