package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingInstrumentation(t *testing.T) (*Instrumentation, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	inst := &Instrumentation{
		meterProvider:  noop.NewMeterProvider(),
		tracerProvider: tp,
	}
	m, err := newMetrics(inst.Meter("server"))
	if err != nil {
		t.Fatalf("newMetrics() error = %v", err)
	}
	inst.metrics = m
	return inst, recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestSpanHelpers_NilSafe(t *testing.T) {
	RecordError(nil, errors.New("boom"))
	SetSpanSuccess(nil)
	SetSpanError(nil, "boom")
	SetSpanAttributes(nil, attribute.String("k", "v"))
	AddOAuthFlowAttributes(nil, "client", "user", "read")
	AddStorageAttributes(nil, "get_client", "memory")
	AddHTTPAttributes(nil, "GET", EndpointAuthorize, 200)
}

func TestAddOAuthFlowAttributes_SkipsEmpty(t *testing.T) {
	inst, recorder := newRecordingInstrumentation(t)

	_, span := inst.Tracer("server").Start(context.Background(), "token")
	AddOAuthFlowAttributes(span, "client-1", "", "read write")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	attrs := attrMap(spans[0].Attributes())
	if attrs[AttrClientID] != "client-1" {
		t.Errorf("%s = %q", AttrClientID, attrs[AttrClientID])
	}
	if attrs[AttrScope] != "read write" {
		t.Errorf("%s = %q", AttrScope, attrs[AttrScope])
	}
	if _, ok := attrs[AttrUserID]; ok {
		t.Errorf("empty %s must not be set", AttrUserID)
	}
}

func TestStartStorageOperation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
	}{
		{name: "success", err: nil, wantStatus: codes.Ok},
		{name: "failure", err: errors.New("connection refused"), wantStatus: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, recorder := newRecordingInstrumentation(t)

			_, done := inst.StartStorageOperation(context.Background(), "memory", "get_client")
			done(tt.err)

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("recorded %d spans, want 1", len(spans))
			}
			span := spans[0]
			if span.Name() != "storage.get_client" {
				t.Errorf("span name = %q", span.Name())
			}
			if span.Status().Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", span.Status().Code, tt.wantStatus)
			}
			attrs := attrMap(span.Attributes())
			if attrs[AttrStorageType] != "memory" || attrs[AttrStorageOperation] != "get_client" {
				t.Errorf("storage attributes = %v", attrs)
			}
		})
	}
}

func TestStartStorageOperation_NilInstrumentation(t *testing.T) {
	var inst *Instrumentation
	ctx := context.Background()

	got, done := inst.StartStorageOperation(ctx, "memory", "get_client")
	if got != ctx {
		t.Error("nil instrumentation must return the input context")
	}
	done(nil)
	done(errors.New("ignored"))
}
