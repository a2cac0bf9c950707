// Package instrumentation provides OpenTelemetry instrumentation for the
// authorization server.
//
// Disabled instrumentation uses no-op providers. When enabled, metrics can be
// exported through a Prometheus registry and traces through OTLP/HTTP:
//
//	inst, err := instrumentation.New(ctx, instrumentation.Config{
//		Enabled:         true,
//		MetricsExporter: instrumentation.ExporterPrometheus,
//		TracesExporter:  instrumentation.ExporterOTLP,
//		OTLPEndpoint:    "otel-collector:4318",
//	})
//	if err != nil {
//		return err
//	}
//	defer inst.Shutdown(context.Background())
//
//	srv.SetInstrumentation(inst)
//	mux.Handle("/metrics", inst.MetricsHandler())
//
// Metrics:
//   - oauth.http.requests.total, oauth.http.request.duration
//   - oauth.authorizations.granted (by response type)
//   - oauth.tokens.issued (by grant type)
//   - oauth.protocol.errors (by endpoint and error code)
//   - oauth.ratelimit.exceeded
//   - storage.operation.total, storage.operation.duration
//
// Spans never carry token, code or secret values.
package instrumentation
