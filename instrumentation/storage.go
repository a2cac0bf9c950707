package instrumentation

import (
	"context"
	"time"
)

// StartStorageOperation opens a span for a storage call and returns a
// function that ends it and records the operation metrics. It is safe to
// call on a nil *Instrumentation.
//
//	ctx, done := s.inst.StartStorageOperation(ctx, "memory", "get_client")
//	defer func() { done(err) }()
func (i *Instrumentation) StartStorageOperation(ctx context.Context, storageType, operation string) (context.Context, func(error)) {
	if i == nil {
		return ctx, func(error) {}
	}

	ctx, span := i.Tracer("storage").Start(ctx, "storage."+operation)
	AddStorageAttributes(span, operation, storageType)
	start := time.Now()

	return ctx, func(err error) {
		result := "success"
		if err != nil {
			result = "error"
			RecordError(span, err)
		} else {
			SetSpanSuccess(span)
		}
		span.End()
		i.metrics.RecordStorageOperation(ctx, operation, result, float64(time.Since(start).Milliseconds()))
	}
}
