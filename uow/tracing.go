package uow

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/forbearing/uow")

// startSpan opens a span for op, following the teacher's database/helper.go
// trace() wrapper: callers get back a finish function that records the
// error (if any) and ends the span: `ctx, finish := startSpan(ctx, "Flush");
// defer finish(&err)`. Flush is the only caller; the individual Executor
// calls inside a flush do not get spans of their own.
func startSpan(ctx context.Context, op string) (context.Context, func(errp *error)) {
	ctx, span := tracer.Start(ctx, op)
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
	}
}

// spanFromContext exposes the current span for callers that want to attach
// additional attributes inline rather than through the finish callback.
func spanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
