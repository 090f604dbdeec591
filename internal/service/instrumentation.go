package service

import (
	"time"

	"conversation-core/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "conversation-core"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// finish closes a span and records the operation metric. Use as
// `defer finish(span, m, "create", time.Now(), &err)`.
func finish(span trace.Span, m *metrics.Metrics, operation string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	m.ObserveOperation(operation, start, err)
}
