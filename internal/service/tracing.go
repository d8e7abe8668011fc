package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer 未初始化 TracerProvider 时为 noop
var tracer = otel.Tracer("courtmate/backend/internal/service")

// endSpan 结束 span，err 非空时标记失败
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
