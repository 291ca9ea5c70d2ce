package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/scheduler"
)

// TracerName 任务 span 使用的 instrumentation 名称.
const TracerName = "github.com/Tsukikage7/jobkit/scheduler"

// span 属性键.
const (
	AttrJobID      = attribute.Key("job.id")
	AttrJobName    = attribute.Key("job.name")
	AttrJobTrigger = attribute.Key("job.trigger")
)

// JobMiddleware 返回为每次任务执行创建 span 的调度器中间件.
//
// 示例:
//
//	tp := tracing.MustNewTracer(cfg, "jobd", "1.0.0")
//	s := scheduler.MustNew(
//	    scheduler.WithMiddleware(tracing.JobMiddleware(tp.Tracer(tracing.TracerName))),
//	)
func JobMiddleware(tracer trace.Tracer) scheduler.Middleware {
	return func(next scheduler.JobFunc) scheduler.JobFunc {
		return func(ctx context.Context) (err error) {
			name := "job"
			var attrs []attribute.KeyValue
			if info, ok := scheduler.JobFromContext(ctx); ok {
				name = "job " + info.Name
				attrs = append(attrs,
					AttrJobID.String(info.ID),
					AttrJobName.String(info.Name),
					AttrJobTrigger.String(info.Trigger),
				)
			}

			ctx, span := tracer.Start(ctx, name,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
			)
			defer func() {
				if p := recover(); p != nil {
					span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", p))
					span.End()
					panic(p)
				}
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				} else {
					span.SetStatus(codes.Ok, "")
				}
				span.End()
			}()

			if sc := span.SpanContext(); sc.IsValid() {
				ctx = logger.ContextWithTraceID(ctx, sc.TraceID().String())
				ctx = logger.ContextWithSpanID(ctx, sc.SpanID().String())
			}

			return next(ctx)
		}
	}
}
