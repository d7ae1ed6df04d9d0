package tracing

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// TracingIngress starts the server span of a request, continuing the caller's trace when
// the headers carry one. Spans are named after the route template, not the raw path.
func TracingIngress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		tracer := opentracing.GlobalTracer()
		spanCtx, _ := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(ctx.Request.Header))
		serverSpan := tracer.StartSpan(ctx.Request.Method+" "+route, ext.RPCServerOption(spanCtx))
		defer serverSpan.Finish()
		ext.HTTPMethod.Set(serverSpan, ctx.Request.Method)
		ext.HTTPUrl.Set(serverSpan, ctx.Request.URL.String())

		ctx.Request = ctx.Request.WithContext(opentracing.ContextWithSpan(ctx.Request.Context(), serverSpan))

		ctx.Next()

		status := ctx.Writer.Status()
		ext.HTTPStatusCode.Set(serverSpan, uint16(status))
		if status >= 500 {
			ext.Error.Set(serverSpan, true)
		}
	}
}
