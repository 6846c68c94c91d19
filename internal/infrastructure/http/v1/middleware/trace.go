package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "flowdesk/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace accepts the caller's request and trace ids when they are well formed
// and echoes them back. Missing or malformed ids are replaced.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := &appctx.TraceContext{
			RequestID: appctx.SanitizeTraceID(c.GetHeader(HeaderRequestID)),
			TraceID:   appctx.SanitizeTraceID(c.GetHeader(HeaderTraceID)),
		}
		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), trace))

		c.Set("trace_id", trace.TraceID)
		c.Set("request_id", trace.RequestID)

		c.Header(HeaderRequestID, trace.RequestID)
		c.Header(HeaderTraceID, trace.TraceID)

		c.Next()
	}
}
