// Package context carries request-scoped values: trace ids and the acting owner.
package context

import (
	"context"
	"strings"

	"flowdesk/internal/core/id"
)

// maxTraceIDLen bounds ids accepted from clients.
const maxTraceIDLen = 64

// TraceContext correlates the log lines of one HTTP request or one background
// job run.
type TraceContext struct {
	TraceID   string
	RequestID string

	// Job is set for worker and CLI runs, empty for HTTP requests.
	Job string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewJobTrace starts a trace for one run of a background job.
func NewJobTrace(job string) *TraceContext {
	runID := id.New().String()
	return &TraceContext{
		TraceID:   runID,
		RequestID: runID,
		Job:       job,
	}
}

// SanitizeTraceID returns a client-supplied id when it is short and printable,
// otherwise a fresh one.
func SanitizeTraceID(raw string) string {
	if raw == "" || len(raw) > maxTraceIDLen {
		return id.New().String()
	}
	if strings.IndexFunc(raw, func(r rune) bool { return r < 0x21 || r > 0x7e }) >= 0 {
		return id.New().String()
	}
	return raw
}
