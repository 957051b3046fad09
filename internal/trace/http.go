// Package trace - HTTP/WebSocket middleware for trace extraction.
package trace

import (
	"encoding/json"
	"net/http"
)

// Middleware extracts or creates trace context for HTTP requests. Every
// REST operation and WebSocket upgrade passes through here, so request
// logs always carry a trace ID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := extractFromHeaders(r)
		ctx := WithContext(r.Context(), tc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractFromHeaders gets trace context from HTTP headers. The caller's
// span, if any, becomes this request's parent.
func extractFromHeaders(r *http.Request) Context {
	tc := Context{
		TraceID:      r.Header.Get(TraceIDKey),
		ParentSpanID: r.Header.Get(SpanIDKey),
		SpanID:       generateSpanID(),
	}
	if tc.TraceID == "" {
		tc.TraceID = generateTraceID()
	}
	return tc
}

// ExtractFromJSON extracts a trace_id from a WebSocket request message so
// an operation issued mid-trace continues the caller's trace. Returns the
// context and whether a trace_id was found.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return New(), false
	}
	if msg.TraceID == "" {
		return New(), false
	}
	return Context{
		TraceID: msg.TraceID,
		SpanID:  generateSpanID(),
	}, true
}
