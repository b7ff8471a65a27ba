// Package tracing provides lightweight request tracing for the gateway.
//
// Spans carry req_-prefixed ULID trace ids, propagate over the
// X-Trace-ID / X-Span-ID headers, and are exported through the
// structured logger. The gin middleware opens one span per intercepted
// request.
package tracing
