package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const handlerSpanPrefix = "httpapi.Handler."

var apiTracer = otel.Tracer("crex-scraper/internal/interfaces/httpapi")

// startSpan opens a child span for handler methods only. Middleware and
// response helpers reuse the request span, and untraced routes such as
// /healthz carry no parent at all.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() || !shouldCreateHTTPAPISpan(name) {
		return ctx, trace.SpanFromContext(ctx)
	}
	return apiTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func startHandlerSpan(r *http.Request, method string) (context.Context, trace.Span) {
	return startSpan(r.Context(), handlerSpanPrefix+method, attribute.String("http.route", r.Pattern))
}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, handlerSpanPrefix)
}
