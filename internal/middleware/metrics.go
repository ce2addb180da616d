// internal/middleware/metrics.go

// Package middleware holds the HTTP instrumentation that wraps the inventory routes.
package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RequestsCounterName is the exported name of the request counter.
const RequestsCounterName = "http_requests_total"

// RequestCounter counts finished requests by method, route and status.
func RequestCounter(meter metric.Meter) (func(http.Handler) http.Handler, error) {
	counter, err := meter.Int64Counter(RequestsCounterName,
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			counter.Add(r.Context(), 1, metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", routeOf(r)),
				attribute.String("status", strconv.Itoa(status)),
			))
		})
	}, nil
}

// routeOf prefers the matched chi pattern so ids do not explode cardinality.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
