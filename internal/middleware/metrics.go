package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/usersvc/internal/metrics"
)

// unmatchedRoute labels requests no route matched (404/405).
const unmatchedRoute = "unmatched"

// PrometheusMetrics records request count, latency and in-flight requests.
//
// The endpoint label is chi's route pattern ("/api/v1/users/{user_id}"), so it
// must be installed with Use on a chi router, where the pattern is known once
// next returns.
func PrometheusMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.TrackActiveRequest(true)
			defer m.TrackActiveRequest(false)

			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			m.RecordAPIRequest(
				r.Method,
				routePattern(r),
				strconv.Itoa(wrapped.statusCode),
				time.Since(start),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
