package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"example.com/healthtracker/internal/observability"
)

// RequestMetrics records count, latency and in-flight requests labelled by route template.
func RequestMetrics(metricsManager *observability.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			route := routeTemplate(req)
			metricsManager.GaugeRequests.Inc()
			defer func(begin time.Time) {
				metricsManager.GaugeRequests.Dec()
				metricsManager.HistRequestDuration.WithLabelValues(route).Observe(time.Since(begin).Seconds())
			}(time.Now())

			resp := newResponseWriter(w)
			next.ServeHTTP(resp, req)

			metricsManager.CounterRequests.With(prometheus.Labels{
				"method": req.Method,
				"route":  route,
				"status": strconv.Itoa(resp.statusCode),
			}).Inc()
		})
	}
}

// routeTemplate keeps label cardinality bounded by using the matched mux template.
func routeTemplate(req *http.Request) string {
	if route := mux.CurrentRoute(req); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (r *responseWriter) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.written = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseWriter) Write(b []byte) (int, error) {
	r.written = true
	return r.ResponseWriter.Write(b)
}
