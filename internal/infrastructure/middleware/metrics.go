package middleware

import (
	"net/http"
	"strconv"

	"adscope-integrations-layer/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statusCodeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integrations_layer_http_status_code_counter",
		Help: "The number of http status codes per interface",
	}, []string{"status_code"})

	connectionOutcomeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integrations_layer_connection_outcomes",
		Help: "Terminal outcomes of integration connect and exchange operations",
	}, []string{"service", "outcome"})
)

// MetricsMiddleware allows the passage of parameters into the metrics middleware
type MetricsMiddleware struct {
}

func (mw *MetricsMiddleware) RecordHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {

		resp := &wrappedResponseWriter{w, 200}

		next.ServeHTTP(resp, req)

		statusCodeCounter.With(prometheus.Labels{
			"status_code": strconv.Itoa(resp.statusCode)}).Inc()
	})
}

// PrometheusOutcomeRecorder counts terminal connect/exchange outcomes
// on the prometheus counter.
type PrometheusOutcomeRecorder struct{}

// RecordOutcome counts one terminal connect/exchange outcome
func (PrometheusOutcomeRecorder) RecordOutcome(serviceName string, kind domain.OutcomeKind) {
	connectionOutcomeCounter.With(prometheus.Labels{
		"service": serviceName,
		"outcome": string(kind),
	}).Inc()
}

type wrappedResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (ww *wrappedResponseWriter) WriteHeader(status int) {
	ww.statusCode = status
	ww.ResponseWriter.WriteHeader(status)
}
