package optimizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK          = "ok"
	outcomeRemoteError = "remote_error"
	outcomeUnavailable = "unavailable"
	outcomeTransport   = "transport_error"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optiflow_optimizer_requests_total",
		Help: "Total number of calls to the optimizer by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	malformedResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optiflow_optimizer_malformed_responses_total",
		Help: "Total number of 2xx optimizer responses rejected during decoding.",
	}, []string{"endpoint"})
	mockFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optiflow_optimizer_mock_fallbacks_total",
		Help: "Total number of mock results served while the optimizer was unreachable.",
	}, []string{"endpoint"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optiflow_optimizer_request_duration_seconds",
		Help:    "Duration of optimizer calls.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	}, []string{"endpoint"})
)

// RecordMockFallback counts a mock answer served outside the client, such as
// by the proxy endpoint.
func RecordMockFallback(endpoint string) {
	mockFallbacks.WithLabelValues(endpoint).Inc()
}
