// Package metrics provides the Prometheus metrics for the backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pokerrange"

var (
	// requestsTotal counts HTTP requests by endpoint and status class.
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// requestDuration is a histogram of request handling duration in seconds.
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request handling duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// providerRequestsTotal counts LLM provider API calls.
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider API calls",
		},
		[]string{"provider", "model", "status"}, // status: success, error
	)

	// providerRequestDuration is a histogram of LLM provider call duration.
	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of LLM provider API calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	// providerTokensTotal counts tokens consumed by provider calls.
	providerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_tokens_total",
			Help:      "Total tokens consumed by provider calls",
		},
		[]string{"provider", "model", "type"}, // type: input, output
	)

	// streamsActive is a gauge of currently open streaming responses.
	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of currently open streaming chat responses",
		},
	)
)

// allMetrics lists every collector this package registers.
var allMetrics = []prometheus.Collector{
	requestsTotal,
	requestDuration,
	providerRequestsTotal,
	providerRequestDuration,
	providerTokensTotal,
	streamsActive,
}

// RecordRequest records one handled HTTP request.
func RecordRequest(endpoint, status string, duration time.Duration) {
	requestsTotal.WithLabelValues(endpoint, status).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordProviderCall records one LLM provider call outcome.
func RecordProviderCall(provider, model, status string, duration time.Duration) {
	providerRequestsTotal.WithLabelValues(provider, model, status).Inc()
	providerRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordProviderTokens records token usage for one provider call.
func RecordProviderTokens(provider, model string, inputTokens, outputTokens int) {
	providerTokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	providerTokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
}

// StreamOpened increments the active-stream gauge.
func StreamOpened() {
	streamsActive.Inc()
}

// StreamClosed decrements the active-stream gauge.
func StreamClosed() {
	streamsActive.Dec()
}
