// Package metrics exposes loop counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "bidsim"

	statusLabel  = "status"
	outcomeLabel = "outcome"
	ackedLabel   = "acked"
)

// Metrics holds the simulator's collectors on a private registry. All methods
// are no-ops on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	bidRequests         *prometheus.CounterVec
	auctions            *prometheus.CounterVec
	feedback            *prometheus.CounterVec
	pacingDelay         prometheus.Histogram
	invariantViolations prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		bidRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bid_requests_total",
			Help:      "Bid requests sent to the optimizer, by response status.",
		}, []string{statusLabel}),
		auctions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_total",
			Help:      "Simulated auctions, by outcome.",
		}, []string{outcomeLabel}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Feedback reports sent, by acknowledgement.",
		}, []string{ackedLabel}),
		pacingDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pacing_delay_seconds",
			Help:      "Delay inserted between bid requests to follow the schedule.",
			Buckets:   []float64{0, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		invariantViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Responses whose optimized price exceeded the candidate price.",
		}),
	}
	m.Registry.MustRegister(m.bidRequests, m.auctions, m.feedback, m.pacingDelay, m.invariantViolations)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{MaxRequestsInFlight: 5})
}

// RecordBidRequest counts an optimizer response by status.
func (m *Metrics) RecordBidRequest(status string) {
	if m == nil {
		return
	}
	m.bidRequests.WithLabelValues(status).Inc()
}

// RecordAuction counts a resolved auction by outcome.
func (m *Metrics) RecordAuction(outcome string) {
	if m == nil {
		return
	}
	m.auctions.WithLabelValues(outcome).Inc()
}

// RecordFeedback counts a feedback call by whether it was acknowledged.
func (m *Metrics) RecordFeedback(acked bool) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(strconv.FormatBool(acked)).Inc()
}

// RecordPacingDelay observes the wait before a request.
func (m *Metrics) RecordPacingDelay(d time.Duration) {
	if m == nil {
		return
	}
	m.pacingDelay.Observe(d.Seconds())
}

// RecordInvariantViolation counts a response priced above its candidate.
func (m *Metrics) RecordInvariantViolation() {
	if m == nil {
		return
	}
	m.invariantViolations.Inc()
}
