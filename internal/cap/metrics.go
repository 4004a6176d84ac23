package cap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cap_vendor_requests_total",
		Help: "Vendor API calls by operation and outcome",
	}, []string{"op", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cap_vendor_request_duration_seconds",
		Help:    "Vendor API call latency by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// observeRequest records one vendor call for the /metrics endpoint
func observeRequest(op string, err error, seconds float64) {
	outcome := "success"
	if err != nil {
		if kind := KindOf(err); kind != "" {
			outcome = string(kind)
		} else {
			outcome = "error"
		}
	}
	requestsTotal.WithLabelValues(op, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(seconds)
}
