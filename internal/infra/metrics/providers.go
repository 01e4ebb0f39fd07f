package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(providerCallLatencyMs) }

var providerCallLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "provider_call_latency_ms",
		Help:    "External provider call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000, 300000},
	},
	[]string{"provider", "operation", "success"},
)

func ObserveProviderCall(provider, operation string, ms int, success bool) {
	providerCallLatencyMs.WithLabelValues(provider, operation, strconv.FormatBool(success)).Observe(float64(ms))
}
