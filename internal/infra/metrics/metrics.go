// Package metrics holds the service's Prometheus collectors: pipeline run
// outcomes, per-stage durations and skips, audio regenerations, and provider
// call latency. Each collector file enqueues its collectors at init;
// MustRegister installs the whole set during wiring, before /metrics is
// served.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	installOnce sync.Once
	pending     []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs every collector of this package with the default
// registry. Repeated calls are no-ops, so tests and main can both call it.
func MustRegister() {
	installOnce.Do(func() {
		prometheus.MustRegister(pending...)
	})
}
