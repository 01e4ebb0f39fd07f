package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsFinishedTotal, regenerationsTotal) }

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "translation_jobs_finished_total",
		Help: "Total number of pipeline runs finished, labeled by final status.",
	},
	[]string{"status"},
)

var regenerationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "translation_regenerations_total",
		Help: "Total number of audio regeneration attempts, labeled by outcome.",
	},
	[]string{"outcome"}, // 'completed', 'failed'
)

func IncJobFinished(status string) {
	jobsFinishedTotal.WithLabelValues(status).Inc()
}

func IncRegeneration(outcome string) {
	regenerationsTotal.WithLabelValues(outcome).Inc()
}
