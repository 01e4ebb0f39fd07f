package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(stageDurationSeconds, stageSkipsTotal) }

var stageDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall-clock duration of pipeline stage executions.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 180, 600, 1800},
	},
	[]string{"stage", "success"},
)

var stageSkipsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_stage_skips_total",
		Help: "Stages skipped on retry because their artifact already existed.",
	},
	[]string{"stage"},
)

func ObserveStage(stage string, seconds float64, success bool) {
	stageDurationSeconds.WithLabelValues(stage, strconv.FormatBool(success)).Observe(seconds)
}

func IncStageSkip(stage string) {
	stageSkipsTotal.WithLabelValues(stage).Inc()
}
