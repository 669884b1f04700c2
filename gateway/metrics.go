package gateway

import (
	"time"

	"github.com/meikuraledutech/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_analyses_total",
		Help: "Completed pipeline analyses by verdict",
	}, []string{"verdict"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_analysis_duration_seconds",
		Help:    "Time spent in cycle detection",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	graphSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_graph_size",
		Help:    "Submitted node and edge counts",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"kind"})

	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_rejected_requests_total",
		Help: "Pipeline submissions rejected before analysis",
	}, []string{"reason"})
)

func observeAnalysis(res pipeline.Result, elapsed time.Duration) {
	verdict := "cyclic"
	if res.IsDAG {
		verdict = "dag"
	}
	analysesTotal.WithLabelValues(verdict).Inc()
	analysisDuration.Observe(elapsed.Seconds())
	graphSize.WithLabelValues("nodes").Observe(float64(res.NumNodes))
	graphSize.WithLabelValues("edges").Observe(float64(res.NumEdges))
}
