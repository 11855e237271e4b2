package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datachat_questions_total",
			Help: "Total number of natural-language questions received.",
		},
	)
	questionsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datachat_questions_rejected_total",
			Help: "Total number of questions rejected by input validation.",
		},
	)
	pipelineFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datachat_pipeline_failures_total",
			Help: "Total number of pipeline failures by stage.",
		},
		[]string{"stage"},
	)
	generationLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datachat_generation_latency_seconds",
			Help:    "Latency of text-generation calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	queryExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datachat_query_execution_seconds",
			Help:    "Latency of candidate SQL execution against the store.",
			Buckets: prometheus.DefBuckets,
		},
	)
	uploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datachat_uploads_total",
			Help: "Total number of CSV uploads turned into tables.",
		},
	)
	conversationsPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datachat_conversations_purged_total",
			Help: "Total number of expired conversation records purged.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		questionsRejectedTotal,
		pipelineFailuresTotal,
		generationLatencySeconds,
		queryExecutionSeconds,
		uploadsTotal,
		conversationsPurgedTotal,
	)
}

func ObserveQuestion() {
	questionsTotal.Inc()
}

func ObserveQuestionRejected() {
	questionsRejectedTotal.Inc()
}

func ObservePipelineFailure(stage string) {
	pipelineFailuresTotal.WithLabelValues(stage).Inc()
}

func ObserveGeneration(elapsed time.Duration) {
	generationLatencySeconds.Observe(elapsed.Seconds())
}

func ObserveQueryExecution(elapsed time.Duration) {
	queryExecutionSeconds.Observe(elapsed.Seconds())
}

func ObserveUpload() {
	uploadsTotal.Inc()
}

func ObserveConversationsPurged(count int64) {
	if count > 0 {
		conversationsPurgedTotal.Add(float64(count))
	}
}
