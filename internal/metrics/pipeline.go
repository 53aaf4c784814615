package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "pipeline_requests_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"status"}, // "done" / "failed"
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage", "status"},
	)

	PipelineFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "pipeline_failures_total",
			Help:      "Pipeline failures by the stage that failed",
		},
		[]string{"stage"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "search_requests_total",
			Help:      "Total number of search backend requests",
		},
		[]string{"mode", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "search_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	SearchFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "search_fallbacks_total",
			Help:      "Semantic to keyword fallbacks",
		},
		[]string{"reason"}, // "error" / "empty"
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "llm_requests_total",
			Help:      "Total number of chat-completion requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "llm_request_duration_seconds",
			Help:      "Chat-completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "llm_tokens_total",
			Help:      "Total chat-completion tokens consumed",
		},
		[]string{"model", "type"}, // "prompt" / "completion" / "total"
	)

	EvaluationOverallScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "evaluation_overall_score",
			Help:      "Weighted overall evaluation score",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
// Unregistered collectors still work, they just aren't exported.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineRequestsTotal)
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(PipelineFailuresTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchFallbacksTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(EvaluationOverallScore)
	pipelineMetricsRegistered = true
}
