// Package evaluation holds evaluation results and the persisted run record.
package evaluation

import (
	"time"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// Metric is one scored metric with its inputs summarized in Details.
type Metric struct {
	Name    string         `json:"metric"`
	Score   float64        `json:"score"`
	Details map[string]any `json:"details"`
}

// LatencyMetric reports the raw pipeline latency. It is not scored.
type LatencyMetric struct {
	Name  string  `json:"metric"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Result is the full evaluation of one run.
type Result struct {
	OverallScore  float64       `json:"overall_score"`
	Relevance     Metric        `json:"relevance"`
	Faithfulness  Metric        `json:"faithfulness"`
	AnswerQuality Metric        `json:"answer_quality"`
	Latency       LatencyMetric `json:"latency"`
}

// Record is an evaluated run as stored for later inspection.
type Record struct {
	TraceID    string       `json:"trace_id"`
	Query      string       `json:"query"`
	Response   string       `json:"response"`
	Model      string       `json:"model"`
	LatencyMs  float64      `json:"latency_ms"`
	Usage      domain.Usage `json:"usage"`
	NumDocs    int          `json:"num_docs"`
	Evaluation Result       `json:"evaluation"`
	CreatedAt  time.Time    `json:"created_at"`
}
