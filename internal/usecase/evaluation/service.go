// Package evaluation scores a completed pipeline run.
package evaluation

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	domeval "github.com/kailas-cloud/ragpipe/internal/domain/evaluation"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	"github.com/kailas-cloud/ragpipe/internal/tracing"
)

// SpanName is the trace span recorded for an evaluation.
const SpanName = "evaluate"

// Service runs every metric and combines them with the configured weights.
type Service struct {
	scorer  Scorer
	weights domain.Weights
	logger  *zap.Logger
}

// New creates an evaluator. Nil weights use domain.DefaultWeights.
// Fails with domain.ErrInvalidWeights when the weights do not sum to 1.0.
func New(scorer Scorer, weights domain.Weights, logger *zap.Logger) (*Service, error) {
	if scorer == nil {
		scorer = ConstantScorer{}
	}
	if weights == nil {
		weights = domain.DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	own := make(domain.Weights, len(weights))
	for k, v := range weights {
		own[k] = v
	}
	return &Service{scorer: scorer, weights: own, logger: logger}, nil
}

// RunAll evaluates one run. When ctx carries an open trace, an evaluate span is appended.
func (s *Service) RunAll(
	ctx context.Context, query string, docs []document.Document, response string, latencyMs float64,
) (domeval.Result, error) {
	start := time.Now()

	res, err := s.runAll(ctx, query, docs, response, latencyMs)

	if tr, ok := tracing.FromContext(ctx); ok {
		rec := tracing.SpanRecord{
			Name: SpanName,
			Input: map[string]any{
				"query":      query,
				"num_docs":   len(docs),
				"latency_ms": latencyMs,
			},
			Err:      err,
			Metadata: map[string]any{"latency_ms": float64(time.Since(start).Microseconds()) / 1000},
			Start:    start,
			End:      time.Now(),
		}
		if err == nil {
			rec.Output = map[string]any{
				"overall_score":  res.OverallScore,
				"relevance":      res.Relevance.Score,
				"faithfulness":   res.Faithfulness.Score,
				"answer_quality": res.AnswerQuality.Score,
			}
		}
		tr.Span(rec)
	}

	if err != nil {
		return domeval.Result{}, err
	}

	metrics.EvaluationOverallScore.Observe(res.OverallScore)
	logger.FromContext(ctx, s.logger).Debug("evaluation done",
		zap.Float64("overall_score", res.OverallScore),
		zap.Float64("latency_ms", latencyMs),
	)
	return res, nil
}

func (s *Service) runAll(
	ctx context.Context, query string, docs []document.Document, response string, latencyMs float64,
) (domeval.Result, error) {
	relevance, err := s.scorer.Relevance(ctx, query, docs)
	if err != nil {
		return domeval.Result{}, fmt.Errorf("score relevance: %w", err)
	}
	faithfulness, err := s.scorer.Faithfulness(ctx, response, docs)
	if err != nil {
		return domeval.Result{}, fmt.Errorf("score faithfulness: %w", err)
	}
	quality, err := s.scorer.AnswerQuality(ctx, response)
	if err != nil {
		return domeval.Result{}, fmt.Errorf("score answer quality: %w", err)
	}

	responseLen := utf8.RuneCountInString(response)
	res := domeval.Result{
		Relevance: domeval.Metric{
			Name:    domain.MetricRelevance,
			Score:   relevance,
			Details: map[string]any{"num_docs": len(docs), "query": query},
		},
		Faithfulness: domeval.Metric{
			Name:    domain.MetricFaithfulness,
			Score:   faithfulness,
			Details: map[string]any{"response_length": responseLen, "num_docs": len(docs)},
		},
		AnswerQuality: domeval.Metric{
			Name:    domain.MetricAnswerQuality,
			Score:   quality,
			Details: map[string]any{"response_length": responseLen},
		},
		Latency: domeval.LatencyMetric{Name: domain.MetricLatency, Value: latencyMs, Unit: "ms"},
	}

	res.OverallScore = relevance*s.weights[domain.MetricRelevance] +
		faithfulness*s.weights[domain.MetricFaithfulness] +
		quality*s.weights[domain.MetricAnswerQuality]
	return res, nil
}
