// Package batch evaluates a list of queries sequentially with per-item error reporting.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	dombatch "github.com/kailas-cloud/ragpipe/internal/domain/batch"
	"github.com/kailas-cloud/ragpipe/internal/usecase/pipeline"
)

// MaxBatchSize is the default maximum number of queries per run.
const MaxBatchSize = 100

// Report summarizes a batch run.
type Report struct {
	RunID       string
	Items       []dombatch.Result
	MeanOverall float64 // over successful items only
	Failures    int
	StartedAt   time.Time
	Duration    time.Duration
}

// Succeeded returns the number of successful items.
func (r *Report) Succeeded() int { return len(r.Items) - r.Failures }

// Service runs batch evaluations.
type Service struct {
	runner       Runner
	logger       *zap.Logger
	maxBatchSize int
}

// New creates a batch service.
func New(runner Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, logger: logger, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Run evaluates each query in order. A failed query does not stop the batch;
// a cancelled context marks every remaining query as failed.
func (s *Service) Run(ctx context.Context, queries []Query) Report {
	report := Report{
		RunID:     uuid.NewString(),
		Items:     make([]dombatch.Result, len(queries)),
		StartedAt: time.Now().UTC(),
	}
	log := s.logger.With(zap.String("run_id", report.RunID))

	if len(queries) > s.maxBatchSize {
		for i, q := range queries {
			report.Items[i] = dombatch.NewError(q.ID,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidQuery))
		}
		report.Failures = len(queries)
		return report
	}

	var scoreSum float64
	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(queries); j++ {
				report.Items[j] = dombatch.NewError(queries[j].ID, fmt.Errorf("batch aborted: %w", err))
			}
			report.Failures += len(queries) - i
			break
		}

		res, err := s.runner.RunWithEvaluation(ctx, q.Query, pipeline.WithFilter(q.Filter))
		if err != nil {
			report.Items[i] = dombatch.NewError(q.ID, err)
			report.Failures++
			log.Warn("query failed", zap.String("id", q.ID), zap.Error(err))
			continue
		}

		report.Items[i] = dombatch.NewOK(q.ID, res.TraceID, res.Evaluation.OverallScore, res.LatencyMs)
		scoreSum += res.Evaluation.OverallScore
	}

	if ok := report.Succeeded(); ok > 0 {
		report.MeanOverall = scoreSum / float64(ok)
	}
	report.Duration = time.Since(report.StartedAt)

	log.Info("batch evaluation done",
		zap.Int("queries", len(queries)),
		zap.Int("failures", report.Failures),
		zap.Float64("mean_overall_score", report.MeanOverall),
		zap.Duration("duration", report.Duration),
	)
	return report
}
