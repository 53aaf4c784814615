package batch

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/usecase/pipeline"
)

// Runner runs one query through the pipeline with evaluation.
type Runner interface {
	RunWithEvaluation(ctx context.Context, query string, opts ...pipeline.RunOption) (pipeline.EvaluatedResult, error)
}
