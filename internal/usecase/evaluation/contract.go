package evaluation

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain/document"
)

// Scorer produces the three scored metrics in [0, 1].
type Scorer interface {
	Relevance(ctx context.Context, query string, docs []document.Document) (float64, error)
	Faithfulness(ctx context.Context, response string, docs []document.Document) (float64, error)
	AnswerQuality(ctx context.Context, response string) (float64, error)
}
