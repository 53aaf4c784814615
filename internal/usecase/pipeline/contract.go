package pipeline

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	domeval "github.com/kailas-cloud/ragpipe/internal/domain/evaluation"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/mode"
)

// Retriever fetches candidate documents.
type Retriever interface {
	Search(ctx context.Context, m mode.Mode, query, filter string) (document.Batch, error)
}

// PromptBuilder renders a grounding prompt template from ranked documents.
type PromptBuilder interface {
	Build(batch document.Batch) string
}

// Generator fills the template with the query and calls the language model.
type Generator interface {
	Complete(ctx context.Context, template, query string) (domain.LLMResult, error)
}

// Evaluator scores a completed run.
type Evaluator interface {
	RunAll(
		ctx context.Context, query string, docs []document.Document, response string, latencyMs float64,
	) (domeval.Result, error)
}

// RecordStore persists evaluated runs.
type RecordStore interface {
	Save(ctx context.Context, rec domeval.Record) error
}
