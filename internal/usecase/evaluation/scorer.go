package evaluation

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain/document"
)

// Fixed placeholder scores.
const (
	ConstantRelevance     = 0.85
	ConstantFaithfulness  = 0.9
	ConstantAnswerQuality = 0.88
)

// ConstantScorer returns fixed scores regardless of input.
type ConstantScorer struct{}

// Relevance implements Scorer.
func (ConstantScorer) Relevance(context.Context, string, []document.Document) (float64, error) {
	return ConstantRelevance, nil
}

// Faithfulness implements Scorer.
func (ConstantScorer) Faithfulness(context.Context, string, []document.Document) (float64, error) {
	return ConstantFaithfulness, nil
}

// AnswerQuality implements Scorer.
func (ConstantScorer) AnswerQuality(context.Context, string) (float64, error) {
	return ConstantAnswerQuality, nil
}
