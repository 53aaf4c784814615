package domain

import (
	"fmt"
	"math"
	"sort"
)

// Scored evaluation metric names.
const (
	MetricRelevance     = "relevance"
	MetricFaithfulness  = "faithfulness"
	MetricAnswerQuality = "answer_quality"
	MetricLatency       = "latency"
)

// weightTolerance is the allowed deviation of the weight sum from 1.0.
const weightTolerance = 1e-9

// Weights maps each scored metric to its share of the overall score.
type Weights map[string]float64

// DefaultWeights returns relevance 0.3, faithfulness 0.4, answer_quality 0.3.
func DefaultWeights() Weights {
	return Weights{
		MetricRelevance:     0.3,
		MetricFaithfulness:  0.4,
		MetricAnswerQuality: 0.3,
	}
}

// Validate checks that only scored metrics are weighted, no weight is negative,
// and the weights sum to 1.0.
func (w Weights) Validate() error {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum float64
	for _, name := range names {
		switch name {
		case MetricRelevance, MetricFaithfulness, MetricAnswerQuality:
		default:
			return fmt.Errorf("unknown metric %q: %w", name, ErrInvalidWeights)
		}
		if w[name] < 0 {
			return fmt.Errorf("weight %s must not be negative: %w", name, ErrInvalidWeights)
		}
		sum += w[name]
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %g: %w", sum, ErrInvalidWeights)
	}
	return nil
}
