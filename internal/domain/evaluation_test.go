package domain

import (
	"errors"
	"testing"
)

func TestDefaultWeights_Valid(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights must validate: %v", err)
	}
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"balanced", Weights{MetricRelevance: 0.5, MetricFaithfulness: 0.5}, false},
		{"single", Weights{MetricAnswerQuality: 1}, false},
		{"float noise", Weights{MetricRelevance: 0.1, MetricFaithfulness: 0.2, MetricAnswerQuality: 0.7}, false},
		{"sum above one", Weights{MetricRelevance: 0.5, MetricFaithfulness: 0.6}, true},
		{"sum below one", Weights{MetricRelevance: 0.3}, true},
		{"negative", Weights{MetricRelevance: 1.5, MetricFaithfulness: -0.5}, true},
		{"latency is not scored", Weights{MetricLatency: 1}, true},
		{"empty", Weights{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidWeights) {
					t.Errorf("expected ErrInvalidWeights, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
