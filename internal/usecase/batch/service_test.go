package batch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	dombatch "github.com/kailas-cloud/ragpipe/internal/domain/batch"
	domeval "github.com/kailas-cloud/ragpipe/internal/domain/evaluation"
	"github.com/kailas-cloud/ragpipe/internal/usecase/pipeline"
)

// --- Mocks ---

type mockRunner struct {
	scores    map[string]float64
	failOn    map[string]error
	callCount int
	onCall    func()
}

func (m *mockRunner) RunWithEvaluation(
	_ context.Context, query string, _ ...pipeline.RunOption,
) (pipeline.EvaluatedResult, error) {
	m.callCount++
	if m.onCall != nil {
		m.onCall()
	}
	if err, ok := m.failOn[query]; ok {
		return pipeline.EvaluatedResult{}, err
	}
	return pipeline.EvaluatedResult{
		Result:     pipeline.Result{Query: query, TraceID: "trace-" + query, LatencyMs: 10},
		Evaluation: domeval.Result{OverallScore: m.scores[query]},
	}, nil
}

func queries(texts ...string) []Query {
	out := make([]Query, 0, len(texts))
	for i, t := range texts {
		out = append(out, Query{ID: "id-" + string(rune('a'+i)), Query: t})
	}
	return out
}

// --- Tests ---

func TestRun_Success(t *testing.T) {
	runner := &mockRunner{scores: map[string]float64{"a": 0.8, "b": 0.9}}
	report := New(runner, nil).Run(context.Background(), queries("a", "b"))

	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("RunID is not a uuid: %q", report.RunID)
	}
	if report.Failures != 0 || report.Succeeded() != 2 {
		t.Errorf("failures=%d succeeded=%d", report.Failures, report.Succeeded())
	}
	if diff := report.MeanOverall - 0.85; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("MeanOverall = %v, want 0.85", report.MeanOverall)
	}
	if report.Items[1].TraceID() != "trace-b" || report.Items[1].Status() != dombatch.StatusOK {
		t.Errorf("unexpected item: %+v", report.Items[1])
	}
}

func TestRun_PartialFailure(t *testing.T) {
	boom := errors.New("rate limited")
	runner := &mockRunner{
		scores: map[string]float64{"a": 0.6, "c": 0.8},
		failOn: map[string]error{"b": boom},
	}
	report := New(runner, nil).Run(context.Background(), queries("a", "b", "c"))

	if runner.callCount != 3 {
		t.Errorf("a failure must not stop the batch, calls=%d", runner.callCount)
	}
	if report.Failures != 1 {
		t.Errorf("Failures = %d, want 1", report.Failures)
	}
	if !errors.Is(report.Items[1].Err(), boom) {
		t.Errorf("item error = %v", report.Items[1].Err())
	}
	if diff := report.MeanOverall - 0.7; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("MeanOverall = %v, want 0.7 over successes only", report.MeanOverall)
	}
}

func TestRun_ExceedsMax(t *testing.T) {
	runner := &mockRunner{}
	report := New(runner, nil).WithMaxBatchSize(2).Run(context.Background(), queries("a", "b", "c"))

	if runner.callCount != 0 {
		t.Errorf("no query should run, calls=%d", runner.callCount)
	}
	if report.Failures != 3 {
		t.Errorf("Failures = %d, want 3", report.Failures)
	}
	for _, item := range report.Items {
		if !errors.Is(item.Err(), domain.ErrInvalidQuery) {
			t.Errorf("expected ErrInvalidQuery, got %v", item.Err())
		}
	}
}

func TestRun_CancelledContextAbortsRest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &mockRunner{onCall: cancel}

	report := New(runner, nil).Run(ctx, queries("a", "b", "c"))

	if runner.callCount != 1 {
		t.Errorf("calls = %d, want 1", runner.callCount)
	}
	if report.Failures != 2 {
		t.Errorf("Failures = %d, want 2", report.Failures)
	}
	if !errors.Is(report.Items[2].Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", report.Items[2].Err())
	}
	if report.Items[0].Status() != dombatch.StatusOK {
		t.Error("the first query completed before cancellation")
	}
}

func TestLoadQueries(t *testing.T) {
	in := `
queries:
  - id: capital
    query: "  What is the capital of France?  "
    filter: "lang eq 'en'"
  - query: Who wrote Hamlet?
`
	qs, err := LoadQueries(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(qs))
	}
	if qs[0].ID != "capital" || qs[0].Query != "What is the capital of France?" || qs[0].Filter != "lang eq 'en'" {
		t.Errorf("unexpected first query: %+v", qs[0])
	}
	if qs[1].ID != "q2" {
		t.Errorf("default id = %q, want q2", qs[1].ID)
	}
}

func TestLoadQueries_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"no queries":   "queries: []\n",
		"duplicate id": "queries:\n  - {id: x, query: a}\n  - {id: x, query: b}\n",
		"unknown key":  "queries:\n  - {id: x, text: a}\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadQueries(strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
