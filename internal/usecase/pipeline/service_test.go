package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	domeval "github.com/kailas-cloud/ragpipe/internal/domain/evaluation"
	"github.com/kailas-cloud/ragpipe/internal/domain/prompt"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/mode"
	"github.com/kailas-cloud/ragpipe/internal/tracing"
	"github.com/kailas-cloud/ragpipe/internal/usecase/evaluation"
	"github.com/kailas-cloud/ragpipe/internal/usecase/generation"
)

// --- Mocks ---

type fakeRetriever struct {
	mu         sync.Mutex
	batch      document.Batch
	err        error
	lastMode   mode.Mode
	lastFilter string
}

func (f *fakeRetriever) Search(_ context.Context, m mode.Mode, _, filter string) (document.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMode = m
	f.lastFilter = filter
	return f.batch, f.err
}

type fakeLLM struct {
	mu     sync.Mutex
	result domain.LLMResult
	err    error
	last   domain.ChatRequest
}

func (f *fakeLLM) Complete(_ context.Context, req domain.ChatRequest) (domain.LLMResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	return f.result, f.err
}

type fakeRecords struct {
	saved []domeval.Record
	err   error
}

func (f *fakeRecords) Save(_ context.Context, rec domeval.Record) error {
	f.saved = append(f.saved, rec)
	return f.err
}

// --- Helpers ---

func franceBatch() document.Batch {
	return document.NewBatch([]document.Document{
		{"content": "Lyon is a large city in France.", "source": "wiki/lyon", "score": 1.1},
		{"content": "Paris is the capital of France.", "source": "wiki/paris", "score": 3.2},
		{"content": "France is a country in Europe.", "url": "https://example.org/fr", "score": 2.0},
	})
}

type fixture struct {
	svc       *Service
	retriever *fakeRetriever
	llm       *fakeLLM
	recorder  *tracetest.SpanRecorder
	records   *fakeRecords
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	retriever := &fakeRetriever{batch: franceBatch()}
	llm := &fakeLLM{result: domain.LLMResult{
		Text:        "Paris.",
		Model:       "gpt-4-turbo-2024-04-09",
		ServedModel: "gpt-4-turbo-2024-04-09",
		Usage:       domain.Usage{PromptTokens: 210, CompletionTokens: 2, TotalTokens: 212},
	}}
	evaluator, err := evaluation.New(evaluation.ConstantScorer{}, nil, nil)
	require.NoError(t, err)
	records := &fakeRecords{}

	svc, err := New(Deps{
		Retriever: retriever,
		Prompts:   prompt.NewBuilder(nil, nil),
		Generator: generation.New(llm, domain.DefaultGenerationConfig(), nil),
		Tracer:    tracing.NewOTelTracer(tp),
		Evaluator: evaluator,
		Records:   records,
	}, Config{TopK: 5})
	require.NoError(t, err)

	return &fixture{svc: svc, retriever: retriever, llm: llm, recorder: recorder, records: records}
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	return names
}

func findSpan(t *testing.T, spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	t.Fatalf("span %q not found in %v", name, spanNames(spans))
	return nil
}

func attrValue(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// --- Tests ---

func TestRun_CapitalOfFrance(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Run(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, "What is the capital of France?", res.Query)
	assert.Equal(t, "Paris.", res.Response)
	assert.Equal(t, "gpt-4-turbo", res.Model)
	assert.GreaterOrEqual(t, res.LatencyMs, 0.0)
	assert.NotEmpty(t, res.TraceID)
	assert.Equal(t, 212, res.Usage.TotalTokens)

	require.Len(t, res.Documents, 3)
	assert.Equal(t, "wiki/paris", res.Documents[0]["source"], "documents must be ranked by score")

	// grounding prompt reached the model with the query substituted
	user := f.llm.last.Messages[1].Content
	assert.Contains(t, user, "Document 1 (Source: wiki/paris):\nParis is the capital of France.")
	assert.Contains(t, user, "Question: What is the capital of France?")
	assert.Equal(t, mode.Hybrid, f.retriever.lastMode)

	ended := f.recorder.Ended()
	assert.Equal(t, []string{StageRetrieve, StageRank, StageBuildPrompt, StageGenerate, TraceName}, spanNames(ended))

	root := findSpan(t, ended, TraceName)
	assert.Equal(t, res.TraceID, root.SpanContext().TraceID().String())
	input, ok := attrValue(root, tracing.AttrInput)
	require.True(t, ok)
	assert.Contains(t, input.AsString(), `"initial_query":"What is the capital of France?"`)

	gen := findSpan(t, ended, StageGenerate)
	tokens, ok := attrValue(gen, "ragpipe.metadata.total_tokens")
	require.True(t, ok)
	assert.Equal(t, int64(212), tokens.AsInt64())
	_, ok = attrValue(gen, "ragpipe.metadata.latency_ms")
	assert.True(t, ok)
	served, ok := attrValue(gen, "ragpipe.metadata.served_model")
	require.True(t, ok)
	assert.Equal(t, "gpt-4-turbo-2024-04-09", served.AsString())
}

func TestRun_WithFilterAndMode(t *testing.T) {
	f := newFixture(t)
	svc, err := New(Deps{
		Retriever: f.retriever,
		Prompts:   prompt.NewBuilder(nil, nil),
		Generator: generation.New(f.llm, domain.DefaultGenerationConfig(), nil),
		Tracer:    tracing.NewOTelTracer(sdktrace.NewTracerProvider()),
	}, Config{Mode: mode.Keyword, TopK: 1})
	require.NoError(t, err)

	res, err := svc.Run(context.Background(), "q", WithFilter("lang eq 'fr'"))
	require.NoError(t, err)

	assert.Equal(t, mode.Keyword, f.retriever.lastMode)
	assert.Equal(t, "lang eq 'fr'", f.retriever.lastFilter)
	assert.Len(t, res.Documents, 1)
}

func TestRun_RateLimitedModel(t *testing.T) {
	f := newFixture(t)
	errRateLimited := errors.New("Rate limit reached for gpt-4-turbo")
	f.llm.err = errRateLimited

	res, err := f.svc.Run(context.Background(), "What is the capital of France?")

	require.Error(t, err)
	assert.True(t, err == errRateLimited, "the original error value must reach the caller, got %v", err) //nolint:errorlint
	assert.Equal(t, Result{}, res, "no partial result")

	ended := f.recorder.Ended()
	gen := findSpan(t, ended, StageGenerate)
	assert.Equal(t, codes.Error, gen.Status().Code)
	msg, ok := attrValue(gen, tracing.AttrError)
	require.True(t, ok)
	assert.Contains(t, msg.AsString(), "Rate limit reached")
	_, hasOutput := attrValue(gen, tracing.AttrOutput)
	assert.False(t, hasOutput)
	attempted, ok := attrValue(gen, tracing.AttrInput)
	require.True(t, ok)
	assert.Contains(t, attempted.AsString(), `"prompt":"You are an AI assistant`)
	assert.Contains(t, attempted.AsString(), `"query":"What is the capital of France?"`)

	root := findSpan(t, ended, TraceName)
	assert.Equal(t, codes.Error, root.Status().Code)
}

func TestRun_RetrievalFailure(t *testing.T) {
	f := newFixture(t)
	retrievalErr := errors.New("search down")
	f.retriever.err = retrievalErr

	_, err := f.svc.Run(context.Background(), "q")
	assert.True(t, errors.Is(err, retrievalErr))

	ended := f.recorder.Ended()
	assert.Equal(t, []string{StageRetrieve, TraceName}, spanNames(ended), "no stage runs after a failure")
	assert.Equal(t, codes.Error, findSpan(t, ended, StageRetrieve).Status().Code)
}

func TestRun_FormattingError(t *testing.T) {
	f := newFixture(t)

	svc, err := New(Deps{
		Retriever: f.retriever,
		Prompts:   brokenBuilder{},
		Generator: generation.New(f.llm, domain.DefaultGenerationConfig(), nil),
		Tracer:    tracing.NewOTelTracer(sdktrace.NewTracerProvider()),
	}, Config{})
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrFormatting)
}

type brokenBuilder struct{}

func (brokenBuilder) Build(document.Batch) string { return "Question: {question}" }

func TestRun_EmptyBatchStillGenerates(t *testing.T) {
	f := newFixture(t)
	f.retriever.batch = document.Batch{}

	res, err := f.svc.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Equal(t, "Paris.", res.Response)
}

func TestRun_BracesInDocumentsAreSafe(t *testing.T) {
	f := newFixture(t)
	f.retriever.batch = document.NewBatch([]document.Document{
		{"content": `config is {"a": {b}} and {query}`},
	})

	_, err := f.svc.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, f.llm.last.Messages[1].Content, `config is {"a": {b}} and {query}`)
}

func TestRunWithEvaluation(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RunWithEvaluation(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, "Paris.", res.Response)
	assert.InDelta(t, 0.879, res.Evaluation.OverallScore, 1e-9)
	assert.Equal(t, res.LatencyMs, res.Evaluation.Latency.Value)

	ended := f.recorder.Ended()
	assert.Equal(t,
		[]string{StageRetrieve, StageRank, StageBuildPrompt, StageGenerate, evaluation.SpanName, TraceName},
		spanNames(ended))

	require.Len(t, f.records.saved, 1)
	rec := f.records.saved[0]
	assert.Equal(t, res.TraceID, rec.TraceID)
	assert.Equal(t, 3, rec.NumDocs)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestRunWithEvaluation_RecordErrorIgnored(t *testing.T) {
	f := newFixture(t)
	f.records.err = errors.New("valkey unavailable")

	_, err := f.svc.RunWithEvaluation(context.Background(), "q")
	assert.NoError(t, err)
}

func TestRunWithEvaluation_NoEvaluator(t *testing.T) {
	f := newFixture(t)
	f.svc.deps.Evaluator = nil

	_, err := f.svc.RunWithEvaluation(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	f := newFixture(t)

	const n = 8
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Run(context.Background(), "q")
			if assert.NoError(t, err) {
				ids <- res.TraceID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "trace ids must be unique per run")
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, f.recorder.Ended(), n*5)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Deps{}, Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	f := newFixture(t)
	_, err = New(f.svc.deps, Config{Mode: "vector"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRun_PromptPreservesRankedOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Run(context.Background(), "q")
	require.NoError(t, err)

	user := f.llm.last.Messages[1].Content
	paris := strings.Index(user, "wiki/paris")
	france := strings.Index(user, "https://example.org/fr")
	lyon := strings.Index(user, "wiki/lyon")
	assert.True(t, paris < france && france < lyon, "prompt order must follow the ranking")
}
