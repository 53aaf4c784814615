// Package pipeline runs one retrieval-augmented request: retrieve, rank, build the
// prompt, generate, and optionally evaluate, tracing a span per stage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	domeval "github.com/kailas-cloud/ragpipe/internal/domain/evaluation"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/mode"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	"github.com/kailas-cloud/ragpipe/internal/tracing"
)

// TraceName is the top-level trace opened for every run.
const TraceName = "rag-pipeline"

// Stage span names.
const (
	StageRetrieve    = "retrieve"
	StageRank        = "rank"
	StageBuildPrompt = "build_prompt"
	StageGenerate    = "generate"
)

// Result is the outcome of a successful run.
type Result struct {
	Query     string              `json:"query"`
	Response  string              `json:"response"`
	Model     string              `json:"model"`
	LatencyMs float64             `json:"latency_ms"`
	TraceID   string              `json:"trace_id"`
	Usage     domain.Usage        `json:"usage"`
	Documents []document.Document `json:"documents,omitempty"`
}

// EvaluatedResult is a run plus its evaluation.
type EvaluatedResult struct {
	Result
	Evaluation domeval.Result `json:"evaluation"`
}

// Config holds per-service run settings.
type Config struct {
	Mode          mode.Mode       // default hybrid
	TopK          int             // default domain.DefaultTopK
	ContentFields document.Fields // dedup key lookup, default content, text
}

// Deps are the collaborators of a Service. Evaluator and Records are optional.
type Deps struct {
	Retriever Retriever
	Prompts   PromptBuilder
	Generator Generator
	Tracer    tracing.Tracer
	Evaluator Evaluator
	Records   RecordStore
	Logger    *zap.Logger
}

// Service orchestrates runs. It holds no per-request state and is safe for concurrent use
// when its collaborators are.
type Service struct {
	deps Deps
	cfg  Config
}

// New validates dependencies and applies config defaults.
func New(deps Deps, cfg Config) (*Service, error) {
	if deps.Retriever == nil || deps.Prompts == nil || deps.Generator == nil || deps.Tracer == nil {
		return nil, fmt.Errorf("pipeline requires retriever, prompt builder, generator and tracer: %w",
			domain.ErrConfiguration)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Mode == "" {
		cfg.Mode = mode.Hybrid
	}
	if !cfg.Mode.IsValid() {
		return nil, fmt.Errorf("pipeline mode %q: %w", cfg.Mode, domain.ErrConfiguration)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if len(cfg.ContentFields) == 0 {
		cfg.ContentFields = document.ContentFields
	}
	return &Service{deps: deps, cfg: cfg}, nil
}

// RunOption customizes a single run.
type RunOption func(*runOptions)

type runOptions struct {
	filter string
}

// WithFilter passes a backend filter expression to retrieval.
func WithFilter(filter string) RunOption {
	return func(o *runOptions) { o.filter = filter }
}

// Run executes the pipeline for query. Any stage error is returned unchanged.
func (s *Service) Run(ctx context.Context, query string, opts ...RunOption) (Result, error) {
	r, ctx := s.begin(ctx, query, opts)
	res, err := s.execute(ctx, r, query)
	s.finish(r, res, err)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// RunWithEvaluation executes the pipeline, evaluates the answer inside the same trace,
// and stores the record when a record store is configured.
func (s *Service) RunWithEvaluation(
	ctx context.Context, query string, opts ...RunOption,
) (EvaluatedResult, error) {
	if s.deps.Evaluator == nil {
		return EvaluatedResult{}, fmt.Errorf("no evaluator configured: %w", domain.ErrConfiguration)
	}

	r, ctx := s.begin(ctx, query, opts)
	res, err := s.execute(ctx, r, query)
	if err != nil {
		s.finish(r, res, err)
		return EvaluatedResult{}, err
	}

	eval, err := s.deps.Evaluator.RunAll(ctx, query, res.Documents, res.Response, res.LatencyMs)
	if err != nil {
		err = fmt.Errorf("evaluate: %w", err)
		s.finish(r, res, err)
		return EvaluatedResult{}, err
	}
	r.evaluation = &eval
	s.finish(r, res, nil)

	out := EvaluatedResult{Result: res, Evaluation: eval}
	s.saveRecord(ctx, r, out)
	return out, nil
}

// run is the per-request state.
type run struct {
	machine
	trace      tracing.Trace
	start      time.Time
	opts       runOptions
	log        *zap.Logger
	failedAt   string
	evaluation *domeval.Result
}

func (s *Service) begin(ctx context.Context, query string, opts []RunOption) (*run, context.Context) {
	r := &run{machine: machine{state: StateIdle}}
	for _, o := range opts {
		o(&r.opts)
	}

	_ = r.advance(StateRetrieving)
	ctx, r.trace = s.deps.Tracer.StartTrace(ctx, TraceName, map[string]any{"initial_query": query})
	r.start = time.Now()
	ctx = tracing.ContextWithTrace(ctx, r.trace)
	ctx = logger.WithTrace(ctx, s.deps.Logger, r.trace.ID())
	r.log = logger.FromContext(ctx, s.deps.Logger)
	return r, ctx
}

func (s *Service) execute(ctx context.Context, r *run, query string) (Result, error) {
	// retrieving
	start := time.Now()
	batch, err := s.deps.Retriever.Search(ctx, s.cfg.Mode, query, r.opts.filter)
	s.record(r, StageRetrieve, start,
		map[string]any{"query": query, "filter": r.opts.filter, "mode": string(s.cfg.Mode)},
		map[string]any{"num_docs": batch.Len(), "count": batch.Count, "documents": batch.Docs},
		nil, err)
	if err != nil {
		return Result{}, s.fail(r, StageRetrieve, err)
	}

	// ranking
	if err := r.advance(StateRanking); err != nil {
		return Result{}, s.fail(r, StageRank, err)
	}
	start = time.Now()
	ranked := rankAndDedupe(batch, s.cfg.TopK, s.cfg.ContentFields)
	s.record(r, StageRank, start,
		map[string]any{"num_docs": batch.Len(), "top_k": s.cfg.TopK},
		map[string]any{"num_docs": ranked.Len(), "documents": ranked.Docs},
		nil, nil)

	// prompt building
	if err := r.advance(StatePromptBuilding); err != nil {
		return Result{}, s.fail(r, StageBuildPrompt, err)
	}
	start = time.Now()
	template := s.deps.Prompts.Build(ranked)
	s.record(r, StageBuildPrompt, start,
		map[string]any{"num_docs": ranked.Len()},
		map[string]any{"prompt": template, "prompt_chars": len(template)},
		nil, nil)

	// generating
	if err := r.advance(StateGenerating); err != nil {
		return Result{}, s.fail(r, StageGenerate, err)
	}
	start = time.Now()
	llm, err := s.deps.Generator.Complete(ctx, template, query)
	s.record(r, StageGenerate, start,
		map[string]any{"query": query, "prompt": template, "prompt_chars": len(template)},
		map[string]any{"response": llm.Text, "model": llm.Model},
		map[string]any{
			"served_model":      llm.ServedModel,
			"prompt_tokens":     llm.Usage.PromptTokens,
			"completion_tokens": llm.Usage.CompletionTokens,
			"total_tokens":      llm.Usage.TotalTokens,
		},
		err)
	if err != nil {
		return Result{}, s.fail(r, StageGenerate, err)
	}

	if err := r.advance(StateDone); err != nil {
		return Result{}, s.fail(r, StageGenerate, err)
	}

	return Result{
		Query:     query,
		Response:  llm.Text,
		Model:     llm.Model,
		LatencyMs: millis(time.Since(r.start)),
		TraceID:   r.trace.ID(),
		Usage:     llm.Usage,
		Documents: ranked.Docs,
	}, nil
}

// record appends the stage span and its metrics. Output is dropped when err is set.
func (s *Service) record(
	r *run, stage string, start time.Time, input, output, meta map[string]any, err error,
) {
	end := time.Now()
	elapsed := end.Sub(start)

	if meta == nil {
		meta = map[string]any{}
	}
	meta["latency_ms"] = millis(elapsed)

	rec := tracing.SpanRecord{Name: stage, Input: input, Metadata: meta, Start: start, End: end}
	status := "success"
	if err != nil {
		rec.Err = err
		status = "error"
	} else {
		rec.Output = output
	}
	r.trace.Span(rec)

	metrics.PipelineStageDuration.WithLabelValues(stage, status).Observe(elapsed.Seconds())
	if err == nil {
		r.log.Debug("stage done", zap.String("stage", stage), zap.Duration("duration", elapsed))
	}
}

// fail moves the run to Failed and returns err unchanged.
func (s *Service) fail(r *run, stage string, err error) error {
	_ = r.advance(StateFailed)
	r.failedAt = stage
	metrics.PipelineFailuresTotal.WithLabelValues(stage).Inc()
	r.log.Error("stage failed", zap.String("stage", stage), zap.Error(err))
	return err
}

// finish closes the trace and emits the canonical log line for the run.
func (s *Service) finish(r *run, res Result, err error) {
	fields := []zap.Field{
		zap.String("trace_id", r.trace.ID()),
		zap.String("mode", string(s.cfg.Mode)),
		zap.String("state", string(r.state)),
		zap.Duration("latency", time.Since(r.start)),
	}

	if err != nil {
		r.trace.End(nil, err)
		metrics.PipelineRequestsTotal.WithLabelValues(string(StateFailed)).Inc()
		if r.failedAt != "" {
			fields = append(fields, zap.String("failed_stage", r.failedAt))
		}
		r.log.Info("rag_request", append(fields, zap.Error(err))...)
		return
	}

	output := map[string]any{
		"response":   res.Response,
		"model":      res.Model,
		"latency_ms": res.LatencyMs,
	}
	if r.evaluation != nil {
		output["overall_score"] = r.evaluation.OverallScore
	}
	r.trace.End(output, nil)
	metrics.PipelineRequestsTotal.WithLabelValues(string(StateDone)).Inc()

	fields = append(fields,
		zap.String("model", res.Model),
		zap.Int("num_docs", len(res.Documents)),
		zap.Int("total_tokens", res.Usage.TotalTokens),
	)
	if r.evaluation != nil {
		fields = append(fields, zap.Float64("overall_score", r.evaluation.OverallScore))
	}
	r.log.Info("rag_request", fields...)
}

// saveRecord stores the evaluated run. Failures are logged, never returned.
func (s *Service) saveRecord(ctx context.Context, r *run, out EvaluatedResult) {
	if s.deps.Records == nil {
		return
	}
	rec := domeval.Record{
		TraceID:    out.TraceID,
		Query:      out.Query,
		Response:   out.Response,
		Model:      out.Model,
		LatencyMs:  out.LatencyMs,
		Usage:      out.Usage,
		NumDocs:    len(out.Documents),
		Evaluation: out.Evaluation,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.deps.Records.Save(ctx, rec); err != nil {
		r.log.Warn("failed to store evaluation record", zap.Error(err))
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
