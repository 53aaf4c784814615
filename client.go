package ragpipe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/app"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	domeval "github.com/kailas-cloud/ragpipe/internal/domain/evaluation"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
	"github.com/kailas-cloud/ragpipe/internal/usecase/pipeline"
)

// Client is the ragpipe library entry point. It is safe for concurrent use.
type Client struct {
	app           *app.App
	contentFields document.Fields
	sourceFields  document.Fields
}

// New validates the options and wires the pipeline.
// Missing search or model credentials fail with ErrConfiguration.
func New(opts ...Option) (*Client, error) {
	return NewContext(context.Background(), opts...)
}

// NewContext is New with a context bounding tracing setup and the record store readiness wait.
func NewContext(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, o := range opts {
		o.apply(cc)
	}

	a, err := app.New(ctx, cc.cfg, app.Options{
		Env:        cc.env,
		Logger:     cc.logger,
		HTTPClient: cc.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("ragpipe: %w", err)
	}

	c := &Client{
		app:           a,
		contentFields: document.ContentFields,
		sourceFields:  document.SourceFields,
	}
	if len(cc.cfg.Search.ContentFields) > 0 {
		c.contentFields = document.Fields(cc.cfg.Search.ContentFields)
	}
	if len(cc.cfg.Search.SourceFields) > 0 {
		c.sourceFields = document.Fields(cc.cfg.Search.SourceFields)
	}
	return c, nil
}

// AskOption customizes a single question.
type AskOption func(*askConfig)

type askConfig struct {
	filter string
}

// WithFilter passes an OData filter expression to the search backend.
func WithFilter(filter string) AskOption {
	return func(c *askConfig) { c.filter = filter }
}

func runOptions(opts []AskOption) []pipeline.RunOption {
	var ac askConfig
	for _, o := range opts {
		o(&ac)
	}
	if ac.filter == "" {
		return nil
	}
	return []pipeline.RunOption{pipeline.WithFilter(ac.filter)}
}

// Ask runs the pipeline for query. Model backend errors are returned unchanged.
func (c *Client) Ask(ctx context.Context, query string, opts ...AskOption) (Answer, error) {
	res, err := c.app.Pipeline.Run(ctx, query, runOptions(opts)...)
	if err != nil {
		return Answer{}, err //nolint:wrapcheck // callers match backend errors by identity
	}
	return c.answerFromResult(res), nil
}

// AskAndEvaluate runs the pipeline and scores the answer.
func (c *Client) AskAndEvaluate(ctx context.Context, query string, opts ...AskOption) (EvaluatedAnswer, error) {
	res, err := c.app.Pipeline.RunWithEvaluation(ctx, query, runOptions(opts)...)
	if err != nil {
		return EvaluatedAnswer{}, err //nolint:wrapcheck // callers match backend errors by identity
	}
	return EvaluatedAnswer{
		Answer:     c.answerFromResult(res.Result),
		Evaluation: evaluationFromDomain(res.Evaluation),
	}, nil
}

// Record loads a stored evaluation by trace id. Requires WithRecordStore.
func (c *Client) Record(ctx context.Context, traceID string) (Record, error) {
	if c.app.Records == nil {
		return Record{}, fmt.Errorf("ragpipe: record store is not configured: %w", ErrConfiguration)
	}
	rec, err := c.app.Records.Get(ctx, traceID)
	if err != nil {
		return Record{}, fmt.Errorf("ragpipe: %w", err)
	}
	return recordFromDomain(rec), nil
}

// Ping checks the search backend, the model backend and the record store.
func (c *Client) Ping(ctx context.Context) error {
	report := c.app.Health.Check(ctx)
	var down []string
	for name, result := range report.Checks {
		if result != healthuc.CheckOK {
			down = append(down, name)
		}
	}
	if len(down) == 0 {
		return nil
	}
	sort.Strings(down)
	return fmt.Errorf("ragpipe: unavailable: %s", strings.Join(down, ", "))
}

// Close flushes pending traces and releases connections.
func (c *Client) Close(ctx context.Context) error {
	if err := c.app.Close(ctx); err != nil {
		return fmt.Errorf("ragpipe: close: %w", err)
	}
	return nil
}

func (c *Client) answerFromResult(res pipeline.Result) Answer {
	sources := make([]Source, 0, len(res.Documents))
	for i, doc := range res.Documents {
		sources = append(sources, Source{
			Content: document.Content(doc, c.contentFields),
			Label:   document.Source(doc, c.sourceFields, i+1),
			Score:   scoreOf(doc),
			Fields:  map[string]any(doc),
		})
	}
	return Answer{
		Query:     res.Query,
		Response:  res.Response,
		Model:     res.Model,
		LatencyMs: res.LatencyMs,
		TraceID:   res.TraceID,
		Usage:     usageFromDomain(res.Usage),
		Sources:   sources,
	}
}

func scoreOf(doc document.Document) float64 {
	s, _ := document.Score(doc, document.FieldScore)
	return s
}

func usageFromDomain(u domain.Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func metricFromDomain(m domeval.Metric) MetricScore {
	return MetricScore{Name: m.Name, Score: m.Score, Details: m.Details}
}

func evaluationFromDomain(r domeval.Result) Evaluation {
	return Evaluation{
		Overall:       r.OverallScore,
		Relevance:     metricFromDomain(r.Relevance),
		Faithfulness:  metricFromDomain(r.Faithfulness),
		AnswerQuality: metricFromDomain(r.AnswerQuality),
		LatencyMs:     r.Latency.Value,
	}
}

func recordFromDomain(r domeval.Record) Record {
	return Record{
		TraceID:    r.TraceID,
		Query:      r.Query,
		Response:   r.Response,
		Model:      r.Model,
		LatencyMs:  r.LatencyMs,
		Usage:      usageFromDomain(r.Usage),
		NumDocs:    r.NumDocs,
		Evaluation: evaluationFromDomain(r.Evaluation),
		CreatedAt:  r.CreatedAt,
	}
}
