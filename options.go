package ragpipe

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg        config.Config
	env        string
	logger     *zap.Logger
	httpClient *http.Client
}

// WithSearch sets the Azure AI Search endpoint, admin key and index. Required.
func WithSearch(endpoint, adminKey, index string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.Endpoint = endpoint
		c.cfg.Search.AdminKey = adminKey
		c.cfg.Search.Index = index
	})
}

// WithSearchAPIVersion overrides the search REST API version.
func WithSearchAPIVersion(v string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.APIVersion = v
	})
}

// WithContentFields sets the document fields read for text, in lookup order.
// Defaults to content, text.
func WithContentFields(fields ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.ContentFields = fields
	})
}

// WithSourceFields sets the document fields read for the source label, in lookup order.
// Defaults to source, url.
func WithSourceFields(fields ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.SourceFields = fields
	})
}

// WithLLM sets the chat API key and model. An empty model keeps the default.
func WithLLM(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.LLM.APIKey = apiKey
		c.cfg.LLM.Model = model
	})
}

// WithLLMBaseURL points the chat client at an OpenAI-compatible endpoint.
func WithLLMBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.LLM.BaseURL = url
	})
}

// WithTemperature sets the sampling temperature. 0 is honored.
func WithTemperature(t float32) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.LLM.Temperature = &t
	})
}

// WithMaxTokens caps the number of completion tokens.
func WithMaxTokens(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.LLM.MaxTokens = n
	})
}

// WithTopK sets how many ranked documents ground the prompt. Defaults to 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Pipeline.TopK = k
	})
}

// WithMode selects the retrieval mode: "hybrid" (default), "semantic" or "keyword".
func WithMode(m string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Pipeline.Mode = m
	})
}

// WithWeights overrides the evaluation metric weights. They must sum to 1.
func WithWeights(w map[string]float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Evaluation.Weights = w
	})
}

// WithTracing exports traces over OTLP/HTTP to endpoint.
func WithTracing(endpoint, apiKey, project string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Tracing.Endpoint = endpoint
		c.cfg.Tracing.APIKey = apiKey
		c.cfg.Tracing.Project = project
	})
}

// WithRecordStore persists evaluation records in Valkey or Redis.
func WithRecordStore(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithHTTPClient sets the transport used for search requests.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithEnvironment labels exported traces with a deployment environment.
func WithEnvironment(env string) Option {
	return optionFunc(func(c *clientConfig) {
		c.env = env
	})
}
