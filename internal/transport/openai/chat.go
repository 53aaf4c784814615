package openai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// Compile-time checks.
var (
	_ domain.ChatCompleter = (*ChatClient)(nil)
	_ domain.HealthChecker = (*ChatClient)(nil)
)

// ChatClient is a chat-completion provider using the OpenAI-compatible API.
type ChatClient struct {
	client *openai.Client
	logger *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey  string
	BaseURL string // empty = api.openai.com
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewChatClient creates an OpenAI-compatible chat client.
func NewChatClient(cfg *Config) (*ChatClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key must be provided: %w", domain.ErrConfiguration)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatClient{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}, nil
}

// Complete implements domain.ChatCompleter.
// API errors are returned unchanged so callers can inspect *openai.APIError.
func (c *ChatClient) Complete(ctx context.Context, req domain.ChatRequest) (domain.LLMResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	// Temperature is omitempty on the wire; 0 would fall back to the server default.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})

	metrics.LLMRequestDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return domain.LLMResult{}, err
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return domain.LLMResult{}, fmt.Errorf("chat completion returned no choices: %w", domain.ErrGeneration)
	}

	metrics.LLMRequestsTotal.WithLabelValues(req.Model, "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(req.Model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(req.Model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.LLMTokensTotal.WithLabelValues(req.Model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.LLMResult{
		Text:        resp.Choices[0].Message.Content,
		Model:       req.Model,
		ServedModel: resp.Model,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
