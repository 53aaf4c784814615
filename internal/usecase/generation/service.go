// Package generation turns a grounding prompt into a language-model answer.
package generation

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/prompt"
	"github.com/kailas-cloud/ragpipe/internal/logger"
)

// Service fills the prompt template and calls the chat backend with fixed parameters.
type Service struct {
	llm    domain.ChatCompleter
	cfg    domain.GenerationConfig
	logger *zap.Logger
}

// New creates a generation service. Empty config fields take the package defaults.
func New(llm domain.ChatCompleter, cfg domain.GenerationConfig, logger *zap.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = domain.DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = domain.DefaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{llm: llm, cfg: cfg, logger: logger}
}

// Model returns the configured model name.
func (s *Service) Model() string { return s.cfg.Model }

// Complete substitutes query into template and sends the system and user turns.
// Formatting problems wrap domain.ErrFormatting; backend errors are returned as is.
func (s *Service) Complete(ctx context.Context, template, query string) (domain.LLMResult, error) {
	content, err := prompt.Fill(template, query)
	if err != nil {
		return domain.LLMResult{}, err
	}

	req := domain.ChatRequest{
		Model: s.Model(),
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: domain.SystemMessage},
			{Role: domain.RoleUser, Content: content},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	res, err := s.llm.Complete(ctx, req)
	if err != nil {
		return domain.LLMResult{}, err
	}
	res.Model = s.Model()

	logger.FromContext(ctx, s.logger).Debug("completion received",
		zap.String("model", res.Model),
		zap.String("served_model", res.ServedModel),
		zap.Int("prompt_chars", len(content)),
		zap.Int("total_tokens", res.Usage.TotalTokens),
	)
	return res, nil
}
