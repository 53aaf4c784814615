package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/mode"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/request"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// Service retrieves grounding documents with a semantic query and a keyword fallback.
type Service struct {
	searcher Searcher
	topK     int
	logger   *zap.Logger
}

// New creates a retrieval service. topK <= 0 uses domain.DefaultTopK.
func New(searcher Searcher, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{searcher: searcher, topK: topK, logger: logger}
}

// Search dispatches on the retrieval mode.
func (s *Service) Search(ctx context.Context, m mode.Mode, query, filter string) (document.Batch, error) {
	switch m {
	case mode.Semantic:
		return s.Retrieve(ctx, query, filter)
	case mode.Keyword:
		return s.retrieveKeyword(ctx, query, filter)
	case mode.Hybrid, "":
		return s.RetrieveHybrid(ctx, query, filter)
	default:
		return document.Batch{}, fmt.Errorf("unsupported search mode: %s", m)
	}
}

// Retrieve runs a semantic-ranked query.
func (s *Service) Retrieve(ctx context.Context, query, filter string) (document.Batch, error) {
	req, err := request.New(query, mode.Semantic, filter, s.topK)
	if err != nil {
		return document.Batch{}, err
	}

	batch, err := s.searcher.Search(ctx, req)
	if err != nil {
		return document.Batch{}, fmt.Errorf("%w: semantic search: %w", domain.ErrRetrieval, err)
	}
	return batch, nil
}

// RetrieveHybrid tries Retrieve first. Any failure or an empty result triggers exactly
// one keyword query with the same filter and top_k; only its error is returned.
func (s *Service) RetrieveHybrid(ctx context.Context, query, filter string) (document.Batch, error) {
	if _, err := request.New(query, mode.Hybrid, filter, s.topK); err != nil {
		return document.Batch{}, err
	}

	log := logger.FromContext(ctx, s.logger)

	batch, err := s.Retrieve(ctx, query, filter)
	switch {
	case err != nil:
		log.Warn("semantic search failed, falling back to keyword search", zap.Error(err))
		metrics.SearchFallbacksTotal.WithLabelValues("error").Inc()
	case batch.Len() == 0:
		log.Debug("semantic search returned no documents, falling back to keyword search")
		metrics.SearchFallbacksTotal.WithLabelValues("empty").Inc()
	default:
		return batch, nil
	}

	return s.retrieveKeyword(ctx, query, filter)
}

func (s *Service) retrieveKeyword(ctx context.Context, query, filter string) (document.Batch, error) {
	req, err := request.New(query, mode.Keyword, filter, s.topK)
	if err != nil {
		return document.Batch{}, err
	}

	batch, err := s.searcher.Search(ctx, req)
	if err != nil {
		return document.Batch{}, fmt.Errorf("%w: keyword search: %w", domain.ErrRetrieval, err)
	}
	return batch, nil
}
