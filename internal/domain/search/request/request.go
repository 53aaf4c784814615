package request

import (
	"fmt"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	MaxTopK        = 1000
)

// Fixed semantic ranking parameters.
const (
	SemanticLanguage = "en-us"
	SemanticConfig   = "default"
)

// Request is a validated search query.
type Request struct {
	query      string
	searchMode mode.Mode
	filter     string
	topK       int
}

// New validates and normalizes search parameters.
// Defaults: mode=hybrid, topK=domain.DefaultTopK. The filter is passed to the backend verbatim.
func New(query string, m mode.Mode, filter string, topK int) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidQuery)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode: %q", m)
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	return Request{
		query:      query,
		searchMode: m,
		filter:     filter,
		topK:       topK,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filter returns the OData filter expression ("" for none).
func (r *Request) Filter() string { return r.filter }

// TopK returns the maximum number of results to request.
func (r *Request) TopK() int { return r.topK }
