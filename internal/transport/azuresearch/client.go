// Package azuresearch is a thin Azure AI Search REST client for the docs/search endpoint.
package azuresearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/mode"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/request"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
)

// DefaultAPIVersion supports queryLanguage on semantic queries.
const DefaultAPIVersion = "2023-07-01-Preview"

// Response annotations copied onto documents.
const (
	annotationScore         = "@search.score"
	annotationRerankerScore = "@search.rerankerScore"
)

// Compile-time check: Client implements domain.HealthChecker.
var _ domain.HealthChecker = (*Client)(nil)

// Client calls a single search index.
type Client struct {
	httpClient *http.Client
	endpoint   string
	adminKey   string
	index      string
	apiVersion string
	logger     *zap.Logger
}

// Config holds the search service settings.
type Config struct {
	Endpoint   string
	AdminKey   string
	Index      string
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, overrides Timeout
	Logger     *zap.Logger
}

// NewClient validates credentials and creates a client.
// Returns domain.ErrConfiguration when the endpoint, key or index is empty.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AdminKey == "" || cfg.Index == "" {
		return nil, fmt.Errorf("search endpoint, key and index name must be provided: %w", domain.ErrConfiguration)
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("search endpoint %q: %w", cfg.Endpoint, domain.ErrConfiguration)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		adminKey:   cfg.AdminKey,
		index:      cfg.Index,
		apiVersion: apiVersion,
		logger:     logger,
	}, nil
}

type searchBody struct {
	Search                string `json:"search"`
	QueryType             string `json:"queryType,omitempty"`
	QueryLanguage         string `json:"queryLanguage,omitempty"`
	SemanticConfiguration string `json:"semanticConfiguration,omitempty"`
	Filter                string `json:"filter,omitempty"`
	Top                   int    `json:"top"`
	Count                 bool   `json:"count"`
}

type searchResponse struct {
	Count *int             `json:"@odata.count"`
	Value []map[string]any `json:"value"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx response from the search service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("search API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("search API error %d: %s", e.StatusCode, e.Message)
}

// Search runs a semantic or keyword query and returns the hits in backend order.
// Semantic hits carry score and reranker_score, keyword hits carry score only.
func (c *Client) Search(ctx context.Context, req request.Request) (document.Batch, error) {
	body := searchBody{
		Search: req.Query(),
		Filter: req.Filter(),
		Top:    req.TopK(),
		Count:  true,
	}
	switch req.Mode() {
	case mode.Semantic:
		body.QueryType = "semantic"
		body.QueryLanguage = request.SemanticLanguage
		body.SemanticConfiguration = request.SemanticConfig
	case mode.Keyword:
		body.QueryType = "simple"
	default:
		return document.Batch{}, fmt.Errorf("search client does not run %q queries", req.Mode())
	}

	modeLabel := string(req.Mode())
	start := time.Now()

	resp, err := c.doSearch(ctx, &body)

	metrics.SearchRequestDuration.WithLabelValues(modeLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(modeLabel, "error").Inc()
		return document.Batch{}, err
	}
	metrics.SearchRequestsTotal.WithLabelValues(modeLabel, "success").Inc()

	docs := make([]document.Document, 0, len(resp.Value))
	for _, hit := range resp.Value {
		docs = append(docs, toDocument(hit, req.Mode() == mode.Semantic))
	}

	batch := document.NewBatch(docs)
	if resp.Count != nil {
		batch.Count = *resp.Count
	}

	c.logger.Debug("search done",
		zap.String("mode", modeLabel),
		zap.Int("hits", len(docs)),
		zap.Int("count", batch.Count),
		zap.Duration("duration", time.Since(start)),
	)
	return batch, nil
}

// HealthCheck verifies the index is reachable via the document count endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	u := fmt.Sprintf("%s/indexes/%s/docs/$count?api-version=%s",
		c.endpoint, url.PathEscape(c.index), url.QueryEscape(c.apiVersion))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("api-key", c.adminKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) doSearch(ctx context.Context, body *searchBody) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	u := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		c.endpoint, url.PathEscape(c.index), url.QueryEscape(c.apiVersion))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("api-key", c.adminKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

// toDocument keeps every stored field and annotation. Score annotations are renamed
// to the document score fields; the reranker score only survives semantic queries.
func toDocument(hit map[string]any, withReranker bool) document.Document {
	doc := make(document.Document, len(hit))
	for k, v := range hit {
		if k == annotationScore || k == annotationRerankerScore {
			continue
		}
		doc[k] = v
	}
	if v, ok := hit[annotationScore]; ok && v != nil {
		doc[document.FieldScore] = v
	}
	if withReranker {
		if v, ok := hit[annotationRerankerScore]; ok && v != nil {
			doc[document.FieldRerankerScore] = v
		}
	}
	return doc
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		apiErr.Code = parsed.Error.Code
		apiErr.Message = parsed.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
