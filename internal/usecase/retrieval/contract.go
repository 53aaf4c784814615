package retrieval

import (
	"context"

	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/request"
)

// Searcher runs a single semantic or keyword query against the search backend.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (document.Batch, error)
}
