package ragpipe

import "github.com/kailas-cloud/ragpipe/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check. Model backend errors are returned unchanged and
// match none of these.
var (
	ErrConfiguration  = domain.ErrConfiguration
	ErrRetrieval      = domain.ErrRetrieval
	ErrGeneration     = domain.ErrGeneration
	ErrFormatting     = domain.ErrFormatting
	ErrInvalidQuery   = domain.ErrInvalidQuery
	ErrInvalidWeights = domain.ErrInvalidWeights
	ErrRecordNotFound = domain.ErrRecordNotFound
)
