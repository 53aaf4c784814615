package domain

import "errors"

var (
	// ErrConfiguration signals missing or invalid credentials/settings. Fatal at construction.
	ErrConfiguration = errors.New("configuration error")
	// ErrRetrieval signals a search backend failure that the keyword fallback could not recover.
	ErrRetrieval = errors.New("retrieval error")
	// ErrGeneration signals a malformed language-model response.
	// Model API failures are returned unchanged and do not wrap this.
	ErrGeneration = errors.New("generation error")
	// ErrFormatting signals a malformed prompt placeholder or an undefined template field.
	ErrFormatting = errors.New("formatting error")
	// ErrInvalidQuery signals an empty or oversized query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidWeights signals an evaluation weight table that does not sum to 1.0.
	ErrInvalidWeights = errors.New("invalid evaluation weights")
	// ErrRecordNotFound signals a missing evaluation record.
	ErrRecordNotFound = errors.New("evaluation record not found")
)
