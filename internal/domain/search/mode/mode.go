package mode

// Mode is the retrieval strategy.
type Mode string

// Search mode constants.
const (
	// Semantic ranks with the backend's semantic reranker.
	Semantic Mode = "semantic"
	// Keyword is a plain full-text query without semantic ranking.
	Keyword Mode = "keyword"
	// Hybrid tries Semantic first and falls back to Keyword on failure or an empty result.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}
