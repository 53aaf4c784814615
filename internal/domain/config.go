package domain

// Pipeline defaults shared by config, the library facade and the use cases.
const (
	DefaultTopK        = 5
	DefaultModel       = "gpt-4-turbo"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// GenerationConfig holds the fixed chat-completion parameters.
type GenerationConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// DefaultGenerationConfig returns model "gpt-4-turbo", temperature 0.7, 500 output tokens.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}
