package domain

import "context"

// SystemMessage is the fixed system turn sent ahead of every grounding prompt.
const SystemMessage = "You are a helpful assistant."

// Chat roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat turn.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is a chat-completion call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Usage holds token counters reported by the model backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMResult is the terminal output of the generation stage.
// Model is the configured model name; ServedModel is the snapshot the backend reported.
type LLMResult struct {
	Text        string
	Model       string
	ServedModel string
	Usage       Usage
}

// ChatCompleter is the language-model backend contract shared between layers.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (LLMResult, error)
}

// HealthChecker verifies backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
