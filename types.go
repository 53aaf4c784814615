package ragpipe

import "time"

// Usage holds token counters reported by the model.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Source is a grounding document that reached the prompt.
type Source struct {
	Content string
	Label   string
	Score   float64
	Fields  map[string]any
}

// Answer is the outcome of Ask.
type Answer struct {
	Query     string
	Response  string
	Model     string
	LatencyMs float64
	TraceID   string
	Usage     Usage
	Sources   []Source
}

// MetricScore is a single quality score in [0, 1].
type MetricScore struct {
	Name    string
	Score   float64
	Details map[string]any
}

// Evaluation holds the scores of an answer. Overall is the weighted sum.
type Evaluation struct {
	Overall       float64
	Relevance     MetricScore
	Faithfulness  MetricScore
	AnswerQuality MetricScore
	LatencyMs     float64
}

// EvaluatedAnswer is the outcome of AskAndEvaluate.
type EvaluatedAnswer struct {
	Answer
	Evaluation Evaluation
}

// Record is a stored evaluation.
type Record struct {
	TraceID    string
	Query      string
	Response   string
	Model      string
	LatencyMs  float64
	Usage      Usage
	NumDocs    int
	Evaluation Evaluation
	CreatedAt  time.Time
}
