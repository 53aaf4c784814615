package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/ragpipe/internal/config"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
)

type backend struct {
	searchCalls atomic.Int32
	lastPrompt  atomic.Value
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/docs/search"):
		b.searchCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{"content": "Paris is the capital of France.", "source": "wiki/paris", "@search.score": 3.2},
				{"content": "Lyon is a large city in France.", "source": "wiki/lyon", "@search.score": 1.1},
			},
		})
	case strings.HasSuffix(r.URL.Path, "/docs/$count"):
		_, _ = w.Write([]byte("2"))
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			b.lastPrompt.Store(req.Messages[1].Content)
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "Paris."}},
			},
			Usage: openai.Usage{PromptTokens: 40, CompletionTokens: 2, TotalTokens: 42},
		})
	case strings.HasSuffix(r.URL.Path, "/models"):
		_ = json.NewEncoder(w).Encode(openai.ModelsList{})
	default:
		http.NotFound(w, r)
	}
}

func testConfig(url string) config.Config {
	cfg := config.Config{
		Search: config.SearchConfig{Endpoint: url, AdminKey: "admin-key", Index: "docs"},
		LLM:    config.LLMConfig{APIKey: "sk-test", BaseURL: url},
	}
	return cfg
}

func TestNew_EndToEnd(t *testing.T) {
	be := &backend{}
	srv := httptest.NewServer(be)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	a, err := New(ctx, testConfig(srv.URL), Options{Env: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(ctx) })

	if a.Records != nil {
		t.Error("no database addrs means no record store")
	}

	res, err := a.Pipeline.RunWithEvaluation(ctx, "What is the capital of France?")
	if err != nil {
		t.Fatalf("RunWithEvaluation: %v", err)
	}

	if res.Response != "Paris." {
		t.Errorf("Response = %q", res.Response)
	}
	if res.Model != domain.DefaultModel {
		t.Errorf("Model = %q, want %q", res.Model, domain.DefaultModel)
	}
	if res.Usage.TotalTokens != 42 {
		t.Errorf("TotalTokens = %d", res.Usage.TotalTokens)
	}
	if res.TraceID == "" {
		t.Error("TraceID is empty")
	}
	if math.Abs(res.Evaluation.OverallScore-0.879) > 1e-9 {
		t.Errorf("OverallScore = %v, want 0.879", res.Evaluation.OverallScore)
	}
	if n := be.searchCalls.Load(); n != 1 {
		t.Errorf("search calls = %d, want 1 (semantic hit means no keyword fallback)", n)
	}

	userPrompt, _ := be.lastPrompt.Load().(string)
	for _, want := range []string{"Paris is the capital of France.", "What is the capital of France?"} {
		if !strings.Contains(userPrompt, want) {
			t.Errorf("prompt does not contain %q", want)
		}
	}

	report := a.Health.Check(ctx)
	if report.Status != healthuc.Healthy {
		t.Errorf("Status = %q", report.Status)
	}
	if report.Checks[healthuc.ComponentSearch] != healthuc.CheckOK || report.Checks[healthuc.ComponentLLM] != healthuc.CheckOK {
		t.Errorf("Checks = %v", report.Checks)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), config.Config{}, Options{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestNew_MissingLLMKey(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.LLM.APIKey = ""

	if _, err := New(context.Background(), cfg, Options{}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	srv := httptest.NewServer(&backend{})
	t.Cleanup(srv.Close)

	ctx := context.Background()
	a, err := New(ctx, testConfig(srv.URL), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.Close(ctx); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
