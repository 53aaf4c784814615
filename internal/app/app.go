// Package app is the composition root shared by the CLI and the library facade.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/config"
	dbValkey "github.com/kailas-cloud/ragpipe/internal/db/valkey"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	"github.com/kailas-cloud/ragpipe/internal/domain/prompt"
	"github.com/kailas-cloud/ragpipe/internal/domain/search/mode"
	"github.com/kailas-cloud/ragpipe/internal/repository/evalrecord"
	"github.com/kailas-cloud/ragpipe/internal/tracing"
	"github.com/kailas-cloud/ragpipe/internal/transport/azuresearch"
	openaiChat "github.com/kailas-cloud/ragpipe/internal/transport/openai"
	batchuc "github.com/kailas-cloud/ragpipe/internal/usecase/batch"
	evaluationuc "github.com/kailas-cloud/ragpipe/internal/usecase/evaluation"
	generationuc "github.com/kailas-cloud/ragpipe/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
	"github.com/kailas-cloud/ragpipe/internal/usecase/pipeline"
	retrievaluc "github.com/kailas-cloud/ragpipe/internal/usecase/retrieval"
	"github.com/kailas-cloud/ragpipe/internal/version"
)

// Options tune construction beyond the config file.
type Options struct {
	Env        string
	Logger     *zap.Logger
	HTTPClient *http.Client // search backend transport, optional
}

// App holds the wired services.
type App struct {
	Pipeline *pipeline.Service
	Batch    *batchuc.Service
	Health   *healthuc.Service
	Records  *evalrecord.Repo // nil without database.addrs

	store           *dbValkey.Store
	shutdownTracing tracing.ShutdownFunc
	logger          *zap.Logger
}

// New validates cfg and wires search, LLM, tracing, evaluation and the optional record store.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	search, err := azuresearch.NewClient(&azuresearch.Config{
		Endpoint:   cfg.Search.Endpoint,
		AdminKey:   cfg.Search.AdminKey,
		Index:      cfg.Search.Index,
		APIVersion: cfg.Search.APIVersion,
		Timeout:    time.Duration(cfg.Search.TimeoutSec) * time.Second,
		HTTPClient: opts.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	chat, err := openaiChat.NewChatClient(&openaiChat.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	tp, shutdown, err := tracing.InitProvider(ctx, tracing.Config{
		ServiceVersion: version.Version,
		Environment:    opts.Env,
		Endpoint:       cfg.Tracing.Endpoint,
		APIKey:         cfg.Tracing.APIKey,
		Workspace:      cfg.Tracing.Workspace,
		Project:        cfg.Tracing.Project,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	a := &App{shutdownTracing: shutdown, logger: logger}

	evaluator, err := evaluationuc.New(nil, domain.Weights(cfg.Evaluation.Weights), logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	checkers := map[string]healthuc.Checker{
		healthuc.ComponentSearch: search,
		healthuc.ComponentLLM:    chat,
	}

	// Pass a nil interface, not a typed nil *Repo.
	var records pipeline.RecordStore
	if len(cfg.Database.Addrs) > 0 {
		store, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("create record store: %w", err)
		}
		a.store = store
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("record store not ready: %w", err)
		}
		a.Records = evalrecord.New(store, time.Duration(cfg.Database.RecordTTLHours)*time.Hour, logger)
		records = a.Records
		checkers[healthuc.ComponentStore] = store
		logger.Info("Connected to record store", zap.Strings("addrs", cfg.Database.Addrs))
	}

	contentFields := document.ContentFields
	if len(cfg.Search.ContentFields) > 0 {
		contentFields = document.Fields(cfg.Search.ContentFields)
	}
	sourceFields := document.SourceFields
	if len(cfg.Search.SourceFields) > 0 {
		sourceFields = document.Fields(cfg.Search.SourceFields)
	}

	a.Pipeline, err = pipeline.New(pipeline.Deps{
		Retriever: retrievaluc.New(search, cfg.Pipeline.TopK, logger),
		Prompts:   prompt.NewBuilder(contentFields, sourceFields),
		Generator: generationuc.New(chat, domain.GenerationConfig{
			Model:       cfg.LLM.Model,
			Temperature: *cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}, logger),
		Tracer:    tracing.NewOTelTracer(tp),
		Evaluator: evaluator,
		Records:   records,
		Logger:    logger,
	}, pipeline.Config{
		Mode:          mode.Mode(cfg.Pipeline.Mode),
		TopK:          cfg.Pipeline.TopK,
		ContentFields: contentFields,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.Batch = batchuc.New(a.Pipeline, logger)
	a.Health = healthuc.New(checkers, logger)

	logger.Debug("Pipeline wired",
		zap.String("index", cfg.Search.Index),
		zap.String("model", cfg.LLM.Model),
		zap.String("mode", cfg.Pipeline.Mode),
		zap.Int("top_k", cfg.Pipeline.TopK),
		zap.Bool("records", records != nil),
	)
	return a, nil
}

// Close flushes pending spans and releases the record store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		a.shutdownTracing = nil
	}
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	return errors.Join(errs...)
}
