package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/app"
	"github.com/kailas-cloud/ragpipe/internal/config"
	logpkg "github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	"github.com/kailas-cloud/ragpipe/internal/version"
)

const closeTimeout = 10 * time.Second

type rootFlags struct {
	env      string
	logLevel string
	envFile  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "ragpipe",
		Short: "Retrieval-augmented answers with per-stage tracing and evaluation",
		Long: `ragpipe retrieves grounding documents from an Azure AI Search index, ranks and
deduplicates them, builds a grounding prompt and asks an OpenAI chat model.
Every run is traced with one span per stage; answers can be scored for
relevance, faithfulness and answer quality.

Configuration is read from config/<ENV>.yaml or the built-in defaults, with
${VAR} references expanded from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.env, "env", "", "environment name (default: $ENV or local)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading config")

	cmd.AddCommand(
		newAskCmd(flags),
		newEvalCmd(flags),
		newHealthCmd(flags),
		newRecordCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

// session is a bootstrapped process: config, logger and wired services.
type session struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	app    *app.App
}

// configure loads .env and the config file and lets the caller adjust it before wiring.
func configure(flags *rootFlags) (string, config.Config, error) {
	if err := godotenv.Load(flags.envFile); err != nil && !os.IsNotExist(err) {
		return "", config.Config{}, fmt.Errorf("load %s: %w", flags.envFile, err)
	}

	env := flags.env
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	return env, cfg, nil
}

// start builds the logger, registers metrics and wires the application.
func start(ctx context.Context, env string, cfg config.Config) (*session, error) {
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterPipelineMetrics()

	logger.Debug("Starting ragpipe",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
	)

	a, err := app.New(ctx, cfg, app.Options{Env: env, Logger: logger})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &session{env: env, cfg: cfg, logger: logger, app: a}, nil
}

func bootstrap(ctx context.Context, flags *rootFlags) (*session, error) {
	env, cfg, err := configure(flags)
	if err != nil {
		return nil, err
	}
	return start(ctx, env, cfg)
}

// close flushes traces with a fresh deadline so an interrupted run still exports its spans.
func (r *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := r.app.Close(ctx); err != nil {
		r.logger.Warn("Shutdown error", zap.Error(err))
	}
	_ = r.logger.Sync()
}
