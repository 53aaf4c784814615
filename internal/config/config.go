package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

//go:embed default.yaml
var defaultConfig []byte

// Config holds the ragpipe configuration.
type Config struct {
	Search     SearchConfig     `yaml:"search"`
	LLM        LLMConfig        `yaml:"llm"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Database   DatabaseConfig   `yaml:"database"`
	Ops        OpsConfig        `yaml:"ops"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// SearchConfig holds Azure AI Search settings.
type SearchConfig struct {
	Endpoint      string   `yaml:"endpoint"`
	AdminKey      string   `yaml:"admin_key"`
	Index         string   `yaml:"index"`
	APIVersion    string   `yaml:"api_version"`
	TimeoutSec    int      `yaml:"timeout_sec"`
	ContentFields []string `yaml:"content_fields"` // lookup order for document text
	SourceFields  []string `yaml:"source_fields"`  // lookup order for the source label
}

// LLMConfig holds chat-completion settings.
type LLMConfig struct {
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"` // nil = default; 0 is a valid value
	MaxTokens   int      `yaml:"max_tokens"`
	TimeoutSec  int      `yaml:"timeout_sec"`
}

// TracingConfig holds tracing/evaluation backend settings.
type TracingConfig struct {
	APIKey      string  `yaml:"api_key"`
	Workspace   string  `yaml:"workspace"`
	Project     string  `yaml:"project"`
	Endpoint    string  `yaml:"endpoint"` // OTLP/HTTP base URL, empty = no export
	SampleRatio float64 `yaml:"sample_ratio"`
}

// PipelineConfig holds request pipeline settings.
type PipelineConfig struct {
	TopK int    `yaml:"top_k"`
	Mode string `yaml:"mode"` // hybrid (default), semantic, keyword
}

// EvaluationConfig holds evaluator weights keyed by metric name.
type EvaluationConfig struct {
	Weights map[string]float64 `yaml:"weights"`
}

// DatabaseConfig holds the optional evaluation record store connection.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"` // empty = records are not persisted
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	RecordTTLHours   int      `yaml:"record_ttl_hours"`
}

// OpsConfig holds the optional ops listener (/metrics, /healthz).
type OpsConfig struct {
	MetricsAddr string   `yaml:"metrics_addr"` // empty = disabled
	APIKeys     []string `yaml:"api_keys"`
	ShutdownSec int      `yaml:"shutdown_timeout_sec"`
}

// Load reads configuration by environment name (local, dev, prod).
// Falls back to the built-in configuration when config/<env>.yaml does not exist.
func Load(env string) (Config, error) {
	data := defaultConfig

	configPath := findConfigPath(env)
	if fileExists(configPath) {
		var err error
		data, err = os.ReadFile(filepath.Clean(configPath))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	return Parse(data)
}

// Parse expands environment variables, applies defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Search.APIVersion == "" {
		c.Search.APIVersion = "2023-07-01-Preview"
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 30
	}
	if c.LLM.Model == "" {
		c.LLM.Model = domain.DefaultModel
	}
	if c.LLM.Temperature == nil {
		t := float32(domain.DefaultTemperature)
		c.LLM.Temperature = &t
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = domain.DefaultMaxTokens
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.Tracing.Project == "" {
		c.Tracing.Project = "rag-pipeline"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = domain.DefaultTopK
	}
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = "hybrid"
	}
	if len(c.Evaluation.Weights) == 0 {
		c.Evaluation.Weights = domain.DefaultWeights()
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.RecordTTLHours <= 0 {
		c.Database.RecordTTLHours = 168
	}
	if c.Ops.ShutdownSec <= 0 {
		c.Ops.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
// Missing search credentials are reported as domain.ErrConfiguration.
func (c *Config) Validate() error {
	var missing []string
	if c.Search.Endpoint == "" {
		missing = append(missing, "search.endpoint")
	}
	if c.Search.AdminKey == "" {
		missing = append(missing, "search.admin_key")
	}
	if c.Search.Index == "" {
		missing = append(missing, "search.index")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required: %w", strings.Join(missing, ", "), domain.ErrConfiguration)
	}

	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %g", *t)
	}
	switch c.Pipeline.Mode {
	case "hybrid", "semantic", "keyword":
		// ok
	default:
		return fmt.Errorf("pipeline.mode must be \"hybrid\", \"semantic\" or \"keyword\", got %q", c.Pipeline.Mode)
	}

	if err := domain.Weights(c.Evaluation.Weights).Validate(); err != nil {
		return fmt.Errorf("evaluation.weights: %w", err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
