package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds tracing backend settings.
type Config struct {
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP/HTTP base URL; "/v1/traces" is appended. Empty disables export.
	Endpoint    string
	APIKey      string
	Workspace   string
	Project     string
	SampleRatio float64
}

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// InitProvider builds an SDK tracer provider. Without an endpoint the provider still issues
// trace ids but exports nothing.
func InitProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, ShutdownFunc, error) {
	project := cfg.Project
	if project == "" {
		project = "rag-pipeline"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(project),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}

	if cfg.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(strings.TrimRight(cfg.Endpoint, "/")+"/v1/traces"),
			otlptracehttp.WithHeaders(exportHeaders(cfg, project)),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	return tp, tp.Shutdown, nil
}

// exportHeaders maps the evaluation backend credentials onto OTLP request headers.
func exportHeaders(cfg Config, project string) map[string]string {
	headers := map[string]string{"projectName": project}
	if cfg.APIKey != "" {
		headers["Authorization"] = cfg.APIKey
	}
	if cfg.Workspace != "" {
		headers["Comet-Workspace"] = cfg.Workspace
	}
	return headers
}
