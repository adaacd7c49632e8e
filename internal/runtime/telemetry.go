package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

	"github.com/loqalabs/soundcode/internal/config"
)

// spanBucketsMS covers a single letter up to the longest renderable code.
var spanBucketsMS = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000}

// telemetry holds the providers installed for one runtime.
type telemetry struct {
	traces  *sdktrace.TracerProvider
	meters  *sdkmetric.MeterProvider
	metrics http.Handler // nil when the Prometheus exporter is unavailable
}

// setupTelemetry installs global trace and meter providers. Spans go to
// OTLP when an endpoint is configured, to stderr at debug level, and are
// otherwise dropped.
func setupTelemetry(ctx context.Context, cfg config.Config, logger *slog.Logger) (*telemetry, error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	exporter, exporterName, err := newSpanExporter(ctx, cfg.Telemetry, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exporter != nil {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}
	t := &telemetry{traces: sdktrace.NewTracerProvider(traceOpts...)}

	meterOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithView(spanHistogramView()),
	}
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if reader, err := prometheus.New(prometheus.WithRegisterer(registry)); err != nil {
		logger.Warn("failed to initialize prometheus exporter", slog.String("error", err.Error()))
	} else {
		meterOpts = append(meterOpts, sdkmetric.WithReader(reader))
		t.metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}
	t.meters = sdkmetric.NewMeterProvider(meterOpts...)

	otel.SetTracerProvider(t.traces)
	otel.SetMeterProvider(t.meters)
	logger.Info("telemetry initialized",
		slog.String("traces", exporterName),
		slog.Bool("metrics", t.metrics != nil))
	return t, nil
}

// Shutdown flushes pending spans and stops metric collection.
func (t *telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.meters.Shutdown(ctx), t.traces.Shutdown(ctx))
}

func newResource(ctx context.Context, cfg config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithHost(),
		resource.WithProcessPID(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.RuntimeName),
			semconv.ServiceInstanceID(uuid.NewString()),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
}

func newSpanExporter(ctx context.Context, cfg config.TelemetryConfig, debugOut io.Writer) (sdktrace.SpanExporter, string, error) {
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		return exp, "otlp", err
	}
	if strings.EqualFold(cfg.LogLevel, "debug") {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(debugOut))
		return exp, "stdout", err
	}
	return nil, "none", nil
}

// spanHistogramView buckets every soundcode.*.span instrument in
// milliseconds of audio.
func spanHistogramView() sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{Name: "soundcode.*.span"},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: spanBucketsMS}},
	)
}
