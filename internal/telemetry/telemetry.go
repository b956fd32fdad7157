package telemetry

import (
	"context"
	"time"

	"github.com/ggorockee/partfinder/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName    = "partfinder"
	serviceVersion = "1.0.0"
)

// Telemetry OpenTelemetry instruments for the lookup pipeline
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	SearchTotal     metric.Int64Counter
	SearchDuration  metric.Float64Histogram
	CacheHits       metric.Int64Counter
	CacheMisses     metric.Int64Counter
	CatalogDuration metric.Float64Histogram
	CatalogErrors   metric.Int64Counter
	ListingsFound   metric.Int64Counter
	OCRTotal        metric.Int64Counter
	OCRFailures     metric.Int64Counter
}

// New builds telemetry exporting to the configured OTLP endpoint.
// Without an endpoint the global no-op providers are used.
func New(ctx context.Context, cfg *config.TelemetryConfig) (*Telemetry, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return NewNoOp(), nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tracerProvider)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
	)
	otel.SetMeterProvider(meterProvider)

	t := &Telemetry{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		tracer:         tracerProvider.Tracer(serviceName),
		meter:          meterProvider.Meter(serviceName),
	}

	if err := t.registerMetrics(); err != nil {
		return nil, err
	}

	return t, nil
}

// NewNoOp telemetry backed by the global (no-op by default) providers
func NewNoOp() *Telemetry {
	t := &Telemetry{
		tracer: otel.Tracer(serviceName),
		meter:  otel.Meter(serviceName),
	}
	_ = t.registerMetrics()
	return t
}

func (t *Telemetry) registerMetrics() error {
	var err error

	if t.SearchTotal, err = t.meter.Int64Counter(
		"partfinder.search.total",
		metric.WithDescription("Total number of part searches"),
	); err != nil {
		return err
	}

	if t.SearchDuration, err = t.meter.Float64Histogram(
		"partfinder.search.duration",
		metric.WithDescription("Duration of part searches in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if t.CacheHits, err = t.meter.Int64Counter(
		"partfinder.cache.hits",
		metric.WithDescription("Total number of fresh catalog cache hits"),
	); err != nil {
		return err
	}

	if t.CacheMisses, err = t.meter.Int64Counter(
		"partfinder.cache.misses",
		metric.WithDescription("Total number of catalog cache misses (absent or stale)"),
	); err != nil {
		return err
	}

	if t.CatalogDuration, err = t.meter.Float64Histogram(
		"partfinder.catalog.duration",
		metric.WithDescription("Duration of catalog source requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if t.CatalogErrors, err = t.meter.Int64Counter(
		"partfinder.catalog.errors",
		metric.WithDescription("Total number of catalog source failures"),
	); err != nil {
		return err
	}

	if t.ListingsFound, err = t.meter.Int64Counter(
		"partfinder.catalog.listings",
		metric.WithDescription("Total number of listings parsed from the catalog source"),
	); err != nil {
		return err
	}

	if t.OCRTotal, err = t.meter.Int64Counter(
		"partfinder.ocr.total",
		metric.WithDescription("Total number of identifier extractions"),
	); err != nil {
		return err
	}

	if t.OCRFailures, err = t.meter.Int64Counter(
		"partfinder.ocr.failures",
		metric.WithDescription("Total number of extractions that found no identifier"),
	); err != nil {
		return err
	}

	return nil
}

// StartSpan starts a span on the service tracer
func (t *Telemetry) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// RecordSearch records one finished search
func (t *Telemetry) RecordSearch(ctx context.Context, duration time.Duration, city string) {
	attrs := metric.WithAttributes(attribute.String("city", city))
	t.SearchTotal.Add(ctx, 1, attrs)
	t.SearchDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCacheLookup records a cache hit or miss
func (t *Telemetry) RecordCacheLookup(ctx context.Context, hit bool) {
	if hit {
		t.CacheHits.Add(ctx, 1)
		return
	}
	t.CacheMisses.Add(ctx, 1)
}

// RecordCatalogFetch records a catalog request; errClass is "none" on success
func (t *Telemetry) RecordCatalogFetch(ctx context.Context, duration time.Duration, listings int, errClass string) {
	attrs := metric.WithAttributes(attribute.String("error", errClass))
	t.CatalogDuration.Record(ctx, duration.Seconds(), attrs)
	t.ListingsFound.Add(ctx, int64(listings))
	if errClass != "none" {
		t.CatalogErrors.Add(ctx, 1, attrs)
	}
}

// RecordOCR records one extraction attempt
func (t *Telemetry) RecordOCR(ctx context.Context, found bool, errClass string) {
	t.OCRTotal.Add(ctx, 1)
	if !found {
		t.OCRFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("error", errClass)))
	}
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
