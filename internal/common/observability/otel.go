// Package observability sets up OpenTelemetry metrics (exported through the
// Prometheus registry) and tracing (exported over OTLP/HTTP when configured).
package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ideaflow/internal/common/config"
	"ideaflow/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
}

// Options tweak provider construction; the zero value uses the default Prometheus registerer.
type Options struct {
	Registerer promclient.Registerer
}

func New(ctx context.Context, cfg config.ObservabilityConfig, app config.AppConfig, log logger.Logger, opts Options) (*Observability, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", app.Version),
		attribute.String("deployment.environment", app.Environment),
	)

	var promOpts []prometheus.Option
	if opts.Registerer != nil {
		promOpts = append(promOpts, prometheus.WithRegisterer(opts.Registerer))
	}
	exporter, err := prometheus.New(promOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(mp)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	if cfg.OTLPEndpoint != "" {
		spanExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			log.Warn("otlp exporter init failed, spans will not be exported", map[string]interface{}{"error": err.Error()})
		} else {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(spanExporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	meter := mp.Meter(cfg.ServiceName)

	jobCounter, err := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	log.Info("observability initialized", map[string]interface{}{
		"serviceName":  cfg.ServiceName,
		"otlpEndpoint": cfg.OTLPEndpoint,
	})

	return &Observability{
		meterProvider:  mp,
		tracerProvider: tp,
		meter:          meter,
		jobCounter:     jobCounter,
		jobDuration:    jobDuration,
	}, nil
}

// Tracer returns a tracer from the configured provider.
func (o *Observability) Tracer(name string) trace.Tracer {
	return o.tracerProvider.Tracer(name)
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

// Shutdown flushes pending spans and stops both providers.
func (o *Observability) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return errors.Join(o.tracerProvider.Shutdown(ctx), o.meterProvider.Shutdown(ctx))
}
