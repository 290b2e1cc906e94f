package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"megamillions/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Provider owns the OpenTelemetry meter provider for the process
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
}

// NewProvider sets up metric export according to the configuration.
// When OpenTelemetry is disabled the provider hands out no-op instruments.
func NewProvider(ctx context.Context, cfg *config.Config) (*Provider, error) {
	if !cfg.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		return &Provider{meter: noop.NewMeterProvider().Meter(MetricPrefix)}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.OTelServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch cfg.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(cfg.OTelEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", cfg.OTelEndpoint).Info("Using OTLP metric exporter")

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.OTelExporterType)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(mp)

	return &Provider{meterProvider: mp, meter: mp.Meter(MetricPrefix)}, nil
}

// Meter returns the meter instruments are created from
func (p *Provider) Meter() metric.Meter {
	return p.meter
}

// Shutdown flushes pending metrics and stops the exporter
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider != nil {
		return p.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Metrics records the service's instruments
type Metrics struct {
	fetches         metric.Int64Counter
	fetchDuration   metric.Float64Histogram
	ingestRuns      metric.Int64Counter
	rowsReplaced    metric.Int64Counter
	rowsRejected    metric.Int64Counter
	replaceDuration metric.Float64Histogram
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the given meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.fetches, err = meter.Int64Counter(FetchesTotal,
		metric.WithDescription("Total number of upstream fetches"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fetch counter: %w", err)
	}

	if m.fetchDuration, err = meter.Float64Histogram(FetchDuration,
		metric.WithDescription("Duration of upstream fetches in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fetch duration histogram: %w", err)
	}

	if m.ingestRuns, err = meter.Int64Counter(IngestRunsTotal,
		metric.WithDescription("Total number of ingestion runs by outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create ingest run counter: %w", err)
	}

	if m.rowsReplaced, err = meter.Int64Counter(SnapshotRowsTotal,
		metric.WithDescription("Total number of rows written by snapshot replacements"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rows replaced counter: %w", err)
	}

	if m.rowsRejected, err = meter.Int64Counter(RejectedRowsTotal,
		metric.WithDescription("Total number of scraped rows rejected by schema coercion"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rows rejected counter: %w", err)
	}

	if m.replaceDuration, err = meter.Float64Histogram(SnapshotReplaceTime,
		metric.WithDescription("Duration of snapshot replacements in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create replace duration histogram: %w", err)
	}

	if m.requests, err = meter.Int64Counter(HTTPRequestsTotal,
		metric.WithDescription("Total number of API requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	if m.requestDuration, err = meter.Float64Histogram(HTTPRequestDuration,
		metric.WithDescription("Duration of API requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	return m, nil
}

// RecordFetch records one upstream fetch attempt sequence
func (m *Metrics) RecordFetch(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(LabelOutcome, outcome))
	m.fetches.Add(ctx, 1, attrs)
	m.fetchDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordIngest records the outcome of an ingestion run
func (m *Metrics) RecordIngest(ctx context.Context, table, outcome string) {
	m.ingestRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelTable, table),
		attribute.String(LabelOutcome, outcome),
	))
}

// RecordRejected records scraped rows dropped by schema coercion, whether or not the run replaces the snapshot
func (m *Metrics) RecordRejected(ctx context.Context, table string, rejected int) {
	m.rowsRejected.Add(ctx, int64(rejected), metric.WithAttributes(attribute.String(LabelTable, table)))
}

// RecordReplace records a completed snapshot replacement
func (m *Metrics) RecordReplace(ctx context.Context, table string, rows int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(LabelTable, table))
	m.rowsReplaced.Add(ctx, int64(rows), attrs)
	m.replaceDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRequest records a served API request
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(LabelMethod, method),
		attribute.String(LabelRoute, route),
		attribute.String(LabelStatus, strconv.Itoa(status)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
}
