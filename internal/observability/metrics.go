package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"authflow/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type AppMetrics struct {
	loginCounter          metric.Int64Counter
	tokenIssuedCounter    metric.Int64Counter
	tokenConsumedCounter  metric.Int64Counter
	settingsUpdateCounter metric.Int64Counter
	requestRejectCounter  metric.Int64Counter
	authReqDuration       metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
	)
	otel.SetMeterProvider(mp)

	if err := registerAppMetrics(mp.Meter("authflow")); err != nil {
		return nil, err
	}
	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func registerAppMetrics(meter metric.Meter) error {
	m := &AppMetrics{}
	var err error
	if m.loginCounter, err = meter.Int64Counter("auth_login_total",
		metric.WithDescription("Login attempts by method and outcome")); err != nil {
		return err
	}
	if m.tokenIssuedCounter, err = meter.Int64Counter("auth_token_issued_total",
		metric.WithDescription("Login tokens issued by kind and outcome")); err != nil {
		return err
	}
	if m.tokenConsumedCounter, err = meter.Int64Counter("auth_token_consumed_total",
		metric.WithDescription("Login tokens consumed by kind and outcome")); err != nil {
		return err
	}
	if m.settingsUpdateCounter, err = meter.Int64Counter("settings_update_total",
		metric.WithDescription("Settings updates by outcome")); err != nil {
		return err
	}
	if m.requestRejectCounter, err = meter.Int64Counter("http_request_rejected_total",
		metric.WithDescription("Requests rejected by edge middleware")); err != nil {
		return err
	}
	if m.authReqDuration, err = meter.Float64Histogram("auth_request_duration_seconds",
		metric.WithDescription("Duration of auth operations"),
		metric.WithUnit("s")); err != nil {
		return err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	return nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordLogin(ctx context.Context, method, status string) {
	m := current()
	if m == nil {
		return
	}
	m.loginCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
}

func RecordTokenIssued(ctx context.Context, kind, status string) {
	m := current()
	if m == nil {
		return
	}
	m.tokenIssuedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

func RecordTokenConsumed(ctx context.Context, kind, status string) {
	m := current()
	if m == nil {
		return
	}
	m.tokenConsumedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

func RecordSettingsUpdate(ctx context.Context, status string) {
	m := current()
	if m == nil {
		return
	}
	m.settingsUpdateCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordRequestRejected(ctx context.Context, component, reason string) {
	m := current()
	if m == nil {
		return
	}
	m.requestRejectCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("reason", reason),
	))
}

func RecordAuthRequestDuration(ctx context.Context, operation, status string, d time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.authReqDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}
