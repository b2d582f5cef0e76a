// Package telemetry exports pipeline metrics over OTLP. Disabled telemetry
// costs nothing: every instrument goes through a no-op meter.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Provider wires the meter provider and exposes pipeline instruments.
type Provider struct {
	Enabled bool
	meter   metric.Meter

	framesCounter         metric.Int64Counter
	detectionsCounter     metric.Int64Counter
	alertDecisionsCounter metric.Int64Counter
	inferenceDuration     metric.Float64Histogram

	shutdownMeterProvider func(context.Context) error
}

// NewProvider configures the OTLP exporter + meter provider. When disabled,
// returns no-op instruments.
func NewProvider(ctx context.Context, cfg Config, log *zap.Logger) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		no := &Provider{
			Enabled: false,
			meter:   noop.NewMeterProvider().Meter(""),
		}
		no.initInstruments()
		return no, nil
	}

	log.Info("telemetry enabled (OpenTelemetry OTLP); if no collector is listening, periodic upload warnings are expected",
		zap.String("protocol", strings.ToLower(cfg.Protocol)),
		zap.String("endpoint", cfg.Endpoint))

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	var reader sdkmetric.Reader
	switch strings.ToLower(cfg.Protocol) {
	case "", "grpc":
		exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exp)
	case "http":
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure())
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exp)
	default:
		return nil, fmt.Errorf("unsupported telemetry protocol %q", cfg.Protocol)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:               true,
		meter:                 mp.Meter("vigilo"),
		shutdownMeterProvider: mp.Shutdown,
	}
	p.initInstruments()
	return p, nil
}

func (p *Provider) initInstruments() {
	if p == nil {
		return
	}
	// Ignore errors to keep telemetry best-effort.
	p.framesCounter, _ = p.meter.Int64Counter("vigilo_frames_total")
	p.detectionsCounter, _ = p.meter.Int64Counter("vigilo_detections_total")
	p.alertDecisionsCounter, _ = p.meter.Int64Counter("vigilo_alert_decisions_total")
	p.inferenceDuration, _ = p.meter.Float64Histogram("vigilo_inference_duration_ms")
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return noop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// Shutdown flushes the meter provider.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordFrame counts one processed frame and its inference latency.
func (p *Provider) RecordFrame(feed string, detections int, inferenceMs float64) {
	if p == nil {
		return
	}
	labels := []attribute.KeyValue{attribute.String("vigilo.feed", feed)}
	p.framesCounter.Add(context.Background(), 1, metric.WithAttributes(labels...))
	if detections > 0 {
		p.detectionsCounter.Add(context.Background(), int64(detections), metric.WithAttributes(labels...))
	}
	if inferenceMs > 0 {
		p.inferenceDuration.Record(context.Background(), inferenceMs, metric.WithAttributes(labels...))
	}
}

// RecordDecision counts one gate decision by reason.
func (p *Provider) RecordDecision(feed, reason string) {
	if p == nil {
		return
	}
	p.alertDecisionsCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("vigilo.feed", feed),
		attribute.String("vigilo.reason", reason),
	))
}
