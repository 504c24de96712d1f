package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	pollCounter   otelmetric.Int64Counter
	pollDuration  otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	pollCounter, _ := meter.Int64Counter(
		"verification.polls",
		otelmetric.WithDescription("Number of verification polls issued"),
	)

	pollDuration, _ := meter.Float64Histogram(
		"verification.poll.duration",
		otelmetric.WithDescription("Verification poll round-trip duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		pollCounter:   pollCounter,
		pollDuration:  pollDuration,
	}
}

func (o *Observability) RecordPoll(ctx context.Context, kind, result string) {
	if o.pollCounter != nil {
		o.pollCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("result", result),
		))
	}
}

func (o *Observability) RecordPollDuration(ctx context.Context, duration time.Duration, kind string) {
	if o.pollDuration != nil {
		o.pollDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
