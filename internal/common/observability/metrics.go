// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"citizenship-adjudicator/internal/common/logger"
)

// Observability records case-level measurements through an OpenTelemetry
// meter exported on the Prometheus registry. A zero value is usable and
// records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	caseCounter   otelmetric.Int64Counter
	caseDuration  otelmetric.Float64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	caseCounter, _ := meter.Int64Counter(
		"cases.processed",
		otelmetric.WithDescription("Number of cases adjudicated"),
	)

	caseDuration, _ := meter.Float64Histogram(
		"cases.duration",
		otelmetric.WithDescription("Case processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		caseCounter:   caseCounter,
		caseDuration:  caseDuration,
	}
}

func (o *Observability) RecordCaseProcessed(ctx context.Context, caseType, decision string) {
	if o == nil || o.caseCounter == nil {
		return
	}
	o.caseCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("case_type", caseType),
		attribute.String("decision", decision),
	))
}

func (o *Observability) RecordCaseDuration(ctx context.Context, duration time.Duration, caseType string) {
	if o == nil || o.caseDuration == nil {
		return
	}
	o.caseDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("case_type", caseType),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
