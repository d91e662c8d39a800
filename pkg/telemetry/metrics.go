// Package telemetry provides OpenTelemetry bootstrap and gate evaluation metrics.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/routegate/routegate/pkg/domain"
)

var (
	metricsOnce           sync.Once
	metricsInitErr        error
	gateEvaluationCounter metric.Int64Counter
	gateDenialCounter     metric.Int64Counter
	gateLatencyHistogram  metric.Float64Histogram
)

// GateMetrics captures the fields needed to record gate evaluation metrics.
type GateMetrics struct {
	Gate       string
	Outcome    domain.OutcomeKind
	Navigation bool
	Duration   time.Duration
}

// RecordGateMetrics emits counters and a histogram describing one gate evaluation.
func RecordGateMetrics(ctx context.Context, metrics GateMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("gate.name", metrics.Gate),
		attribute.String("gate.outcome", string(metrics.Outcome)),
		attribute.Bool("request.navigation", metrics.Navigation),
	}

	gateEvaluationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if metrics.Duration > 0 {
		gateLatencyHistogram.Record(ctx, float64(metrics.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	if metrics.Outcome != domain.OutcomePass {
		gateDenialCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("routegate.pipeline")

		var err error
		gateEvaluationCounter, err = meter.Int64Counter("gate.evaluations",
			metric.WithDescription("Total gate evaluations by gate and outcome"))
		if err != nil {
			metricsInitErr = err
			return
		}

		gateDenialCounter, err = meter.Int64Counter("gate.denials",
			metric.WithDescription("Gate evaluations that stopped the pipeline"))
		if err != nil {
			metricsInitErr = err
			return
		}

		gateLatencyHistogram, err = meter.Float64Histogram("gate.duration",
			metric.WithDescription("Gate evaluation latency in milliseconds"),
			metric.WithUnit("ms"))
		if err != nil {
			metricsInitErr = err
			return
		}
	})
	return metricsInitErr
}
