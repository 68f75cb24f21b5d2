// Package observe provides observability primitives for Resonance:
// OpenTelemetry metrics, tracing helpers, and HTTP middleware that ties them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported to
// Prometheus via the bridge set up by [InitProvider], so the standard
// /metrics endpoint keeps working. A package-level default [Metrics]
// instance ([DefaultMetrics]) exists for convenience; tests should use
// [NewMetrics] with their own [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all Resonance metrics.
const meterName = "github.com/MrWong99/resonance"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// DrawDuration tracks the critical path of one card draw, from selector
	// resolution to assembly. Attributes: deck, outcome.
	DrawDuration metric.Float64Histogram

	// GenerationDuration tracks single model calls. Attributes:
	// kind (card-front, card-back, speech, health-probe), model.
	GenerationDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, path.
	HTTPRequestDuration metric.Float64Histogram

	// ProviderRequests counts model API calls. Attributes: provider, kind,
	// status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts model API failures. Attributes: provider, kind.
	ProviderErrors metric.Int64Counter

	// OfflineDraws counts cards served from the local fallback list.
	OfflineDraws metric.Int64Counter

	// DrawsRejected counts draw requests refused because one was already in
	// flight.
	DrawsRejected metric.Int64Counter

	// ActiveSessions tracks the number of cached chat sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries in seconds, sized for
// model round trips up to the 20s generation timeout.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DrawDuration, err = m.Float64Histogram("resonance.draw.duration",
		metric.WithDescription("Critical-path latency of one card draw."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerationDuration, err = m.Float64Histogram("resonance.generation.duration",
		metric.WithDescription("Latency of single model calls by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("resonance.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("resonance.provider.requests",
		metric.WithDescription("Total model API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("resonance.provider.errors",
		metric.WithDescription("Total model API failures by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.OfflineDraws, err = m.Int64Counter("resonance.offline.draws",
		metric.WithDescription("Cards served from the local offline list."),
	); err != nil {
		return nil, err
	}
	if met.DrawsRejected, err = m.Int64Counter("resonance.draws.rejected",
		metric.WithDescription("Draw requests refused while another draw was in flight."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("resonance.active_sessions",
		metric.WithDescription("Number of cached chat sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from the global meter provider. Panics if instrument creation fails,
// which cannot happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordProviderRequest increments the request counter, and the error
// counter when status is "error".
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	if status == "error" {
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		))
	}
}

// RecordDraw records one finished draw attempt.
func (m *Metrics) RecordDraw(ctx context.Context, deckID, outcome string, seconds float64) {
	m.DrawDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("deck", deckID),
		attribute.String("outcome", outcome),
	))
}

// RecordGeneration records one model call.
func (m *Metrics) RecordGeneration(ctx context.Context, kind, model string, seconds float64) {
	m.GenerationDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("model", model),
	))
}
