// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics with a Prometheus exporter bridge, and HTTP
// middleware that records request latency.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution. All recording helpers are safe to call on a nil
// *Metrics, so instrumented code never has to guard observability wiring.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/visawire/visawire"

// Metrics bundles every OpenTelemetry instrument the server records into.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TurnDuration tracks end-to-end interview turn latency (transcript in,
	// interviewer response out).
	TurnDuration metric.Float64Histogram

	// ASRDuration tracks utterance finalization latency.
	ASRDuration metric.Float64Histogram

	// LLMDuration tracks LLM inference latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts completed interview turns. Use with attributes:
	//   attribute.String("state", ...), attribute.String("input", "voice"|"text")
	Turns metric.Int64Counter

	// Fallbacks counts backend fallback activations. Use with attributes:
	//   attribute.String("kind", "llm"|"tts"), attribute.String("backend", ...)
	Fallbacks metric.Int64Counter

	// Contradictions counts contradictions detected across answers.
	Contradictions metric.Int64Counter

	// LanguageSwitches counts explanation-mode switches. Use with attribute:
	//   attribute.String("direction", "to_hindi"|"to_english")
	LanguageSwitches metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks request handling time, attributed by
	// method and path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds, sized for the 10ms to
// 10s range voice-pipeline stages live in.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics builds every instrument on a meter from mp. An error from any
// single instrument aborts construction.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TurnDuration, err = m.Float64Histogram("visawire.turn.duration",
		metric.WithDescription("End-to-end latency of one interview turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ASRDuration, err = m.Float64Histogram("visawire.asr.duration",
		metric.WithDescription("Latency of utterance finalization."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("visawire.llm.duration",
		metric.WithDescription("Latency of LLM inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("visawire.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Turns, err = m.Int64Counter("visawire.turns",
		metric.WithDescription("Total completed interview turns by state and input mode."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("visawire.fallbacks",
		metric.WithDescription("Total backend fallback activations by kind and backend."),
	); err != nil {
		return nil, err
	}
	if met.Contradictions, err = m.Int64Counter("visawire.contradictions",
		metric.WithDescription("Total contradictions detected across answers."),
	); err != nil {
		return nil, err
	}
	if met.LanguageSwitches, err = m.Int64Counter("visawire.language_switches",
		metric.WithDescription("Total explanation-mode language switches by direction."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("visawire.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("visawire.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics lazily builds a package-level [Metrics] on the global OTel
// meter provider and returns the same pointer on every call. It panics when
// instrument creation fails, which the global provider never does.
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

// RecordTurn records one completed turn: its latency and the turn counter.
// Safe to call on a nil receiver.
func (m *Metrics) RecordTurn(ctx context.Context, state, input string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("state", state),
		attribute.String("input", input),
	)
	m.TurnDuration.Record(ctx, d.Seconds(), attrs)
	m.Turns.Add(ctx, 1, attrs)
}

// RecordFallback records a backend fallback activation. Safe to call on a nil
// receiver.
func (m *Metrics) RecordFallback(ctx context.Context, kind, backend string) {
	if m == nil {
		return
	}
	m.Fallbacks.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("backend", backend),
		),
	)
}

// RecordContradiction records detected contradictions. Safe to call on a nil
// receiver.
func (m *Metrics) RecordContradiction(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Contradictions.Add(ctx, int64(n))
}

// RecordLanguageSwitch records an explanation-mode switch. Safe to call on a
// nil receiver.
func (m *Metrics) RecordLanguageSwitch(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	m.LanguageSwitches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("direction", direction)),
	)
}

// SessionStarted increments the active-session gauge. Safe to call on a nil
// receiver.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active-session gauge. Safe to call on a nil
// receiver.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}

// RecordASR records utterance finalization latency. Safe to call on a nil
// receiver.
func (m *Metrics) RecordASR(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.ASRDuration.Record(ctx, d.Seconds())
}

// RecordLLM records LLM inference latency. Safe to call on a nil receiver.
func (m *Metrics) RecordLLM(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMDuration.Record(ctx, d.Seconds())
}

// RecordTTS records speech synthesis latency. Safe to call on a nil receiver.
func (m *Metrics) RecordTTS(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.TTSDuration.Record(ctx, d.Seconds())
}
