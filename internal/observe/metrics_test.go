package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumValue extracts the int64 sum data point matching attr=val, or the first
// data point when attr is empty. Fails the test when the metric or the data
// point is missing.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name, attr, val string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not collected", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q data is %T, want Sum[int64]", name, met.Data)
	}
	for _, dp := range sum.DataPoints {
		if attr == "" {
			return dp.Value
		}
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == attr && kv.Value.AsString() == val {
				return dp.Value
			}
		}
	}
	t.Fatalf("metric %q has no data point with %s=%s", name, attr, val)
	return 0
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	if m, _ := newTestMetrics(t); m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := map[string]metric.Float64Histogram{
		"visawire.turn.duration": m.TurnDuration,
		"visawire.asr.duration":  m.ASRDuration,
		"visawire.llm.duration":  m.LLMDuration,
		"visawire.tts.duration":  m.TTSDuration,
	}
	for _, h := range histograms {
		h.Record(ctx, 0.123)
		h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)
	for name := range histograms {
		t.Run(name, func(t *testing.T) {
			met := findMetric(rm, name)
			if met == nil {
				t.Fatalf("metric %q not collected", name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q data is %T, want Histogram[float64]", name, met.Data)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestRecordTurn(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "finance", "voice", 800*time.Millisecond)
	m.RecordTurn(ctx, "finance", "voice", 1200*time.Millisecond)
	m.RecordTurn(ctx, "intent", "text", 400*time.Millisecond)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "visawire.turns", "state", "finance"); got != 2 {
		t.Errorf("turns{state=finance} = %d, want 2", got)
	}
	if got := sumValue(t, rm, "visawire.turns", "state", "intent"); got != 1 {
		t.Errorf("turns{state=intent} = %d, want 1", got)
	}
}

func TestFallbackCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFallback(ctx, "llm", "canned")
	m.RecordFallback(ctx, "tts", "tone")
	m.RecordFallback(ctx, "tts", "tone")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "visawire.fallbacks", "backend", "tone"); got != 2 {
		t.Errorf("fallbacks{backend=tone} = %d, want 2", got)
	}
	if got := sumValue(t, rm, "visawire.fallbacks", "backend", "canned"); got != 1 {
		t.Errorf("fallbacks{backend=canned} = %d, want 1", got)
	}
}

func TestContradictionCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordContradiction(ctx, 2)
	m.RecordContradiction(ctx, 0) // no-op
	m.RecordContradiction(ctx, 1)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "visawire.contradictions", "", ""); got != 3 {
		t.Errorf("contradictions = %d, want 3", got)
	}
}

func TestLanguageSwitchCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordLanguageSwitch(ctx, "to_hindi")
	m.RecordLanguageSwitch(ctx, "to_hindi")
	m.RecordLanguageSwitch(ctx, "to_english")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "visawire.language_switches", "direction", "to_hindi"); got != 2 {
		t.Errorf("language_switches{direction=to_hindi} = %d, want 2", got)
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionStarted(ctx)
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "visawire.active_sessions", "", ""); got != 1 {
		t.Errorf("active_sessions = %d, want 1", got)
	}
}

func TestNilMetricsHelpersAreNoOps(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// Must not panic.
	m.RecordTurn(ctx, "greeting", "voice", time.Second)
	m.RecordFallback(ctx, "llm", "canned")
	m.RecordContradiction(ctx, 1)
	m.RecordLanguageSwitch(ctx, "to_hindi")
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)
	m.RecordASR(ctx, time.Second)
	m.RecordLLM(ctx, time.Second)
	m.RecordTTS(ctx, time.Second)
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so only pointer
	// identity is checked here.
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different pointers")
	}
}
