package resilience

import (
	"context"

	"github.com/visawire/visawire/pkg/provider/tts"
)

// TTSFallback is a [tts.Synthesizer] that fails over across a chain of TTS
// backends, each guarded by its own circuit breaker. Chains typically end in
// the tone synthesizer, which never fails, so spoken turns always produce
// audio.
type TTSFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

var _ tts.Synthesizer = (*TTSFallback)(nil)

// NewTTSFallback builds a chain with primary as the preferred backend.
func NewTTSFallback(primary tts.Synthesizer, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback appends another synthesizer, tried after all earlier entries.
func (f *TTSFallback) AddFallback(name string, s tts.Synthesizer) {
	f.group.AddFallback(name, s)
}

// Synthesize renders text with the first healthy synthesizer.
func (f *TTSFallback) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	return ExecuteWithResult(f.group, func(s tts.Synthesizer) ([]byte, error) {
		return s.Synthesize(ctx, text, language)
	})
}

// Healthy succeeds if any entry in the chain is healthy.
func (f *TTSFallback) Healthy(ctx context.Context) error {
	return f.group.Execute(func(s tts.Synthesizer) error {
		return s.Healthy(ctx)
	})
}
