// Package tone provides a deterministic, fully offline Synthesizer used as
// the last link of TTS fallback chains. It cannot speak, but it always
// produces audible output: one short enveloped sine pulse per word, so the
// client hears that the interviewer responded even when every real speech
// backend is down. The on-screen transcript carries the actual text.
package tone

import (
	"context"
	"math"
	"strings"

	"github.com/visawire/visawire/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

const (
	pulseFreqHz   = 440.0
	pulseDuration = 120 * 48 // samples per pulse at 24 kHz (120 ms)
	gapDuration   = 60 * 48  // silence between pulses (60 ms)
	amplitude     = 0.25
	maxPulses     = 40
)

// Synthesizer implements tts.Synthesizer with generated sine pulses.
// The zero value is ready to use.
type Synthesizer struct{}

// New returns a tone Synthesizer.
func New() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize emits one enveloped sine pulse per word of text, capped at
// maxPulses. Output is PCM16 mono at tts.OutputSampleRate. The language
// argument is ignored.
func (s *Synthesizer) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	if words > maxPulses {
		words = maxPulses
	}

	total := words*(pulseDuration+gapDuration) + gapDuration
	out := make([]byte, total*2)

	pos := gapDuration
	for w := 0; w < words; w++ {
		for i := 0; i < pulseDuration; i++ {
			// Hann window keeps pulse edges click-free.
			env := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(pulseDuration-1)))
			v := amplitude * env * math.Sin(2*math.Pi*pulseFreqHz*float64(i)/float64(tts.OutputSampleRate))
			sample := int16(v * math.MaxInt16)
			idx := (pos + i) * 2
			out[idx] = byte(sample)
			out[idx+1] = byte(sample >> 8)
		}
		pos += pulseDuration + gapDuration
	}
	return out, nil
}

// Healthy always succeeds; the tone synthesizer has no external dependency.
func (s *Synthesizer) Healthy(_ context.Context) error {
	return nil
}
