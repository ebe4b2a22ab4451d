// Package tts defines the Synthesizer interface for text-to-speech backends
// that voice the interviewer's responses.
//
// All implementations emit 16-bit little-endian mono PCM at OutputSampleRate.
// Backends whose engines run at a different native rate (e.g. 22050 Hz
// fallback voices) resample before returning so the playback path never has
// to care about engine differences.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// OutputSampleRate is the sample rate every Synthesizer emits at.
const OutputSampleRate = 24000

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Synthesize renders text spoken in the given language ("en" or "hi")
	// and returns raw PCM16 mono samples at OutputSampleRate.
	//
	// Synthesis is blocking; callers that need cancellation or keepalive
	// behaviour run it off their main loop and watch ctx.
	Synthesize(ctx context.Context, text, language string) ([]byte, error)

	// Healthy reports whether the backend is reachable and able to
	// synthesize. Used by fallback chains to skip dead backends early.
	Healthy(ctx context.Context) error
}
