// Package asr defines the Recognizer interface for streaming speech
// recognition.
//
// A recognizer accumulates raw PCM16 mono audio at 16 kHz, decodes it in
// roughly two-second windows into transcript segments, and joins all
// segments into the full utterance on finalize. Language is never locked:
// English, Hindi and code-mixed Hinglish input are all accepted, and each
// segment carries a detected language tag.
package asr

import "context"

// Capture audio format expected by all recognizers.
const (
	SampleRate     = 16000
	BytesPerSample = 2

	// WindowSeconds is the audio span accumulated before a decode pass.
	WindowSeconds = 2
)

// Segment is one decoded span of speech.
type Segment struct {
	Text     string  `json:"text"`
	Partial  bool    `json:"partial"`
	Language string  `json:"language"` // "en", "hi" or "mixed"
	Start    float64 `json:"start_time"`
	End      float64 `json:"end_time"`
}

// Recognizer is the abstraction over a streaming speech-to-text backend.
// Implementations are used by a single connection at a time; they need not
// be safe for concurrent use.
type Recognizer interface {
	// Initialize loads the model or verifies the backend is reachable. It
	// may be slow and is typically run as a background warm-up task.
	Initialize(ctx context.Context) error

	// Ready reports whether Initialize has completed successfully.
	Ready() bool

	// Feed appends a chunk of PCM16LE mono 16 kHz audio. When enough audio
	// has accumulated for a decode window it returns the decoded segment,
	// otherwise nil.
	Feed(ctx context.Context, pcm []byte) (*Segment, error)

	// Finalize decodes any remaining buffered audio and returns the full
	// transcript of the utterance: all segments joined by single spaces.
	Finalize(ctx context.Context) (string, error)

	// Reset discards buffered audio and accumulated segments, preparing the
	// recognizer for a new utterance.
	Reset()
}
