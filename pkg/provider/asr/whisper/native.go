// Package whisper provides Recognizer implementations backed by Whisper
// models: an in-process variant using the whisper.cpp CGO bindings and an
// HTTP variant targeting a transcription server.
//
// For the native variant the whisper.cpp static library (libwhisper.a) and
// headers (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/visawire/visawire/pkg/audio"
	"github.com/visawire/visawire/pkg/provider/asr"
)

// Compile-time assertion that Native satisfies asr.Recognizer.
var _ asr.Recognizer = (*Native)(nil)

// Native implements asr.Recognizer using the whisper.cpp Go bindings. The
// model loads during Initialize, which may take several seconds; run it as a
// background warm-up task.
type Native struct {
	modelPath string
	language  string

	mu    sync.Mutex
	model whisperlib.Model
	ready bool
	acc   asr.Accumulator
}

// NativeOption is a functional option for configuring a Native recognizer.
type NativeOption func(*Native)

// WithLanguage sets the decode language hint passed to whisper.cpp.
// Defaults to "en"; detection of Hindi and Hinglish happens on the decoded
// text regardless.
func WithLanguage(lang string) NativeOption {
	return func(n *Native) { n.language = lang }
}

// NewNative creates a recognizer that will load the whisper.cpp model from
// modelPath on Initialize.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	n := &Native{modelPath: modelPath, language: "en"}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Initialize loads the model from disk.
func (n *Native) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("whisper: initialize: %w", err)
	}
	model, err := whisperlib.New(n.modelPath)
	if err != nil {
		return fmt.Errorf("whisper: load model %q: %w", n.modelPath, err)
	}

	n.mu.Lock()
	n.model = model
	n.ready = true
	n.mu.Unlock()
	return nil
}

// Ready implements asr.Recognizer.
func (n *Native) Ready() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ready
}

// Close releases the whisper model.
func (n *Native) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.model != nil {
		err := n.model.Close()
		n.model = nil
		n.ready = false
		return err
	}
	return nil
}

// Feed implements asr.Recognizer.
func (n *Native) Feed(ctx context.Context, pcm []byte) (*asr.Segment, error) {
	if !n.Ready() {
		return nil, errors.New("whisper: recognizer not initialized")
	}
	window := n.acc.Add(pcm)
	if window == nil {
		return nil, nil
	}
	return n.decode(ctx, window, true)
}

// Finalize implements asr.Recognizer.
func (n *Native) Finalize(ctx context.Context) (string, error) {
	if !n.Ready() {
		return "", errors.New("whisper: recognizer not initialized")
	}
	if rest := n.acc.Drain(); len(rest) > 0 {
		if _, err := n.decode(ctx, rest, false); err != nil {
			return "", err
		}
	}
	return n.acc.Transcript(), nil
}

// Reset implements asr.Recognizer.
func (n *Native) Reset() {
	n.acc.Reset()
}

// decode runs whisper.cpp inference over one audio window and records the
// resulting segment.
func (n *Native) decode(ctx context.Context, pcm []byte, partial bool) (*asr.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: decode: %w", err)
	}

	samples := audio.PCM16ToFloat32(pcm)

	// Each whisper context is single-use; the model itself is shareable.
	wctx, err := n.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(n.language); err != nil {
		slog.Warn("whisper: failed to set language", "language", n.language, "error", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return nil, nil
	}
	seg := n.acc.Record(asr.Segment{
		Text:     text,
		Partial:  partial,
		Language: asr.DetectLanguage(text),
	}, len(pcm))
	return &seg, nil
}
