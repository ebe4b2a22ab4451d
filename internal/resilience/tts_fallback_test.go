package resilience

import (
	"context"
	"errors"
	"testing"

	ttsmock "github.com/visawire/visawire/pkg/provider/tts/mock"
	"github.com/visawire/visawire/pkg/provider/tts/tone"
)

func TestTTSFallback_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Synthesizer{PCM: []byte{1, 2, 3, 4}}
	secondary := &ttsmock.Synthesizer{PCM: []byte{5, 6}}

	f := NewTTSFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	pcm, err := f.Synthesize(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if len(pcm) != 4 {
		t.Fatalf("pcm length = %d, want 4", len(pcm))
	}
	if secondary.CallCount() != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.CallCount())
	}
}

func TestTTSFallback_FailsOverToSecondary(t *testing.T) {
	primary := &ttsmock.Synthesizer{SynthesizeErr: errors.New("server down")}
	secondary := &ttsmock.Synthesizer{PCM: []byte{5, 6}}

	var activations int
	f := NewTTSFallback(primary, "primary", FallbackConfig{
		OnFallback: func(string) { activations++ },
	})
	f.AddFallback("secondary", secondary)

	pcm, err := f.Synthesize(context.Background(), "hello", "hi")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if len(pcm) != 2 {
		t.Fatalf("pcm length = %d, want 2", len(pcm))
	}
	if activations != 1 {
		t.Fatalf("fallback activations = %d, want 1", activations)
	}
	if got := secondary.SynthesizeCalls[0]; got.Text != "hello" || got.Language != "hi" {
		t.Fatalf("secondary call = %+v", got)
	}
}

func TestTTSFallback_ToneTerminalNeverFails(t *testing.T) {
	primary := &ttsmock.Synthesizer{SynthesizeErr: errors.New("server down")}

	f := NewTTSFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("tone", tone.New())

	pcm, err := f.Synthesize(context.Background(), "please wait", "en")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if len(pcm) == 0 {
		t.Fatal("tone terminal should always produce audio")
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	primary := &ttsmock.Synthesizer{SynthesizeErr: errors.New("down")}
	secondary := &ttsmock.Synthesizer{SynthesizeErr: errors.New("also down")}

	f := NewTTSFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	if _, err := f.Synthesize(context.Background(), "hello", "en"); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
