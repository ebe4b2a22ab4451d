// Package mock provides a scripted Synthesizer for testing.
package mock

import (
	"context"
	"sync"

	"github.com/visawire/visawire/pkg/provider/tts"
)

// SynthesizeCall records the arguments of one Synthesize invocation.
type SynthesizeCall struct {
	Text     string
	Language string
}

// Synthesizer is a test double implementing tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// PCM is returned by every Synthesize call. When nil a small fixed
	// payload is returned instead.
	PCM []byte
	// SynthesizeErr and HealthyErr force the corresponding method to fail.
	SynthesizeErr error
	HealthyErr    error

	// SynthesizeCalls records each invocation in order.
	SynthesizeCalls []SynthesizeCall
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

func (s *Synthesizer) Synthesize(_ context.Context, text, language string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Text: text, Language: language})
	if s.SynthesizeErr != nil {
		return nil, s.SynthesizeErr
	}
	if s.PCM != nil {
		return s.PCM, nil
	}
	return make([]byte, 960), nil
}

func (s *Synthesizer) Healthy(_ context.Context) error {
	return s.HealthyErr
}

// CallCount reports how many times Synthesize has been invoked.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SynthesizeCalls)
}

// Reset clears recorded calls.
func (s *Synthesizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeCalls = nil
}
