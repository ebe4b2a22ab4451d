package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/visawire/visawire/pkg/provider/asr"
	"github.com/visawire/visawire/pkg/provider/llm"
	"github.com/visawire/visawire/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// factories holds the name-to-constructor table for one provider kind.
type factories[T any] struct {
	kind string
	m    map[string]func(ProviderEntry) (T, error)
}

func (f *factories[T]) put(name string, factory func(ProviderEntry) (T, error)) {
	f.m[name] = factory
}

func (f *factories[T]) create(entry ProviderEntry) (T, error) {
	factory, ok := f.m[entry.Name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, f.kind, entry.Name)
	}
	return factory(entry)
}

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	llm factories[llm.Provider]
	asr factories[asr.Recognizer]
	tts factories[tts.Synthesizer]
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm: factories[llm.Provider]{kind: "llm", m: map[string]func(ProviderEntry) (llm.Provider, error){}},
		asr: factories[asr.Recognizer]{kind: "asr", m: map[string]func(ProviderEntry) (asr.Recognizer, error){}},
		tts: factories[tts.Synthesizer]{kind: "tts", m: map[string]func(ProviderEntry) (tts.Synthesizer, error){}},
	}
}

// RegisterLLM registers an LLM provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.put(name, factory)
}

// RegisterASR registers a speech recognizer factory under name.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr.put(name, factory)
}

// RegisterTTS registers a synthesizer factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Synthesizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts.put(name, factory)
}

// CreateLLM instantiates an LLM provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] when the name is unknown.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.create(entry)
}

// CreateASR instantiates a speech recognizer using the factory registered
// under entry.Name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Recognizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.asr.create(entry)
}

// CreateTTS instantiates a synthesizer using the factory registered under
// entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Synthesizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tts.create(entry)
}
