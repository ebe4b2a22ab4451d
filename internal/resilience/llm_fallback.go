package resilience

import (
	"context"

	"github.com/visawire/visawire/pkg/provider/llm"
)

// LLMFallback is an [llm.Provider] that fails over across a chain of LLM
// backends, each guarded by its own circuit breaker. When the primary errors
// or its breaker is open the next entry takes the call. Chains typically end
// in the canned provider so an interviewer line is always produced.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback builds a chain with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback appends another LLM backend, tried after all earlier entries.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete asks the first healthy backend for a completion.
func (f *LLMFallback) Complete(ctx context.Context, req llm.Request) (string, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (string, error) {
		return p.Complete(ctx, req)
	})
}

// Healthy succeeds if any entry in the chain is healthy.
func (f *LLMFallback) Healthy(ctx context.Context) error {
	return f.group.Execute(func(p llm.Provider) error {
		return p.Healthy(ctx)
	})
}
