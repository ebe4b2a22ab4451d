// Package mock provides a test double for the llm package interfaces.
//
// Use Provider to script completion responses and inspect the requests the
// caller sent:
//
//	p := &mock.Provider{Responses: []string{"Tell me about your course."}}
//	got, _ := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/visawire/visawire/pkg/provider/llm"
)

// CompleteCall records a single invocation of Provider.Complete.
type CompleteCall struct {
	// Req is the request passed to Complete.
	Req llm.Request
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// Responses is returned by successive Complete calls in order. When the
	// list is exhausted the last entry is repeated; when empty, Complete
	// returns "".
	Responses []string

	// CompleteErr, if non-nil, is returned by every Complete call.
	CompleteErr error

	// HealthyErr, if non-nil, is returned by every Healthy call.
	HealthyErr error

	// CompleteCalls records every call to Complete in order.
	CompleteCalls []CompleteCall
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns the next scripted response.
func (p *Provider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Req: req})
	if p.CompleteErr != nil {
		return "", p.CompleteErr
	}
	if len(p.Responses) == 0 {
		return "", nil
	}
	idx := len(p.CompleteCalls) - 1
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	}
	return p.Responses[idx], nil
}

// Healthy returns HealthyErr.
func (p *Provider) Healthy(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HealthyErr
}

// CallCount returns the number of Complete calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}
