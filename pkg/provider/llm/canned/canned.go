// Package canned provides an LLM provider that returns a fixed interviewer
// line without calling any backend. It is the terminal entry of LLM fallback
// chains: when every real model is down, the interview keeps moving with a
// neutral probing question instead of an error.
package canned

import (
	"context"

	"github.com/visawire/visawire/pkg/provider/llm"
)

// DefaultLine is the neutral probing question used when no line is configured.
const DefaultLine = "I see. Could you tell me more about that? What specific details can you share?"

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// Provider implements llm.Provider with a constant response.
type Provider struct {
	line string
}

// Option is a functional option for configuring a canned Provider.
type Option func(*Provider)

// WithLine overrides the response line.
func WithLine(line string) Option {
	return func(p *Provider) {
		p.line = line
	}
}

// New returns a canned Provider.
func New(opts ...Option) *Provider {
	p := &Provider{line: DefaultLine}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Complete returns the configured line regardless of the request.
func (p *Provider) Complete(_ context.Context, _ llm.Request) (string, error) {
	return p.line, nil
}

// Healthy always succeeds.
func (p *Provider) Healthy(_ context.Context) error {
	return nil
}
