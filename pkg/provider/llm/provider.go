// Package llm defines the Provider interface for the interviewer language
// model backends.
//
// A provider wraps a remote or local chat-completion API (an Ollama daemon,
// an OpenAI-compatible server such as vLLM, or any backend reachable through
// any-llm-go) and exposes a uniform interface so the turn pipeline never
// couples to a specific SDK.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Default generation parameters used when a request leaves them zero.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
)

// Message is one entry of the conversation history sent to the model.
// Role is "system", "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything the model needs to produce a response.
type Request struct {
	// SystemPrompt is the high-priority instruction injected before the
	// conversation history.
	SystemPrompt string

	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []Message

	// Temperature controls output randomness. Zero means DefaultTemperature.
	Temperature float64

	// MaxTokens caps the completion length. Zero means DefaultMaxTokens.
	MaxTokens int
}

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete sends req to the model and returns the assistant's reply text.
	Complete(ctx context.Context, req Request) (string, error)

	// Healthy probes the backend and returns nil when it is reachable and
	// ready to serve completions. Implementations should bound the probe
	// with a short timeout.
	Healthy(ctx context.Context) error
}

// ApplyDefaults fills zero generation parameters with the package defaults.
func (r *Request) ApplyDefaults() {
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
}
