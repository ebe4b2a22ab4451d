// Package ollama provides an LLM provider backed by a local Ollama daemon
// via its native REST API (POST /api/chat). Health is probed against
// GET /api/tags.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/visawire/visawire/pkg/provider/llm"
)

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

const (
	chatEndpoint = "/api/chat"
	tagsEndpoint = "/api/tags"

	defaultTimeout = 120 * time.Second
	healthTimeout  = 5 * time.Second
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout for completions.
// Defaults to 120 s, which accommodates large local models on CPU.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements llm.Provider against an Ollama server.
type Provider struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

// New creates a Provider for the Ollama server at serverURL (e.g.
// "http://localhost:11434") and the given model name.
func New(serverURL, model string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("ollama: serverURL must not be empty")
	}
	if model == "" {
		return nil, errors.New("ollama: model must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// chatRequest is the JSON body of POST /api/chat.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

// chatResponse is the JSON body returned by POST /api/chat.
type chatResponse struct {
	Message llm.Message `json:"message"`
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	req.ApplyDefaults()

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	body, err := json.Marshal(chatRequest{
		Model:    p.model,
		Messages: messages,
		Options: chatOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+chatEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama: POST %s: %w", chatEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: POST %s returned status %d", chatEndpoint, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode chat response: %w", err)
	}
	return out.Message.Content, nil
}

// Healthy implements llm.Provider. It probes GET /api/tags with a short
// timeout.
func (p *Provider) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+tagsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("ollama: create health request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: GET %s: %w", tagsEndpoint, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: GET %s returned status %d", tagsEndpoint, resp.StatusCode)
	}
	return nil
}
