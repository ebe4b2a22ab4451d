// Package openai provides an LLM provider for any OpenAI-compatible
// chat-completion server, including vLLM endpoints, via the official SDK.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/visawire/visawire/pkg/provider/llm"
)

var _ llm.Provider = (*Provider)(nil)

const healthTimeout = 5 * time.Second

// Provider implements llm.Provider using the OpenAI API surface.
type Provider struct {
	client oai.Client
	model  string
}

type config struct {
	baseURL string
	timeout time.Duration
}

// Option customises the client built by [New].
type Option func(*config)

// WithBaseURL points the client at an OpenAI-compatible server, e.g. a vLLM
// instance at "http://localhost:8000/v1".
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a Provider. apiKey may be a placeholder for local servers
// that do not check credentials, but must not be empty.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Complete sends the conversation as a chat completion request and returns
// the first choice's text.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	req.ApplyDefaults()

	var messages []oai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, oai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			messages = append(messages, oai.UserMessage(m.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:               shared.ChatModel(p.model),
		Messages:            messages,
		Temperature:         param.NewOpt(req.Temperature),
		MaxCompletionTokens: param.NewOpt(int64(req.MaxTokens)),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Healthy implements llm.Provider. It lists models with a short timeout,
// which works against both the OpenAI API and vLLM's /v1/models.
func (p *Provider) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai: list models: %w", err)
	}
	return nil
}
