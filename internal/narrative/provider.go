package narrative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"

	"carinspect/internal/config"
	"carinspect/internal/services"
	"carinspect/internal/services/llm"
)

// Provider generates free text for a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderOption customizes SDK-backed providers.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	httpClient *http.Client
}

// WithHTTPClient routes provider traffic through client.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(o *providerOptions) { o.httpClient = client }
}

// NewProvider builds the provider named in cfg. It returns nil without error
// when narrative generation is disabled.
func NewProvider(cfg config.LLMConfig, opts ...ProviderOption) (Provider, error) {
	var o providerOptions
	for _, opt := range opts {
		opt(&o)
	}
	switch cfg.Provider {
	case "", config.ProviderNone, config.ProviderAuto:
		return nil, nil
	case config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderOpenRouter:
	default:
		return nil, services.Wrap(services.ErrConfiguration, "narrative", "provider", fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "narrative", "provider", fmt.Sprintf("%s api key is not set", cfg.Provider), nil)
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return newOpenAIProvider(cfg, o), nil
	case config.ProviderAnthropic:
		return newAnthropicProvider(cfg, o), nil
	default:
		var llmOpts []llm.Option
		if o.httpClient != nil {
			llmOpts = append(llmOpts, llm.WithHTTPClient(o.httpClient))
		}
		client := llm.NewClient(llm.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxOutputTokens,
		}, append(llmOpts, llm.WithRetryMaxAttempts(1))...)
		return &openRouterProvider{client: client}, nil
	}
}

type openAIProvider struct {
	client openai.Client
	cfg    config.LLMConfig
}

func newOpenAIProvider(cfg config.LLMConfig, o providerOptions) *openAIProvider {
	opts := []ooption.RequestOption{ooption.WithAPIKey(cfg.APIKey), ooption.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, ooption.WithBaseURL(cfg.BaseURL))
	}
	if o.httpClient != nil {
		opts = append(opts, ooption.WithHTTPClient(o.httpClient))
	}
	return &openAIProvider{client: openai.NewClient(opts...), cfg: cfg}
}

func (p *openAIProvider) Name() string { return config.ProviderOpenAI }

func (p *openAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	params := oresponses.ResponseNewParams{
		Model:        oshared.ResponsesModel(p.cfg.Model),
		Instructions: openai.String(SystemPrompt),
		Input:        oresponses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
		Temperature:  openai.Float(p.cfg.Temperature),
	}
	if p.cfg.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(p.cfg.MaxOutputTokens))
	}
	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "narrative", "openai responses", "", err)
	}
	return nonEmpty(resp.OutputText())
}

type anthropicProvider struct {
	client anthropic.Client
	cfg    config.LLMConfig
}

func newAnthropicProvider(cfg config.LLMConfig, o providerOptions) *anthropicProvider {
	opts := []aoption.RequestOption{aoption.WithAPIKey(cfg.APIKey), aoption.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, aoption.WithBaseURL(cfg.BaseURL))
	}
	if o.httpClient != nil {
		opts = append(opts, aoption.WithHTTPClient(o.httpClient))
	}
	return &anthropicProvider{client: anthropic.NewClient(opts...), cfg: cfg}
}

func (p *anthropicProvider) Name() string { return config.ProviderAnthropic }

func (p *anthropicProvider) Generate(ctx context.Context, prompt string) (string, error) {
	maxTokens := int64(p.cfg.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = 420
	}
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.Model),
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: SystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(p.cfg.Temperature),
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "narrative", "anthropic messages", "", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return nonEmpty(b.String())
}

type openRouterProvider struct {
	client *llm.Client
}

func (p *openRouterProvider) Name() string { return config.ProviderOpenRouter }

func (p *openRouterProvider) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := p.client.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return nonEmpty(text)
}

var errEmptyText = errors.New("provider returned empty text")

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrTransient, "narrative", "generate", "", errEmptyText)
	}
	return text, nil
}
