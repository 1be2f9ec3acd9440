package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-5-20250929"
	defaultAnthropicMaxTokens = 4096
)

type anthropicProvider struct {
	model  string
	client anthropic.Client
}

func newAnthropicProvider(cfg models.ProviderConfig) *anthropicProvider {
	opts := []anthropicOption.RequestOption{
		anthropicOption.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicOption.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	return &anthropicProvider{
		model:  model,
		client: anthropic.NewClient(opts...),
	}
}

func (p *anthropicProvider) Name() string  { return "anthropic" }
func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (*Response, error) {
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	start := time.Now()
	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		fiberlog.Errorf("llm: anthropic request failed after %v: %v", time.Since(start), err)
		return nil, models.NewProviderError("anthropic", "message request failed", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	fiberlog.Debugf("llm: anthropic request completed in %v - usage: input:%d, output:%d",
		time.Since(start), message.Usage.InputTokens, message.Usage.OutputTokens)

	return &Response{
		Text:         text.String(),
		Provider:     "anthropic",
		Model:        p.model,
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}, nil
}

func (p *anthropicProvider) HealthCheck(ctx context.Context) error {
	// A minimal one-token request is the cheapest authenticated call
	// the Messages API supports.
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return models.NewProviderError("anthropic", "health check failed", err)
	}
	return nil
}
