package llm

import (
	"context"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

const defaultOpenAIModel = "gpt-4o"

type openAIProvider struct {
	name   string
	model  string
	client openai.Client
}

func newOpenAIProvider(cfg models.ProviderConfig) *openAIProvider {
	return newOpenAICompatibleProvider("openai", cfg)
}

// newOpenAICompatibleProvider builds a provider for any backend speaking
// the OpenAI chat completions API.
func newOpenAICompatibleProvider(name string, cfg models.ProviderConfig) *openAIProvider {
	opts := []openaiOption.RequestOption{
		openaiOption.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openaiOption.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &openAIProvider{
		name:   name,
		model:  model,
		client: openai.NewClient(opts...),
	}
}

func (p *openAIProvider) Name() string  { return p.name }
func (p *openAIProvider) Model() string { return p.model }

func (p *openAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(maxTokens)
	}

	start := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		fiberlog.Errorf("llm: %s request failed after %v: %v", p.name, time.Since(start), err)
		return nil, models.NewProviderError(p.name, "chat completion request failed", err)
	}
	if len(completion.Choices) == 0 {
		return nil, models.NewProviderError(p.name, "chat completion returned no choices", nil)
	}

	fiberlog.Debugf("llm: %s request completed in %v - usage: input:%d, output:%d",
		p.name, time.Since(start), completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

	return &Response{
		Text:         completion.Choices[0].Message.Content,
		Provider:     p.name,
		Model:        p.model,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	}, nil
}

func (p *openAIProvider) HealthCheck(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	if err != nil {
		return models.NewProviderError(p.name, "health check failed", err)
	}
	return nil
}
