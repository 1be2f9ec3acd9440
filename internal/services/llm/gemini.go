package llm

import (
	"context"
	"sync"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

const defaultGeminiModel = "gemini-2.5-flash"

type geminiProvider struct {
	model string
	cfg   models.ProviderConfig

	// The genai client needs a context to construct, so it is built
	// lazily on first use.
	once      sync.Once
	client    *genai.Client
	clientErr error
}

func newGeminiProvider(cfg models.ProviderConfig) *geminiProvider {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiProvider{model: model, cfg: cfg}
}

func (p *geminiProvider) Name() string  { return "gemini" }
func (p *geminiProvider) Model() string { return p.model }

func (p *geminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		p.client, p.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if p.clientErr != nil {
			fiberlog.Errorf("llm: gemini client creation failed: %v", p.clientErr)
		}
	})
	if p.clientErr != nil {
		return nil, models.NewProviderError("gemini", "client creation failed", p.clientErr)
	}
	return p.client, nil
}

func (p *geminiProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (*Response, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(userPrompt), config)
	if err != nil {
		fiberlog.Errorf("llm: gemini request failed after %v: %v", time.Since(start), err)
		return nil, models.NewProviderError("gemini", "generate request failed", err)
	}

	var inputTokens, outputTokens int64
	if resp.UsageMetadata != nil {
		inputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}

	fiberlog.Debugf("llm: gemini request completed in %v - usage: input:%d, output:%d",
		time.Since(start), inputTokens, outputTokens)

	return &Response{
		Text:         resp.Text(),
		Provider:     "gemini",
		Model:        p.model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

func (p *geminiProvider) HealthCheck(ctx context.Context) error {
	client, err := p.getClient(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Models.CountTokens(ctx, p.model, genai.Text("ping"), nil); err != nil {
		return models.NewProviderError("gemini", "health check failed", err)
	}
	return nil
}
