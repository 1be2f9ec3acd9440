// Package agents implements the single-shot analysis agents. Each agent
// builds a prompt pair, runs it through the provider manager, and parses
// the model output into a structured result.
package agents

import (
	"context"
	"encoding/json"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/cache"
	"github.com/aiopslab/aiops-gateway/internal/services/llm"
)

func replaceLanguage(prompt, language string) string {
	return strings.ReplaceAll(prompt, "%LANGUAGE%", language)
}

func newMalformedOutputError(provider string, err error) error {
	return models.NewProviderError(provider, "model returned malformed structured output", err)
}

const agentMaxTokens = 8192

// Service runs the analysis agents against the configured providers,
// with an optional Redis-backed response cache.
type Service struct {
	llm   *llm.Manager
	cache *cache.ResponseCache
}

// NewService creates the agent service. responseCache may be nil.
func NewService(manager *llm.Manager, responseCache *cache.ResponseCache) *Service {
	return &Service{llm: manager, cache: responseCache}
}

// Invocation describes how an agent result was produced, for usage
// attribution. Cached results carry zero token counts.
type Invocation struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	Cached       bool   `json:"cached"`
}

// runStructured executes one agent invocation: cache lookup, model call,
// JSON extraction, unmarshal into T. The cached payload is the raw JSON
// the model produced.
func runStructured[T any](ctx context.Context, s *Service, agent, systemPrompt, userPrompt string) (*T, *Invocation, error) {
	key := cache.Key(agent, systemPrompt+"\x00"+userPrompt)
	if payload, ok := s.cache.Get(ctx, key); ok {
		var result T
		if err := json.Unmarshal([]byte(payload), &result); err == nil {
			fiberlog.Debugf("agents: %s cache hit", agent)
			return &result, &Invocation{Cached: true}, nil
		}
		fiberlog.Warnf("agents: %s cached payload is malformed, regenerating", agent)
	}

	resp, err := s.llm.Generate(ctx, systemPrompt, userPrompt, agentMaxTokens)
	if err != nil {
		return nil, nil, err
	}

	result, payload, err := parseStructured[T](agent, resp)
	if err != nil {
		return nil, nil, err
	}

	s.cache.Set(ctx, key, payload)
	return result, &Invocation{
		Provider:     resp.Provider,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

func parseStructured[T any](agent string, resp *llm.Response) (*T, string, error) {
	payload := extractJSON(resp.Text)
	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		fiberlog.Errorf("agents: %s returned unparseable output from %s/%s: %v",
			agent, resp.Provider, resp.Model, err)
		return nil, "", newMalformedOutputError(resp.Provider, err)
	}
	return &result, payload, nil
}

// extractJSON strips markdown code fences and surrounding prose, keeping
// the outermost JSON object. Models wrap JSON in ```json fences often
// enough that this is the common path.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
