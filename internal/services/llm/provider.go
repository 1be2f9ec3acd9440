package llm

import (
	"context"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

// Response is the provider-agnostic result of a single generation call.
type Response struct {
	Text         string
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Provider abstracts a single LLM backend.
type Provider interface {
	// Name returns the provider identifier used in pricing and usage records.
	Name() string
	// Model returns the configured model for this provider.
	Model() string
	// Generate sends a system/user prompt pair and returns the completion
	// with token usage reported by the backend.
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (*Response, error)
	// HealthCheck verifies the backend is reachable with the configured credentials.
	HealthCheck(ctx context.Context) error
}

// HealthStatus is the outcome of a single provider health check.
type HealthStatus struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Healthy  bool   `json:"healthy"`
	Error    string `json:"error,omitempty"`
}

// Manager holds the configured providers in preference order and
// fails over to the next one when a call returns a retryable error.
type Manager struct {
	providers []Provider
}

// providerOrder is the failover preference when multiple providers are configured.
var providerOrder = []string{"anthropic", "openai", "gemini"}

// NewManager builds providers from configuration, skipping entries without
// an API key. Providers are ordered by providerOrder, then config order.
func NewManager(configs map[string]models.ProviderConfig) (*Manager, error) {
	byName := make(map[string]Provider, len(configs))
	var extra []string

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			fiberlog.Warnf("llm: provider %s has no API key configured, skipping", name)
			continue
		}
		p, err := buildProvider(name, cfg)
		if err != nil {
			return nil, err
		}
		byName[name] = p
		if !contains(providerOrder, name) {
			extra = append(extra, name)
		}
	}

	m := &Manager{}
	for _, name := range append(append([]string{}, providerOrder...), extra...) {
		if p, ok := byName[name]; ok {
			m.providers = append(m.providers, p)
		}
	}
	if len(m.providers) == 0 {
		return nil, models.NewValidationError("no LLM providers configured with credentials", nil)
	}

	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = fmt.Sprintf("%s/%s", p.Name(), p.Model())
	}
	fiberlog.Infof("llm: manager initialized with providers: %s", strings.Join(names, ", "))
	return m, nil
}

func buildProvider(name string, cfg models.ProviderConfig) (Provider, error) {
	switch name {
	case "openai":
		return newOpenAIProvider(cfg), nil
	case "anthropic":
		return newAnthropicProvider(cfg), nil
	case "gemini":
		return newGeminiProvider(cfg), nil
	default:
		// Unknown providers are assumed to speak the OpenAI API, which
		// needs an explicit base URL to be reachable.
		if cfg.BaseURL == "" {
			return nil, models.NewValidationError(
				fmt.Sprintf("provider %s requires a base_url (OpenAI-compatible endpoint)", name), nil)
		}
		return newOpenAICompatibleProvider(name, cfg), nil
	}
}

// Providers returns the configured providers in failover order.
func (m *Manager) Providers() []Provider {
	return m.providers
}

// Generate tries each provider in order until one succeeds. Non-retryable
// errors (validation, auth) abort the failover chain immediately.
func (m *Manager) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (*Response, error) {
	var lastErr error
	for _, p := range m.providers {
		resp, err := p.Generate(ctx, systemPrompt, userPrompt, maxTokens)
		if err == nil {
			return resp, nil
		}
		if appErr, ok := err.(*models.AppError); ok && !appErr.Retryable {
			return nil, err
		}
		fiberlog.Warnf("llm: provider %s failed, trying next: %v", p.Name(), err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = models.NewInternalError("no providers available", nil)
	}
	return nil, lastErr
}

// HealthCheckAll checks every provider concurrently and returns one
// status per provider. A failing provider does not abort the others.
func (m *Manager) HealthCheckAll(ctx context.Context) []HealthStatus {
	statuses := make([]HealthStatus, len(m.providers))
	g, gctx := errgroup.WithContext(ctx)

	for i, p := range m.providers {
		g.Go(func() error {
			status := HealthStatus{Provider: p.Name(), Model: p.Model(), Healthy: true}
			if err := p.HealthCheck(gctx); err != nil {
				status.Healthy = false
				status.Error = err.Error()
			}
			statuses[i] = status
			return nil
		})
	}

	// Errors are captured per status, never returned.
	_ = g.Wait()
	return statuses
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
