package llm

import (
	"fmt"
	"strings"

	"github.com/codefionn/planrunner/internal/config"
)

// Supported provider names.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGoogle     = "google"
)

// NewClient builds a client for model using the configured provider.
func NewClient(cfg config.LLMConfig, model string) (Client, error) {
	timeout := cfg.RequestTimeout.Duration
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenRouter, "":
		return NewOpenRouterClient(cfg.APIKey, model, cfg.BaseURL, timeout)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, model, cfg.BaseURL, timeout)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, model, cfg.BaseURL, timeout)
	case ProviderGoogle:
		return NewGoogleAIClient(cfg.APIKey, model, cfg.BaseURL, timeout)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// Models holds one client per role the agent plays.
type Models struct {
	Plan     Client
	Decision Client
	Replan   Client
	Agent    Client
}

// NewModels creates clients for every configured role.
func NewModels(cfg config.LLMConfig) (*Models, error) {
	var (
		m   Models
		err error
	)
	for _, slot := range []struct {
		dst   *Client
		model string
		role  string
	}{
		{&m.Plan, cfg.PlanModel, "plan"},
		{&m.Decision, cfg.DecisionModel, "decision"},
		{&m.Replan, cfg.ReplanModel, "replan"},
		{&m.Agent, cfg.AgentModel, "agent"},
	} {
		if *slot.dst, err = NewClient(cfg, slot.model); err != nil {
			return nil, fmt.Errorf("%s model: %w", slot.role, err)
		}
	}
	return &m, nil
}
