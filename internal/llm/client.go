package llm

import (
	"context"
	"errors"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when a provider answers without any content.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseSchema asks the provider to constrain its answer to a JSON schema.
type ResponseSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	Messages     []*Message `json:"messages"`
	SystemPrompt string     `json:"system_prompt,omitempty"`
	Temperature  float64    `json:"temperature"`
	MaxTokens    int        `json:"max_tokens,omitempty"`

	// ResponseSchema is best effort: providers without native structured
	// output support ignore it and rely on the prompt.
	ResponseSchema *ResponseSchema `json:"response_schema,omitempty"`

	// ReasoningEffort is forwarded to providers that accept one
	// ("minimal", "low", "medium", "high"). Empty leaves the default.
	ReasoningEffort string `json:"reasoning_effort,omitempty"`
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Content    string         `json:"content"`
	Reasoning  string         `json:"reasoning,omitempty"`
	StopReason string         `json:"stop_reason"`
	Usage      map[string]any `json:"usage,omitempty"`
}

// Client is the interface for LLM clients
type Client interface {
	// CompleteWithRequest sends a completion request and returns the response
	CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	// GetModelName returns the model name
	GetModelName() string
}

// Complete is a simplified call for a single user prompt.
func Complete(ctx context.Context, c Client, prompt string) (string, error) {
	resp, err := c.CompleteWithRequest(ctx, &CompletionRequest{
		Messages: []*Message{{Role: RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// splitSystem separates system messages from the conversation. Providers
// with a dedicated system field use it; the explicit SystemPrompt comes first.
func splitSystem(req *CompletionRequest) (string, []*Message) {
	var system []string
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}
	rest := make([]*Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return joinNonEmpty(system, "\n\n"), rest
}

func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
