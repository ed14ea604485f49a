package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/planrunner/internal/logger"
)

const (
	openRouterAPIBaseURL = "https://openrouter.ai/api/v1"
	openRouterReferer    = "https://github.com/codefionn/planrunner"
	openRouterAppTitle   = "planrunner"
)

// OpenRouterClient talks to the OpenRouter chat completions endpoint directly.
type OpenRouterClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenRouterClient creates a new OpenRouter client. An empty baseURL
// selects the public endpoint.
func NewOpenRouterClient(apiKey, modelID, baseURL string, timeout time.Duration) (*OpenRouterClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openrouter client requires an API key")
	}

	model := strings.TrimSpace(modelID)
	if model == "" {
		return nil, fmt.Errorf("openrouter client requires a model")
	}
	if baseURL == "" {
		baseURL = openRouterAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &OpenRouterClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *OpenRouterClient) GetModelName() string {
	return c.model
}

func (c *OpenRouterClient) CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("openrouter completion request cannot be nil")
	}

	payload, err := c.buildChatRequest(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := c.newChatRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	logger.Debug("OpenRouter: sending completion request for model %s", c.model)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter completion failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openrouter completion failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp openRouterChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("openrouter completion failed: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("openrouter completion failed: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil {
		return nil, ErrEmptyResponse
	}

	first := chatResp.Choices[0]
	stopReason := first.FinishReason
	if strings.TrimSpace(stopReason) == "" {
		stopReason = "stop"
	}

	content := extractOpenRouterText(first.Message.Content)
	reasoning := extractReasoningDetails(first.Message.ReasoningDetails)
	if reasoning == "" {
		reasoning = first.Message.Reasoning
	}

	logger.Debug("OpenRouter: content=%d chars, reasoning=%d chars, usage=%v", len(content), len(reasoning), chatResp.Usage)

	return &CompletionResponse{
		Content:    content,
		Reasoning:  reasoning,
		StopReason: stopReason,
		Usage:      chatResp.Usage,
	}, nil
}

func (c *OpenRouterClient) buildChatRequest(req *CompletionRequest) (*openRouterChatRequest, error) {
	messages := make([]openRouterChatMessage, 0, len(req.Messages)+1)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, openRouterChatMessage{Role: RoleSystem, Content: system})
	}
	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		role := strings.TrimSpace(strings.ToLower(msg.Role))
		if role == "" {
			role = RoleUser
		}
		messages = append(messages, openRouterChatMessage{Role: role, Content: msg.Content})
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("openrouter completion requires at least one message")
	}

	temp := req.Temperature
	payload := &openRouterChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temp,
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}
	if req.ResponseSchema != nil {
		payload.ResponseFormat = &openRouterResponseFormat{
			Type: "json_schema",
			JSONSchema: &openRouterJSONSchema{
				Name:   req.ResponseSchema.Name,
				Strict: false,
				Schema: req.ResponseSchema.Schema,
			},
		}
	}
	if req.ReasoningEffort != "" {
		payload.Reasoning = &openRouterReasoning{Effort: req.ReasoningEffort}
	}
	return payload, nil
}

func (c *OpenRouterClient) newChatRequest(ctx context.Context, payload *openRouterChatRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter failed to encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(c.baseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", openRouterReferer)
	req.Header.Set("X-Title", openRouterAppTitle)

	return req, nil
}

// extractReasoningDetails keeps the readable parts of OpenRouter's
// reasoning_details: full text blocks and summaries. Encrypted blocks are
// dropped.
func extractReasoningDetails(details []openRouterReasoningDetail) string {
	parts := make([]string, 0, len(details))
	for _, d := range details {
		switch d.Type {
		case "reasoning.text":
			if d.Text != "" {
				parts = append(parts, d.Text)
			}
		case "reasoning.summary":
			if d.Summary != "" {
				parts = append(parts, d.Summary)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func extractOpenRouterText(content any) string {
	switch value := content.(type) {
	case nil:
		return ""
	case string:
		return value
	case []any:
		var sb strings.Builder
		for _, part := range value {
			sb.WriteString(extractOpenRouterText(part))
		}
		return sb.String()
	case map[string]any:
		if text, ok := value["text"].(string); ok {
			return text
		}
		if inner, ok := value["content"]; ok {
			return extractOpenRouterText(inner)
		}
	}
	return ""
}

type openRouterChatRequest struct {
	Model          string                    `json:"model"`
	Messages       []openRouterChatMessage   `json:"messages"`
	Temperature    *float64                  `json:"temperature,omitempty"`
	MaxTokens      int                       `json:"max_tokens,omitempty"`
	ResponseFormat *openRouterResponseFormat `json:"response_format,omitempty"`
	Reasoning      *openRouterReasoning      `json:"reasoning,omitempty"`
}

type openRouterChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponseFormat struct {
	Type       string                `json:"type"`
	JSONSchema *openRouterJSONSchema `json:"json_schema,omitempty"`
}

type openRouterJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type openRouterReasoning struct {
	Effort string `json:"effort,omitempty"`
}

type openRouterChatResponse struct {
	ID      string                 `json:"id"`
	Model   string                 `json:"model"`
	Usage   map[string]any         `json:"usage,omitempty"`
	Choices []openRouterChatChoice `json:"choices"`
	Error   *openRouterError       `json:"error,omitempty"`
}

type openRouterError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

type openRouterChatChoice struct {
	Index        int                            `json:"index"`
	FinishReason string                         `json:"finish_reason"`
	Message      *openRouterChatResponseMessage `json:"message"`
}

type openRouterChatResponseMessage struct {
	Role             string                      `json:"role"`
	Content          any                         `json:"content"`
	Reasoning        string                      `json:"reasoning,omitempty"`
	ReasoningDetails []openRouterReasoningDetail `json:"reasoning_details,omitempty"`
}

type openRouterReasoningDetail struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Summary string `json:"summary,omitempty"`
}
