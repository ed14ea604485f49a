package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/codefionn/planrunner/internal/logger"
)

// OpenAIClient uses the OpenAI Responses API.
type OpenAIClient struct {
	model  string
	client openai.Client
}

// NewOpenAIClient constructs a client for the OpenAI API or a compatible
// endpoint when baseURL is set.
func NewOpenAIClient(apiKey, modelName, baseURL string, timeout time.Duration) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai client requires an API key")
	}

	model := strings.TrimSpace(modelName)
	if model == "" {
		return nil, fmt.Errorf("openai client requires a model")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &OpenAIClient{
		model:  model,
		client: openai.NewClient(opts...),
	}, nil
}

func (c *OpenAIClient) GetModelName() string {
	return c.model
}

func (c *OpenAIClient) CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("openai completion request cannot be nil")
	}

	params, err := c.buildResponsesParams(req)
	if err != nil {
		return nil, err
	}

	logger.Debug("OpenAI: sending responses request for model %s", c.model)

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	return convertResponsesCompletion(resp), nil
}

func (c *OpenAIClient) buildResponsesParams(req *CompletionRequest) (responses.ResponseNewParams, error) {
	system, messages := splitSystem(req)

	input := make(responses.ResponseInputParam, 0, len(messages))
	for _, msg := range messages {
		role := responses.EasyInputMessageRoleUser
		if msg.Role == RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(msg.Content, role))
	}
	if len(input) == 0 {
		return responses.ResponseNewParams{}, fmt.Errorf("no messages provided")
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
	}

	if system != "" {
		params.Instructions = openai.String(system)
	}
	if !isOpenAITemperatureUnsupported(c.model) {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ResponseSchema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   req.ResponseSchema.Name,
					Schema: req.ResponseSchema.Schema,
					Strict: openai.Bool(false),
				},
			},
		}
	}
	if req.ReasoningEffort != "" && isOpenAIReasoningModel(c.model) {
		params.Reasoning = shared.ReasoningParam{
			Effort: shared.ReasoningEffort(req.ReasoningEffort),
		}
	}

	return params, nil
}

func convertResponsesCompletion(resp *responses.Response) *CompletionResponse {
	if resp == nil {
		return &CompletionResponse{}
	}

	var reasoning []string
	for _, item := range resp.Output {
		if item.Type != "reasoning" {
			continue
		}
		for _, summary := range item.AsReasoning().Summary {
			reasoning = append(reasoning, summary.Text)
		}
	}

	return &CompletionResponse{
		Content:    resp.OutputText(),
		Reasoning:  joinNonEmpty(reasoning, "\n\n"),
		StopReason: string(resp.Status),
		Usage: map[string]any{
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
			"total_tokens":  resp.Usage.TotalTokens,
		},
	}
}

func isOpenAIReasoningModel(modelName string) bool {
	model := strings.ToLower(strings.TrimSpace(modelName))
	return strings.HasPrefix(model, "gpt-5") ||
		strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4")
}

func isOpenAITemperatureUnsupported(modelName string) bool {
	model := strings.ToLower(strings.TrimSpace(modelName))
	if model == "" {
		return false
	}
	if isOpenAIReasoningModel(model) || strings.Contains(model, "reasoning") {
		return true
	}
	return false
}
