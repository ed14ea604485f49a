package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterCompleteWithRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, openRouterAppTitle, r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "gen-1",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {
      "role": "assistant",
      "content": "` + "```python\\nx = 1\\n```" + `",
      "reasoning_details": [
        {"type": "reasoning.text", "text": "think"},
        {"type": "reasoning.encrypted", "data": "opaque"},
        {"type": "reasoning.summary", "summary": "short"}
      ]
    }
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5}
}`))
	}))
	defer server.Close()

	client, err := NewOpenRouterClient("sk-test", "deepseek/deepseek-v3.2", server.URL, time.Second)
	require.NoError(t, err)

	resp, err := client.CompleteWithRequest(context.Background(), &CompletionRequest{
		Messages: []*Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
		},
		Temperature:     0,
		MaxTokens:       10000,
		ReasoningEffort: "minimal",
		ResponseSchema:  &ResponseSchema{Name: "response_schema", Schema: map[string]any{"type": "object"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "```python\nx = 1\n```", resp.Content)
	assert.Equal(t, "think\n\nshort", resp.Reasoning)
	assert.Equal(t, "stop", resp.StopReason)
	assert.EqualValues(t, 10, resp.Usage["prompt_tokens"])

	assert.Equal(t, "deepseek/deepseek-v3.2", got["model"])
	assert.EqualValues(t, 0, got["temperature"])
	assert.EqualValues(t, 10000, got["max_tokens"])
	assert.Equal(t, map[string]any{"effort": "minimal"}, got["reasoning"])

	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "response_schema", schema["name"])
	assert.Equal(t, false, schema["strict"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
}

func TestOpenRouterErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errIs  error
		errMsg string
	}{
		{name: "http status", status: http.StatusTooManyRequests, body: "slow down", errMsg: "status 429: slow down"},
		{name: "no choices", status: http.StatusOK, body: `{"choices": []}`, errIs: ErrEmptyResponse},
		{name: "error payload", status: http.StatusOK, body: `{"error": {"code": 502, "message": "upstream"}}`, errMsg: "upstream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewOpenRouterClient("k", "m", server.URL, time.Second)
			require.NoError(t, err)

			_, err = client.CompleteWithRequest(context.Background(), &CompletionRequest{
				Messages: []*Message{{Role: RoleUser, Content: "hi"}},
			})
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestNewOpenRouterClientRequiresKeyAndModel(t *testing.T) {
	_, err := NewOpenRouterClient(" ", "m", "", 0)
	assert.Error(t, err)
	_, err = NewOpenRouterClient("k", "", "", 0)
	assert.Error(t, err)
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem(&CompletionRequest{
		SystemPrompt: "first",
		Messages: []*Message{
			{Role: RoleSystem, Content: "second"},
			{Role: RoleUser, Content: "u"},
			nil,
			{Role: RoleAssistant, Content: "a"},
		},
	})
	assert.Equal(t, "first\n\nsecond", system)
	require.Len(t, rest, 2)
	assert.Equal(t, RoleAssistant, rest[1].Role)
}
