package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/planrunner/internal/llm"
	"github.com/codefionn/planrunner/internal/llm/llmtest"
)

type verdict struct {
	Answer string `json:"answer"`
	Score  int    `json:"score"`
}

var verdictSchema = &llm.ResponseSchema{
	Name: "response_schema",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string", "description": "a <b> & c"},
			"score":  map[string]any{"type": "integer"},
		},
	},
}

func TestStructuredAppendsSchemaAndDecodes(t *testing.T) {
	client := llmtest.New(`{"answer": "yes", "score": 3}`)

	var out verdict
	err := llm.Structured(context.Background(), client, llm.StructuredRequest{
		Prompt:    "Is it done?",
		Schema:    verdictSchema,
		MaxTokens: 5000,
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, verdict{Answer: "yes", Score: 3}, out)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.True(t, strings.HasPrefix(req.Messages[0].Content, "Is it done?\n\nReturn only JSON matching this: {"))
	assert.Contains(t, req.Messages[0].Content, "a <b> & c")
	assert.Equal(t, 5000, req.MaxTokens)
	assert.Equal(t, 0.0, req.Temperature)
	assert.Same(t, verdictSchema, req.ResponseSchema)
}

func TestStructuredToleratesFences(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"json fence", "```json\n{\"answer\": \"ok\", \"score\": 1}\n```"},
		{"bare fence", "```\n{\"answer\": \"ok\", \"score\": 1}\n```"},
		{"prose", "Here you go: {\"answer\": \"ok\", \"score\": 1} hope it helps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out verdict
			err := llm.Structured(context.Background(), llmtest.New(tt.content), llm.StructuredRequest{
				Prompt: "p",
				Schema: verdictSchema,
			}, &out)
			require.NoError(t, err)
			assert.Equal(t, "ok", out.Answer)
		})
	}
}

func TestStructuredErrors(t *testing.T) {
	var out verdict

	err := llm.Structured(context.Background(), llmtest.New(""), llm.StructuredRequest{Prompt: "p", Schema: verdictSchema}, &out)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	err = llm.Structured(context.Background(), llmtest.New("not json at all"), llm.StructuredRequest{Prompt: "p", Schema: verdictSchema}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response_schema response")

	boom := errors.New("boom")
	err = llm.Structured(context.Background(), llmtest.New().PushError(boom), llm.StructuredRequest{Prompt: "p", Schema: verdictSchema}, &out)
	assert.ErrorIs(t, err, boom)

	err = llm.Structured(context.Background(), llmtest.New(), llm.StructuredRequest{Prompt: "p"}, &out)
	require.Error(t, err)
}
