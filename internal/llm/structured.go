package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredRequest describes a single prompt whose answer must be JSON.
type StructuredRequest struct {
	Prompt    string
	Schema    *ResponseSchema
	MaxTokens int
}

// Structured sends prompt with the schema appended as an instruction, asks
// the provider for schema-constrained output and decodes the answer into out.
func Structured(ctx context.Context, c Client, req StructuredRequest, out any) error {
	if req.Schema == nil {
		return fmt.Errorf("structured request requires a schema")
	}

	schemaJSON, err := encodeSchema(req.Schema.Schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}

	resp, err := c.CompleteWithRequest(ctx, &CompletionRequest{
		Messages: []*Message{{
			Role:    RoleUser,
			Content: req.Prompt + "\n\nReturn only JSON matching this: " + schemaJSON,
		}},
		Temperature:    0,
		MaxTokens:      req.MaxTokens,
		ResponseSchema: req.Schema,
	})
	if err != nil {
		return err
	}

	payload := extractJSON(resp.Content)
	if payload == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Schema.Name, err)
	}
	return nil
}

func encodeSchema(schema map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(schema); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// extractJSON returns the JSON object in content, unwrapping a markdown
// fence or surrounding prose when the model added one.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, fence) {
		s = strings.TrimPrefix(s, fence)
		if nl := strings.IndexByte(s, '\n'); nl != -1 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, fence); end != -1 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) {
		return s
	}
	first, last := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if first != -1 && last > first {
		return s[first : last+1]
	}
	return s
}
