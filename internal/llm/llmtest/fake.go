// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/codefionn/planrunner/internal/llm"
)

// Client replays queued replies in order and records every request.
type Client struct {
	Model string

	mu       sync.Mutex
	replies  []reply
	requests []*llm.CompletionRequest
}

type reply struct {
	resp *llm.CompletionResponse
	err  error
}

// New returns a client that answers with contents in order.
func New(contents ...string) *Client {
	c := &Client{Model: "fake/model"}
	for _, content := range contents {
		c.Push(content)
	}
	return c
}

// Push queues a plain reply.
func (c *Client) Push(content string) *Client {
	return c.PushResponse(&llm.CompletionResponse{Content: content, StopReason: "stop"})
}

// PushResponse queues a full response.
func (c *Client) PushResponse(resp *llm.CompletionResponse) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, reply{resp: resp})
	return c
}

// PushError queues a failing call.
func (c *Client) PushError(err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, reply{err: err})
	return c
}

func (c *Client) GetModelName() string {
	return c.Model
}

func (c *Client) CompleteWithRequest(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Copy the message slice; callers keep appending to theirs.
	snapshot := *req
	snapshot.Messages = make([]*llm.Message, len(req.Messages))
	for i, m := range req.Messages {
		msg := *m
		snapshot.Messages[i] = &msg
	}
	c.requests = append(c.requests, &snapshot)

	if len(c.replies) == 0 {
		return nil, fmt.Errorf("llmtest: no reply queued for request %d", len(c.requests))
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	return next.resp, next.err
}

// Requests returns the recorded requests.
func (c *Client) Requests() []*llm.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*llm.CompletionRequest(nil), c.requests...)
}

// Remaining reports how many queued replies were not consumed.
func (c *Client) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies)
}
