package oai

import (
	"context"
	"encoding/json"

	"github.com/fenlight/go-oai/sse"
)

const chatCompletionsPath = "/chat/completions"

// ChatMessage is one entry in a chat conversation.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a completed tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Index    int          `json:"index"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ChatRequest configures a chat completion call. Optional fields are
// omitted from the wire format when unset.
type ChatRequest struct {
	Model               string         `json:"model"`
	Messages            []ChatMessage  `json:"messages"`
	MaxCompletionTokens int            `json:"max_completion_tokens,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
	TopP                *float64       `json:"top_p,omitempty"`
	User                string         `json:"user,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
	StreamOptions       *StreamOptions `json:"stream_options,omitempty"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// ChatCompletion is the non-streaming response shape.
type ChatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one streamed event in a chat completion response.
// The final chunk of a choice carries a non-nil FinishReason; the chunk
// carrying Usage has no choices.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta carries the incremental content of one chunk. Content is a
// pointer so an empty fragment can be told apart from an absent field.
type ChunkDelta struct {
	Role      string     `json:"role,omitempty"`
	Content   *string    `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// CreateChatCompletion performs a non-streaming chat completion call under
// the client's retry policy.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatCompletion, error) {
	req.Stream = false
	req.StreamOptions = nil
	var out ChatCompletion
	if err := c.Post(ctx, chatCompletionsPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamChatCompletion starts a streaming chat completion call and returns
// the chunk stream. Only connection establishment is retried.
func (c *Client) StreamChatCompletion(ctx context.Context, req ChatRequest) (*Stream[ChatCompletionChunk], error) {
	req.Stream = true
	if req.StreamOptions == nil {
		req.StreamOptions = &StreamOptions{IncludeUsage: true}
	}
	body, err := c.postStream(ctx, chatCompletionsPath, req)
	if err != nil {
		return nil, err
	}
	return newStream(ctx, body, c.debugger, parseChatChunk), nil
}

func parseChatChunk(ev sse.Event) (ChatCompletionChunk, error) {
	var chunk ChatCompletionChunk
	if err := json.Unmarshal(ev.Data, &chunk); err != nil {
		return ChatCompletionChunk{}, &DecodeError{Data: ev.Data, Err: err}
	}
	return chunk, nil
}
