package oai

import (
	"context"
	"encoding/json"

	"github.com/fenlight/go-oai/sse"
)

const responsesPath = "/responses"

// ResponseRequest configures a Responses API call.
type ResponseRequest struct {
	Model           string `json:"model"`
	Input           string `json:"input,omitempty"`
	Instructions    string `json:"instructions,omitempty"`
	MaxOutputTokens int    `json:"max_output_tokens,omitempty"`
	PreviousID      string `json:"previous_response_id,omitempty"`
	Stream          bool   `json:"stream,omitempty"`
}

// ResponseEvent is one streamed Responses API event. The Type discriminant
// selects which of the optional fields are populated; payload objects stay
// raw so callers decode only what they use.
type ResponseEvent struct {
	Type           string          `json:"type"`
	SequenceNumber int             `json:"sequence_number"`
	ItemID         string          `json:"item_id,omitempty"`
	OutputIndex    int             `json:"output_index,omitempty"`
	ContentIndex   int             `json:"content_index,omitempty"`
	Delta          string          `json:"delta,omitempty"`
	Text           string          `json:"text,omitempty"`
	Item           json.RawMessage `json:"item,omitempty"`
	Response       json.RawMessage `json:"response,omitempty"`
	Part           json.RawMessage `json:"part,omitempty"`
}

// knownResponseEvents is the closed set of discriminants this client
// decodes. Anything else surfaces as an UnknownEventError and the stream
// continues.
var knownResponseEvents = map[string]bool{
	"response.created":                       true,
	"response.in_progress":                   true,
	"response.completed":                     true,
	"response.failed":                        true,
	"response.incomplete":                    true,
	"response.output_item.added":             true,
	"response.output_item.done":              true,
	"response.content_part.added":            true,
	"response.content_part.done":             true,
	"response.output_text.delta":             true,
	"response.output_text.done":              true,
	"response.function_call_arguments.delta": true,
	"response.function_call_arguments.done":  true,
	"response.reasoning_summary_text.delta":  true,
	"response.reasoning_summary_text.done":   true,
	"response.refusal.delta":                 true,
	"response.refusal.done":                  true,
	"error":                                  true,
}

// StreamResponse starts a streaming Responses API call.
func (c *Client) StreamResponse(ctx context.Context, req ResponseRequest) (*Stream[ResponseEvent], error) {
	req.Stream = true
	body, err := c.postStream(ctx, responsesPath, req)
	if err != nil {
		return nil, err
	}
	return newStream(ctx, body, c.debugger, parseResponseEvent), nil
}

func parseResponseEvent(ev sse.Event) (ResponseEvent, error) {
	var event ResponseEvent
	if err := json.Unmarshal(ev.Data, &event); err != nil {
		return ResponseEvent{}, &DecodeError{Data: ev.Data, Err: err}
	}
	if !knownResponseEvents[event.Type] {
		return ResponseEvent{}, &UnknownEventError{Type: event.Type, Data: ev.Data}
	}
	return event, nil
}
